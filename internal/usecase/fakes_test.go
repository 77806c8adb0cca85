package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
)

type fakeLoader struct {
	failURLs map[string]bool
}

func (f *fakeLoader) Fetch(_ context.Context, url string) (*domain.Image, error) {
	if f.failURLs[url] {
		return nil, fmt.Errorf("%w: status 404", e.ErrFetchFailed)
	}
	return domain.NewImage([]byte(url), "image/jpeg", 10, 10, url), nil
}

func (f *fakeLoader) Decode(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, e.ErrMalformedImage
	}
	return domain.NewImage(data, "image/png", 10, 10, ""), nil
}

// fakeML возвращает вектор по содержимому изображения.
type fakeML struct {
	vectors     map[string][]float32
	labels      map[string]string
	failEmbed   map[string]bool
	classifyErr error
}

func (f *fakeML) VectorizeRequest(_ context.Context, req *VectorizeReq) (*VectorizeRes, error) {
	key := string(req.Data)
	if f.failEmbed[key] {
		return nil, fmt.Errorf("model crashed")
	}
	if v, ok := f.vectors[key]; ok {
		return NewVectorizeRes(v, "clip-v1"), nil
	}
	return NewVectorizeRes([]float32{1, 1}, "clip-v1"), nil
}

func (f *fakeML) ClassifyRequest(_ context.Context, req *ClassifyReq) (*ClassifyRes, error) {
	if f.classifyErr != nil {
		return nil, f.classifyErr
	}
	label := "Top"
	if l, ok := f.labels[fmt.Sprint(req.Vector)]; ok {
		label = l
	}
	return NewClassifyRes(label, []string{"casual"}), nil
}

type fakeFeedReader struct {
	feeds   map[string]*domain.FeedData
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeFeedReader) Read(ctx context.Context, feed domain.Feed) (*domain.FeedData, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := f.feeds[feed.Location]
	if !ok {
		return nil, fmt.Errorf("%w: open %s: no such file", e.ErrFeedRead, feed.Location)
	}
	return data, nil
}

type fakeCatalogRepo struct {
	mu         sync.Mutex
	snapshot   *domain.CatalogSnapshot
	replaceErr error
	replaced   int
	findAll    int
}

func newFakeCatalogRepo(records ...*domain.CatalogRecord) *fakeCatalogRepo {
	repo := &fakeCatalogRepo{snapshot: &domain.CatalogSnapshot{Records: []*domain.CatalogRecord{}}}
	if len(records) > 0 {
		gen := domain.NewCatalogGeneration(records)
		repo.snapshot = &domain.CatalogSnapshot{GenerationID: gen.ID, Records: gen.Records}
	}
	return repo
}

func (f *fakeCatalogRepo) FindAll(context.Context) (*domain.CatalogSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findAll++
	return f.snapshot, nil
}

func (f *fakeCatalogRepo) FindByID(_ context.Context, id string) (*domain.CatalogRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.snapshot.Records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, e.ErrNotFound
}

func (f *fakeCatalogRepo) FindByProductID(_ context.Context, productID string) (*domain.CatalogRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.snapshot.Records {
		if r.ProductID == productID {
			return r, nil
		}
	}
	return nil, e.ErrNotFound
}

func (f *fakeCatalogRepo) ReplaceAll(_ context.Context, gen *domain.CatalogGeneration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced++
	f.snapshot = &domain.CatalogSnapshot{GenerationID: gen.ID, Records: gen.Records}
	return nil
}

func (f *fakeCatalogRepo) CurrentGeneration(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.GenerationID, nil
}

type fakeImagesInfra struct {
	mu         sync.Mutex
	cleaned    []string
	archiveErr error
}

func (f *fakeImagesInfra) ArchiveImage(_ context.Context, req *ArchiveImageReq) (string, error) {
	if f.archiveErr != nil {
		return "", f.archiveErr
	}
	return req.Brand + "/" + req.ProductID + ".jpg", nil
}

func (f *fakeImagesInfra) CleanupImages(keys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, keys...)
}

type fakeProducer struct {
	events []*GenerationCommittedEvent
	err    error
}

func (f *fakeProducer) PublishGenerationCommitted(_ context.Context, event *GenerationCommittedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type fakeLocker struct {
	err      error
	released bool
}

func (f *fakeLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	if f.err != nil {
		return nil, f.err
	}
	return func(context.Context) error {
		f.released = true
		return nil
	}, nil
}

type fakeCache struct {
	mu    sync.Mutex
	items map[string][]SimilarItem
	sets  chan string
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string][]SimilarItem{}, sets: make(chan string, 16)}
}

func (f *fakeCache) GetRecommendations(_ context.Context, key string) ([]SimilarItem, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.items[key]
	return items, ok, nil
}

func (f *fakeCache) SetRecommendations(_ context.Context, key string, items []SimilarItem) error {
	f.mu.Lock()
	f.items[key] = items
	f.mu.Unlock()
	f.sets <- key
	return nil
}

func row(i int, productID, imageURL string) domain.FeedRow {
	return domain.FeedRow{
		Index:   i,
		Listing: domain.ProductListing{ProductID: productID, Name: "item " + productID, ImageURL: imageURL},
	}
}

func record(productID string, vec []float32) *domain.CatalogRecord {
	return domain.NewCatalogRecord(
		domain.ProductListing{ProductID: productID, Name: productID, ImageURL: "https://img/" + productID},
		"x",
		domain.NewEmbedding(vec, "clip-v1"),
		domain.NewGarment("Top", []string{"casual"}),
	)
}
