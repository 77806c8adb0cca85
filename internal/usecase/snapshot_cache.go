package usecase

import (
	"context"
	"sync"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
)

// catalogView — неизменяемый снимок поколения с индексами для поиска записи.
type catalogView struct {
	snapshot    *domain.CatalogSnapshot
	byID        map[string]*domain.CatalogRecord
	byProductID map[string]*domain.CatalogRecord
}

func newCatalogView(snapshot *domain.CatalogSnapshot) *catalogView {
	v := &catalogView{
		snapshot:    snapshot,
		byID:        make(map[string]*domain.CatalogRecord, len(snapshot.Records)),
		byProductID: make(map[string]*domain.CatalogRecord, len(snapshot.Records)),
	}

	for _, r := range snapshot.Records {
		v.byID[r.ID] = r
		if _, ok := v.byProductID[r.ProductID]; !ok {
			v.byProductID[r.ProductID] = r
		}
	}

	return v
}

// lookup ищет запись по product_id, затем по id записи.
func (v *catalogView) lookup(id string) (*domain.CatalogRecord, bool) {
	if r, ok := v.byProductID[id]; ok {
		return r, true
	}
	r, ok := v.byID[id]
	return r, ok
}

// SnapshotCache держит в памяти последнее прочитанное поколение каталога.
// Снимок перечитывается, только когда в хранилище сменилось текущее поколение,
// поэтому сканирование всегда идёт по одному целому поколению.
type SnapshotCache struct {
	catalogRepo CatalogRepository

	mu   sync.Mutex
	view *catalogView
}

func NewSnapshotCache(catalogRepo CatalogRepository) *SnapshotCache {
	return &SnapshotCache{catalogRepo: catalogRepo}
}

func (c *SnapshotCache) get(ctx context.Context) (*catalogView, error) {
	const op = "SnapshotCache.get"

	generation, err := c.catalogRepo.CurrentGeneration(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view != nil && c.view.snapshot.GenerationID == generation {
		return c.view, nil
	}

	snapshot, err := c.catalogRepo.FindAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	c.view = newCatalogView(snapshot)
	return c.view, nil
}
