package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
)

// CatalogRepo держит текущее поколение в памяти процесса. Замена — подмена указателя под мьютексом.
type CatalogRepo struct {
	mu      sync.RWMutex
	current *domain.CatalogGeneration
}

func NewCatalogRepo() *CatalogRepo {
	return &CatalogRepo{}
}

func (c *CatalogRepo) ReplaceAll(_ context.Context, gen *domain.CatalogGeneration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = gen

	return nil
}

func (c *CatalogRepo) FindAll(context.Context) (*domain.CatalogSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return &domain.CatalogSnapshot{Records: []*domain.CatalogRecord{}}, nil
	}

	records := make([]*domain.CatalogRecord, len(c.current.Records))
	copy(records, c.current.Records)

	return &domain.CatalogSnapshot{GenerationID: c.current.ID, Records: records}, nil
}

func (c *CatalogRepo) FindByID(_ context.Context, id string) (*domain.CatalogRecord, error) {
	return c.find(id, func(r *domain.CatalogRecord) bool { return r.ID == id })
}

func (c *CatalogRepo) FindByProductID(_ context.Context, productID string) (*domain.CatalogRecord, error) {
	return c.find(productID, func(r *domain.CatalogRecord) bool { return r.ProductID == productID })
}

func (c *CatalogRepo) CurrentGeneration(context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return "", nil
	}

	return c.current.ID, nil
}

func (c *CatalogRepo) find(key string, match func(*domain.CatalogRecord) bool) (*domain.CatalogRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current != nil {
		for _, r := range c.current.Records {
			if match(r) {
				return r, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", e.ErrNotFound, key)
}
