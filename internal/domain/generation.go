package domain

import (
	"time"

	"github.com/google/uuid"
)

// CatalogGeneration — полный согласованный снимок каталога, созданный одним прогоном ингестии.
type CatalogGeneration struct {
	ID        string
	CreatedAt time.Time
	Records   []*CatalogRecord
}

// NewCatalogGeneration присваивает записям идентификатор поколения и порядковые номера.
// Записи копируются, исходные не изменяются.
func NewCatalogGeneration(records []*CatalogRecord) *CatalogGeneration {
	gen := &CatalogGeneration{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Records:   make([]*CatalogRecord, 0, len(records)),
	}

	for i, r := range records {
		cp := *r
		cp.GenerationID = gen.ID
		cp.Seq = i
		gen.Records = append(gen.Records, &cp)
	}

	return gen
}

// CatalogSnapshot — текущее поколение каталога в порядке вставки.
type CatalogSnapshot struct {
	GenerationID string
	Records      []*CatalogRecord
}
