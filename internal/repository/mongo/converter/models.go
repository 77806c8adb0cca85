package converter

import "time"

// CatalogItemDocument — документ коллекции catalog_items.
// Цены хранятся строками, чтобы не терять точность decimal.
type CatalogItemDocument struct {
	ID             string    `bson:"_id"`
	GenerationID   string    `bson:"generation_id"`
	Seq            int       `bson:"seq"`
	ProductID      string    `bson:"product_id"`
	Brand          string    `bson:"brand"`
	Name           string    `bson:"name"`
	CurrentPrice   string    `bson:"current_price"`
	OriginalPrice  *string   `bson:"original_price,omitempty"`
	Discount       string    `bson:"discount,omitempty"`
	AvailableSizes []string  `bson:"available_sizes,omitempty"`
	Colors         []string  `bson:"colors,omitempty"`
	Availability   string    `bson:"availability,omitempty"`
	URL            string    `bson:"url,omitempty"`
	ImageURL       string    `bson:"image_url"`
	ImageKey       string    `bson:"image_key,omitempty"`
	Embedding      []float32 `bson:"embedding"`
	ModelVersion   string    `bson:"model_version,omitempty"`
	GarmentType    string    `bson:"garment_type"`
	Tags           []string  `bson:"tags"`
}

// CatalogStateDocument — указатель на текущее поколение.
type CatalogStateDocument struct {
	ID                   string    `bson:"_id"`
	GenerationID         string    `bson:"generation_id"`
	PreviousGenerationID string    `bson:"previous_generation_id,omitempty"`
	ItemCount            int       `bson:"item_count"`
	UpdatedAt            time.Time `bson:"updated_at"`
}
