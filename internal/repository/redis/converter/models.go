package converter

// RecommendationRedisModel — элемент закэшированной выдачи. Эмбеддинг не хранится.
type RecommendationRedisModel struct {
	RecordID       string   `json:"record_id"`
	GenerationID   string   `json:"generation_id"`
	Seq            int      `json:"seq"`
	ProductID      string   `json:"product_id"`
	Brand          string   `json:"brand"`
	Name           string   `json:"name"`
	CurrentPrice   string   `json:"current_price"`
	OriginalPrice  *string  `json:"original_price,omitempty"`
	Discount       string   `json:"discount,omitempty"`
	AvailableSizes []string `json:"available_sizes,omitempty"`
	Colors         []string `json:"colors,omitempty"`
	Availability   string   `json:"availability,omitempty"`
	URL            string   `json:"url,omitempty"`
	ImageURL       string   `json:"image_url"`
	ImageKey       string   `json:"image_key,omitempty"`
	ModelVersion   string   `json:"model_version,omitempty"`
	GarmentType    string   `json:"garment_type"`
	Tags           []string `json:"tags"`
	Score          float64  `json:"score"`
}
