package http

import (
	"math"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/shopspring/decimal"
)

// CatalogItemResponse — позиция каталога в ответах API. Эмбеддинг не отдаётся.
type CatalogItemResponse struct {
	ID             string           `json:"id"`
	ProductID      string           `json:"productId"`
	Name           string           `json:"name"`
	Brand          string           `json:"brand"`
	CurrentPrice   decimal.Decimal  `json:"currentPrice" swaggertype:"string"`
	OriginalPrice  *decimal.Decimal `json:"originalPrice,omitempty" swaggertype:"string"`
	Discount       string           `json:"discount,omitempty"`
	AvailableSizes []string         `json:"availableSizes"`
	Colors         []string         `json:"colors"`
	Availability   string           `json:"availability,omitempty"`
	URL            string           `json:"url"`
	ImageURL       string           `json:"imageUrl"`
	ImageKey       string           `json:"imageKey,omitempty"`
	GarmentType    string           `json:"garmentType"`
	Tags           []string         `json:"tags"`
}

type SimilarItemResponse struct {
	CatalogItemResponse
	Similarity float64 `json:"similarity"`
}

type SimilarItemsResponse struct {
	GenerationID string                `json:"generationId"`
	Items        []SimilarItemResponse `json:"items"`
}

type TagImageResponse struct {
	GarmentType string   `json:"garmentType"`
	Tags        []string `json:"tags"`
}

type FeedCountResponse struct {
	Feed     string `json:"feed"`
	Brand    string `json:"brand"`
	Rows     int    `json:"rows"`
	Records  int    `json:"records"`
	Failures int    `json:"failures"`
}

type RowFailureResponse struct {
	Feed      string `json:"feed"`
	Row       int    `json:"row"`
	ProductID string `json:"productId,omitempty"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

type FeedFailureResponse struct {
	Feed   string `json:"feed"`
	Reason string `json:"reason"`
}

type IngestResponse struct {
	ItemsProcessed int                   `json:"itemsProcessed"`
	Message        string                `json:"message"`
	GenerationID   string                `json:"generationId,omitempty"`
	Committed      bool                  `json:"committed"`
	PerFeedCounts  []FeedCountResponse   `json:"perFeedCounts"`
	Failures       []RowFailureResponse  `json:"failures"`
	FeedFailures   []FeedFailureResponse `json:"feedFailures"`
	DurationMs     int64                 `json:"durationMs"`
}

// roundScore округляет близость до трёх знаков для ответа.
func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

func toCatalogItemResponse(r *domain.CatalogRecord) CatalogItemResponse {
	return CatalogItemResponse{
		ID:             r.ID,
		ProductID:      r.ProductID,
		Name:           r.Name,
		Brand:          r.Brand,
		CurrentPrice:   r.CurrentPrice,
		OriginalPrice:  r.OriginalPrice,
		Discount:       r.Discount,
		AvailableSizes: nonNil(r.AvailableSizes),
		Colors:         nonNil(r.Colors),
		Availability:   r.Availability,
		URL:            r.URL,
		ImageURL:       r.ImageURL,
		ImageKey:       r.ImageKey,
		GarmentType:    r.GarmentType,
		Tags:           nonNil(r.Tags),
	}
}

func toSimilarItemsResponse(res *usecase.SimilarItemsRes) *SimilarItemsResponse {
	items := make([]SimilarItemResponse, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, SimilarItemResponse{
			CatalogItemResponse: toCatalogItemResponse(it.Record),
			Similarity:          roundScore(it.Score),
		})
	}

	return &SimilarItemsResponse{GenerationID: res.GenerationID, Items: items}
}

func toIngestResponse(report *usecase.IngestionReport) *IngestResponse {
	counts := make([]FeedCountResponse, 0, len(report.PerFeedCounts))
	for _, c := range report.PerFeedCounts {
		counts = append(counts, FeedCountResponse(c))
	}

	failures := make([]RowFailureResponse, 0, len(report.RowFailures))
	for _, f := range report.RowFailures {
		failures = append(failures, RowFailureResponse{
			Feed:      f.Feed,
			Row:       f.RowIndex,
			ProductID: f.ProductID,
			Stage:     f.Stage,
			Reason:    f.Reason,
		})
	}

	feedFailures := make([]FeedFailureResponse, 0, len(report.FeedFailures))
	for _, f := range report.FeedFailures {
		feedFailures = append(feedFailures, FeedFailureResponse(f))
	}

	return &IngestResponse{
		ItemsProcessed: report.ItemsProcessed,
		Message:        report.Message(),
		GenerationID:   report.GenerationID,
		Committed:      report.Committed,
		PerFeedCounts:  counts,
		Failures:       failures,
		FeedFailures:   feedFailures,
		DurationMs:     report.Duration.Milliseconds(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
