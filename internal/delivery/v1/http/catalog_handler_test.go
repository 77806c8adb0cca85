package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeCatalogUC struct {
	similarRes *usecase.SimilarItemsRes
	err        error
	record     *domain.CatalogRecord

	lastURLReq     *usecase.RecommendByURLReq
	lastImageReq   *usecase.RecommendByImageReq
	lastSimilarReq *usecase.SimilarProductsReq
}

func (f *fakeCatalogUC) RecommendByImageURL(_ context.Context, req *usecase.RecommendByURLReq) (*usecase.SimilarItemsRes, error) {
	f.lastURLReq = req
	return f.similarRes, f.err
}

func (f *fakeCatalogUC) RecommendByImage(_ context.Context, req *usecase.RecommendByImageReq) (*usecase.SimilarItemsRes, error) {
	f.lastImageReq = req
	return f.similarRes, f.err
}

func (f *fakeCatalogUC) SimilarProducts(_ context.Context, req *usecase.SimilarProductsReq) (*usecase.SimilarItemsRes, error) {
	f.lastSimilarReq = req
	return f.similarRes, f.err
}

func (f *fakeCatalogUC) TagImage(context.Context, *usecase.TagImageReq) (*usecase.TagImageRes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.TagImageRes{GarmentType: "Dress", Tags: []string{"floral", "summer"}}, nil
}

func (f *fakeCatalogUC) GetItem(context.Context, string) (*domain.CatalogRecord, error) {
	return f.record, f.err
}

type fakeIngestionUC struct {
	report *usecase.IngestionReport
	err    error
}

func (f *fakeIngestionUC) RunIngestion(context.Context) (*usecase.IngestionReport, error) {
	return f.report, f.err
}

func newTestRouter(catalog *fakeCatalogUC, ingestion *fakeIngestionUC) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNopLogger()).Init(catalog, ingestion, time.Minute)
	return mux
}

func sampleRecord(productID string) *domain.CatalogRecord {
	original := decimal.RequireFromString("59.90")
	return &domain.CatalogRecord{
		ProductListing: domain.ProductListing{
			ProductID:     productID,
			Name:          "Linen dress",
			CurrentPrice:  decimal.RequireFromString("39.95"),
			OriginalPrice: &original,
			ImageURL:      "https://img/" + productID,
		},
		ID:          "rec-" + productID,
		Brand:       "nakd",
		Embedding:   []float32{1, 0},
		GarmentType: "Dress",
		Tags:        []string{"linen"},
	}
}

func multipartBody(t *testing.T, field string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, "query.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestIngest_ReturnsReport(t *testing.T) {
	ingestion := &fakeIngestionUC{report: &usecase.IngestionReport{
		GenerationID:   "gen-1",
		ItemsProcessed: 2,
		Committed:      true,
		PerFeedCounts:  []usecase.FeedCount{{Feed: "nakd_products.csv", Brand: "nakd", Rows: 3, Records: 2, Failures: 1}},
		RowFailures:    []usecase.RowFailure{{Feed: "nakd_products.csv", RowIndex: 3, ProductID: "p3", Stage: usecase.StageFetch, Reason: "image fetch failed"}},
		Duration:       1500 * time.Millisecond,
	}}
	router := newTestRouter(&fakeCatalogUC{}, ingestion)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/ingest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.ItemsProcessed)
	assert.Equal(t, "gen-1", resp.GenerationID)
	assert.True(t, resp.Committed)
	assert.Equal(t, "Catalog replaced successfully", resp.Message)
	assert.Equal(t, int64(1500), resp.DurationMs)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, 3, resp.Failures[0].Row)
	assert.Equal(t, "fetch", resp.Failures[0].Stage)
	assert.Empty(t, resp.FeedFailures)
}

func TestIngest_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"in progress", e.Wrap("IngestionUseCase.RunIngestion", e.ErrIngestionInProgress), http.StatusConflict, e.ErrIngestionInProgress.Error()},
		{"store down", fmt.Errorf("%w: dial tcp 10.0.0.5:27017", e.ErrStoreUnavailable), http.StatusServiceUnavailable, e.ErrStoreUnavailable.Error()},
		{"unexpected", errors.New("pq: relation catalog_records does not exist"), http.StatusInternalServerError, e.ErrInternalServerError.Error()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeCatalogUC{}, &fakeIngestionUC{err: tc.err})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/ingest", nil))

			assert.Equal(t, tc.code, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.message, resp.Message)
			assert.NotContains(t, resp.Message, "10.0.0.5")
		})
	}
}

func TestRecommendByURL_RoundsSimilarity(t *testing.T) {
	catalog := &fakeCatalogUC{similarRes: usecase.NewSimilarItemsRes("gen-1", []usecase.SimilarItem{
		{Record: sampleRecord("A"), Score: 0.99987},
		{Record: sampleRecord("C"), Score: 0.994112},
	})}
	router := newTestRouter(catalog, &fakeIngestionUC{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/recommendations?imageUrl=https://cdn/q.jpg&limit=2", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn/q.jpg", catalog.lastURLReq.ImageURL)
	assert.Equal(t, 2, catalog.lastURLReq.Limit)

	var resp SimilarItemsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 1.0, resp.Items[0].Similarity)
	assert.Equal(t, 0.994, resp.Items[1].Similarity)
	assert.Equal(t, "A", resp.Items[0].ProductID)
	assert.Equal(t, "39.95", resp.Items[0].CurrentPrice.String())
	assert.Equal(t, "59.9", resp.Items[0].OriginalPrice.String())
}

func TestRecommendByURL_BadLimit(t *testing.T) {
	catalog := &fakeCatalogUC{}
	router := newTestRouter(catalog, &fakeIngestionUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/recommendations?imageUrl=https://cdn/q.jpg&limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrInvalidLimit.Error(), decodeError(t, rec).Message)
	assert.Nil(t, catalog.lastURLReq)
}

func TestRecommendByURL_FetchFailed(t *testing.T) {
	catalog := &fakeCatalogUC{err: fmt.Errorf("%w: status 404", e.ErrFetchFailed)}
	router := newTestRouter(catalog, &fakeIngestionUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/recommendations?imageUrl=https://cdn/q.jpg", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSimilar_NotFound(t *testing.T) {
	catalog := &fakeCatalogUC{err: e.Wrap("CatalogUseCase.SimilarProducts", e.ErrNotFound)}
	router := newTestRouter(catalog, &fakeIngestionUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/similar/missing?limit=3", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "missing", catalog.lastSimilarReq.ProductID)
	assert.Equal(t, 3, catalog.lastSimilarReq.Limit)
}

func TestRecommendByUpload(t *testing.T) {
	catalog := &fakeCatalogUC{similarRes: usecase.NewSimilarItemsRes("gen-1", []usecase.SimilarItem{
		{Record: sampleRecord("A"), Score: 0.5},
	})}
	router := newTestRouter(catalog, &fakeIngestionUC{})

	body, contentType := multipartBody(t, "image", pngHeader, map[string]string{"limit": "7"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/recommendations", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, catalog.lastImageReq)
	assert.Equal(t, 7, catalog.lastImageReq.Limit)
	assert.Equal(t, "image/png", catalog.lastImageReq.Image.MimeType)
	assert.Equal(t, pngHeader, catalog.lastImageReq.Image.Data)
}

func TestRecommendByUpload_RejectsNonImage(t *testing.T) {
	router := newTestRouter(&fakeCatalogUC{}, &fakeIngestionUC{})

	body, contentType := multipartBody(t, "image", []byte("plain text, not a picture"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/recommendations", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestTag_RequiresMultipart(t *testing.T) {
	router := newTestRouter(&fakeCatalogUC{}, &fakeIngestionUC{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/tag", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrExpectedMultipart.Error(), decodeError(t, rec).Message)
}

func TestTag(t *testing.T) {
	router := newTestRouter(&fakeCatalogUC{}, &fakeIngestionUC{})

	body, contentType := multipartBody(t, "image", pngHeader, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/tag", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TagImageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Dress", resp.GarmentType)
	assert.Equal(t, []string{"floral", "summer"}, resp.Tags)
}

func TestGetItem(t *testing.T) {
	router := newTestRouter(&fakeCatalogUC{record: sampleRecord("A")}, &fakeIngestionUC{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/items/rec-A", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()
	assert.NotContains(t, raw, "embedding")

	var resp CatalogItemResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, "rec-A", resp.ID)
	assert.Equal(t, "nakd", resp.Brand)
	assert.Equal(t, []string{}, resp.Colors)
}
