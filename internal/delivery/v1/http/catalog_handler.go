package http

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	catalogUsecase   usecase.CatalogUC
	ingestionUsecase usecase.IngestionUC
	ingestTimeout    time.Duration
	logger           logger.Logger
}

func NewCatalogHandler(
	catalogUsecase usecase.CatalogUC,
	ingestionUsecase usecase.IngestionUC,
	ingestTimeout time.Duration,
	logger logger.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		catalogUsecase:   catalogUsecase,
		ingestionUsecase: ingestionUsecase,
		ingestTimeout:    ingestTimeout,
		logger:           logger,
	}
}

// ingest
//
//	@Summary		Пересборка каталога
//	@Description	Читает все фиды, строит новое поколение каталога и атомарно заменяет текущее
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	IngestResponse
//	@Failure		409	{object}	ErrorResponse	"Ингестия уже идёт"
//	@Failure		503	{object}	ErrorResponse	"Хранилище недоступно"
//	@Failure		500	{object}	ErrorResponse
//	@Router			/catalog/ingest [post]
func (h *CatalogHandler) ingest(w http.ResponseWriter, r *http.Request) {
	if h.ingestTimeout > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Now().Add(h.ingestTimeout)); err != nil {
			h.logger.Debugf("cannot extend write deadline for ingest: %v", err)
		}
	}

	report, err := h.ingestionUsecase.RunIngestion(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Infof("ingestion finished: generation=%s items=%d committed=%t",
		report.GenerationID, report.ItemsProcessed, report.Committed)

	WriteSuccess(w, http.StatusOK, toIngestResponse(report))
}

// recommendByURL
//
//	@Summary		Похожие товары по ссылке на изображение
//	@Tags			catalog
//	@Produce		json
//	@Param			imageUrl	query		string	true	"Абсолютный http(s) URL изображения"
//	@Param			limit		query		int		false	"Размер выдачи (1..50, по умолчанию 5)"
//	@Success		200			{object}	SimilarItemsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse	"Не удалось скачать изображение"
//	@Router			/catalog/recommendations [get]
func (h *CatalogHandler) recommendByURL(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.catalogUsecase.RecommendByImageURL(r.Context(), &usecase.RecommendByURLReq{
		ImageURL: r.URL.Query().Get("imageUrl"),
		Limit:    limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSimilarItemsResponse(res))
}

// recommendByUpload
//
//	@Summary		Похожие товары по загруженному изображению
//	@Tags			catalog
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Изображение"
//	@Param			limit	formData	int		false	"Размер выдачи (1..50, по умолчанию 5)"
//	@Success		200		{object}	SimilarItemsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		415		{object}	ErrorResponse
//	@Router			/catalog/recommendations [post]
func (h *CatalogHandler) recommendByUpload(w http.ResponseWriter, r *http.Request) {
	image, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	limit, err := parseLimit(r.FormValue("limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.catalogUsecase.RecommendByImage(r.Context(), &usecase.RecommendByImageReq{
		Image: *image,
		Limit: limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSimilarItemsResponse(res))
}

// similar
//
//	@Summary		Похожие товары на товар каталога
//	@Tags			catalog
//	@Produce		json
//	@Param			productId	path		string	true	"product_id или id записи"
//	@Param			limit		query		int		false	"Размер выдачи (1..50, по умолчанию 5)"
//	@Success		200			{object}	SimilarItemsResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/catalog/similar/{productId} [get]
func (h *CatalogHandler) similar(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.catalogUsecase.SimilarProducts(r.Context(), &usecase.SimilarProductsReq{
		ProductID: chi.URLParam(r, "productId"),
		Limit:     limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSimilarItemsResponse(res))
}

// tag
//
//	@Summary		Тип одежды и теги изображения
//	@Description	Ничего не сохраняет в каталог
//	@Tags			catalog
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Изображение"
//	@Success		200		{object}	TagImageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/catalog/tag [post]
func (h *CatalogHandler) tag(w http.ResponseWriter, r *http.Request) {
	image, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.catalogUsecase.TagImage(r.Context(), &usecase.TagImageReq{Image: *image})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &TagImageResponse{GarmentType: res.GarmentType, Tags: nonNil(res.Tags)})
}

// getItem
//
//	@Summary	Позиция текущего поколения каталога
//	@Tags		catalog
//	@Produce	json
//	@Param		id	path		string	true	"id записи или product_id"
//	@Success	200	{object}	CatalogItemResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/catalog/items/{id} [get]
func (h *CatalogHandler) getItem(w http.ResponseWriter, r *http.Request) {
	record, err := h.catalogUsecase.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toCatalogItemResponse(record))
}

func (h *CatalogHandler) readUpload(w http.ResponseWriter, r *http.Request) (*usecase.ProductImage, bool) {
	const (
		maxTotalRequestSize = 20 << 20
		maxMemory           = 16 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	image, err := parseImage(r.MultipartForm.File["image"])
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	return image, true
}

// fail пишет ответ с ошибкой. Детали 5xx остаются в логах.
func (h *CatalogHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		h.logger.Errorf(err, "%s %s: %d", r.Method, r.URL.Path, code)
	} else {
		h.logger.Warnf("%s %s: %d %v", r.Method, r.URL.Path, code, err)
	}

	WriteError(w, err)
}
