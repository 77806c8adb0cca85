package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// badRequestErrs — ошибки клиента, текст которых можно вернуть как есть.
var badRequestErrs = []error{
	e.ErrStatusBadRequest,
	e.ErrInvalidLimit,
	e.ErrImageURLRequired,
	e.ErrInvalidImageURL,
	e.ErrProductIDRequired,
	e.ErrExpectedMultipart,
	e.ErrNoImages,
	e.ErrTooManyImages,
	e.ErrMalformedImage,
}

func ToHTTPResponse(err error) (int, string) {
	for _, target := range badRequestErrs {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}

	switch {
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, e.ErrNotFound.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, e.ErrUnsupportedMediaType.Error()
	case errors.Is(err, e.ErrIngestionInProgress):
		return http.StatusConflict, e.ErrIngestionInProgress.Error()
	case errors.Is(err, e.ErrFetchFailed):
		return http.StatusBadGateway, e.ErrFetchFailed.Error()
	case errors.Is(err, e.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, e.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseLimit читает ?limit=. Пустое значение — 0, usecase подставит значение по умолчанию.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, e.Wrap(raw, e.ErrInvalidLimit)
	}

	return limit, nil
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), e.ErrStatusBadRequest)
	}

	return nil
}

// parseImage достаёт единственный файл из поля image.
func parseImage(files []*multipart.FileHeader) (*usecase.ProductImage, error) {
	const maxFileSize = 15 << 20

	if len(files) == 0 {
		return nil, e.ErrNoImages
	}
	if len(files) > 1 {
		return nil, e.ErrTooManyImages
	}

	fh := files[0]
	data, mimeType, err := readFile(fh, maxFileSize)
	if err != nil {
		return nil, err
	}

	return usecase.NewProductImage(data, mimeType, int64(len(data)), fh.Filename), nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if fh.Size > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", e.Wrap(fh.Filename+": "+mimeType, e.ErrUnsupportedMediaType)
	}

	return data, mimeType, nil
}
