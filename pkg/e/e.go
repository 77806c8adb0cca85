package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки хранилища каталога
	ErrNotFound         = fmt.Errorf("not found")
	ErrStoreUnavailable = fmt.Errorf("catalog store unavailable")
	ErrEmptyGeneration  = fmt.Errorf("catalog generation is empty")

	// Построчные ошибки ингестии
	ErrFetchFailed          = fmt.Errorf("image fetch failed")
	ErrMalformedImage       = fmt.Errorf("malformed image payload")
	ErrEmbeddingFailed      = fmt.Errorf("embedding failed")
	ErrClassificationFailed = fmt.Errorf("classification failed")
	ErrMalformedRow         = fmt.Errorf("malformed feed row")
	ErrDuplicateProduct     = fmt.Errorf("duplicate product_id")

	// Ошибки уровня фида и прогона
	ErrFeedRead            = fmt.Errorf("feed read failed")
	ErrAllFeedsFailed      = fmt.Errorf("all feeds failed to read")
	ErrIngestionInProgress = fmt.Errorf("ingestion already in progress")

	// Внутренние ошибки с векторами
	ErrVectorEmbeddingEmpty = fmt.Errorf("vector embedding is empty")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrInvalidLimit         = fmt.Errorf("invalid limit")
	ErrImageURLRequired     = fmt.Errorf("image url is required")
	ErrInvalidImageURL      = fmt.Errorf("image url must be an absolute http(s) url")
	ErrProductIDRequired    = fmt.Errorf("product id is required")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrNoImages             = fmt.Errorf("no images provided")
	ErrTooManyImages        = fmt.Errorf("too many images provided")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
