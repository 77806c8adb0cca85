package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/jitter"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	colProductID      = "product_id"
	colName           = "name"
	colCurrentPrice   = "current_price"
	colOriginalPrice  = "original_price"
	colDiscount       = "discount"
	colAvailableSizes = "available_sizes"
	colColors         = "colors"
	colAvailability   = "availability"
	colURL            = "url"
	colImageURL       = "image_url"
)

var requiredColumns = []string{colProductID, colImageURL, colCurrentPrice}

// ObjectGetter читает объект из S3-совместимого хранилища.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// CSVReader читает фиды вендоров в формате CSV с заголовком.
// Расположение фида: путь к файлу, file://путь или s3://bucket/key.
type CSVReader struct {
	objects  ObjectGetter // nil, если MinIO не настроен
	attempts int
	logger   logger.Logger
}

func NewCSVReader(objects ObjectGetter, attempts int, logger logger.Logger) *CSVReader {
	if attempts <= 0 {
		attempts = 1
	}

	return &CSVReader{
		objects:  objects,
		attempts: attempts,
		logger:   logger,
	}
}

// Read читает фид целиком. Ошибка уровня фида (нет файла, нет обязательной колонки,
// синтаксис CSV) оборачивает e.ErrFeedRead. Неразборчивая строка не ошибка фида:
// она возвращается с заполненным FeedRow.Err.
func (r *CSVReader) Read(ctx context.Context, feed domain.Feed) (*domain.FeedData, error) {
	const op = "CSVReader.Read"

	rc, err := r.open(ctx, feed.Location)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrFeedRead, err))
	}
	defer rc.Close()

	rows, err := parse(rc)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s: %v", e.ErrFeedRead, feed.Name, err))
	}

	return &domain.FeedData{Feed: feed, Rows: rows}, nil
}

func (r *CSVReader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if bucket, key, ok := parseS3Location(location); ok {
		return r.openObject(ctx, bucket, key)
	}

	return os.Open(strings.TrimPrefix(location, "file://"))
}

// openObject читает объект фида с повторами и экспоненциальной задержкой.
func (r *CSVReader) openObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	const (
		baseBackoff = 500 * time.Millisecond
		maxBackoff  = 10 * time.Second
	)

	if r.objects == nil {
		return nil, fmt.Errorf("s3://%s/%s: object storage is not configured", bucket, key)
	}

	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		rc, err := r.objects.GetObject(ctx, bucket, key)
		if err == nil {
			return rc, nil
		}
		lastErr = err

		if attempt == r.attempts-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(baseBackoff, maxBackoff, attempt, jitter.DefaultJitter)
		r.logger.Warnf("feed s3://%s/%s read failed, retrying in %v (attempt %d): %v", bucket, key, sleepTime, attempt+1, err)

		if err := jitter.Sleep(ctx, sleepTime); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", r.attempts, lastErr)
}

func parseS3Location(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}

	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}

	return bucket, key, true
}

func parse(src io.Reader) ([]domain.FeedRow, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}

	rows := make([]domain.FeedRow, 0)
	for index := 1; ; index++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, csv.ErrFieldCount) {
			return nil, err
		}

		row := domain.FeedRow{Index: index}
		if err != nil {
			row.Err = fmt.Errorf("%w: %v", e.ErrMalformedRow, err)
		} else {
			row.Listing, row.Err = parseRow(rec, cols)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRow(rec []string, cols map[string]int) (domain.ProductListing, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return cleanValue(rec[i])
	}

	listing := domain.ProductListing{
		ProductID:      get(colProductID),
		Name:           get(colName),
		Discount:       get(colDiscount),
		AvailableSizes: splitList(get(colAvailableSizes)),
		Colors:         splitList(get(colColors)),
		Availability:   get(colAvailability),
		URL:            get(colURL),
		ImageURL:       get(colImageURL),
	}

	if listing.ProductID == "" {
		return listing, fmt.Errorf("%w: empty %s", e.ErrMalformedRow, colProductID)
	}
	if listing.ImageURL == "" {
		return listing, fmt.Errorf("%w: empty %s", e.ErrMalformedRow, colImageURL)
	}

	price, err := parsePrice(get(colCurrentPrice))
	if err != nil {
		return listing, fmt.Errorf("%w: %s: %v", e.ErrMalformedRow, colCurrentPrice, err)
	}
	listing.CurrentPrice = price

	if raw := get(colOriginalPrice); raw != "" {
		if original, err := parsePrice(raw); err == nil {
			listing.OriginalPrice = &original
		}
	}

	return listing, nil
}

// cleanValue убирает пробелы и пустые значения, которые выгрузки пишут как NaN.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "null", "none":
		return ""
	}
	return v
}

// parsePrice разбирает цену вида "$1,299.00" или "49.99 USD".
func parsePrice(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return decimal.Decimal{}, fmt.Errorf("no digits in %q", raw)
	}

	price, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %s", price)
	}

	return price, nil
}

// splitList разбирает списки "S, M, L", "S|M" и "['S', 'M']".
func splitList(raw string) []string {
	raw = strings.Trim(raw, "[]")
	if raw == "" {
		return []string{}
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(strings.TrimSpace(p), `'"`); p != "" {
			out = append(out, p)
		}
	}

	return out
}
