package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	_ "golang.org/x/image/webp"
)

// RemoteFetcher скачивает изображения товаров по URL.
// Повторов нет: решение о повторе принимает вызывающий.
type RemoteFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewRemoteFetcher(cfg *cfg.FetcherCfg) *RemoteFetcher {
	return &RemoteFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// Fetch скачивает и проверяет изображение. Все ошибки оборачивают e.ErrFetchFailed.
func (f *RemoteFetcher) Fetch(ctx context.Context, url string) (*domain.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %s returned status %d", e.ErrFetchFailed, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", e.ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %w: body exceeds %d bytes", e.ErrFetchFailed, e.ErrFileTooLarge, f.maxBytes)
	}

	img, err := f.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", e.ErrFetchFailed, err)
	}
	img.SourceURL = url

	return img, nil
}

// Decode проверяет, что байты — изображение поддерживаемого формата (jpeg, png, gif, webp).
// Ошибки оборачивают e.ErrMalformedImage.
func (f *RemoteFetcher) Decode(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", e.ErrMalformedImage)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, e.ErrFileTooLarge
	}

	// Декодируем целиком: заголовок у обрезанного файла бывает валидным.
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrMalformedImage, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: zero-sized image", e.ErrMalformedImage)
	}

	return domain.NewImage(data, "image/"+format, bounds.Dx(), bounds.Dy(), ""), nil
}
