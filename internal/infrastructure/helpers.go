package infrastructure

import (
	"mime"
	"strings"

	"github.com/DRSN-tech/style-catalog/pkg/e"
)

// GetExtensionFromMIME возвращает расширение архивного файла по Content-Type изображения.
// Параметры типа и регистр игнорируются. Для прочих типов — "bin" и e.ErrUnsupportedMediaType.
func GetExtensionFromMIME(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}
