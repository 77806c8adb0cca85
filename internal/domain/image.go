package domain

// Image — проверенное изображение: байты и параметры, прочитанные из заголовка формата.
type Image struct {
	Data      []byte
	MimeType  string // Example: "image/jpeg"
	Width     int
	Height    int
	SourceURL string // пусто для загруженных файлов
}

func NewImage(data []byte, mimeType string, width, height int, sourceURL string) *Image {
	return &Image{
		Data:      data,
		MimeType:  mimeType,
		Width:     width,
		Height:    height,
		SourceURL: sourceURL,
	}
}

// StoredImage описывает архивную копию изображения в S3
type StoredImage struct {
	Bucket    string
	ObjectKey string
	// Передайте значение -1 в Size, если размер потока неизвестен
	Size        int64
	ContentType string
}

func NewStoredImage(bucket, objectKey string, size int64, contentType string) *StoredImage {
	return &StoredImage{
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Size:        size,
		ContentType: contentType,
	}
}
