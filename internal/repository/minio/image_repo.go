package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ImageRepo реализует репозиторий изображений поверх MinIO.
// Он же отдаёт объекты фидов для s3:// расположений.
type ImageRepo struct {
	mc     *minio.Client
	bucket string // бакет архива изображений
}

func NewImageRepo(mc *minio.Client, bucket string) *ImageRepo {
	return &ImageRepo{
		mc:     mc,
		bucket: bucket,
	}
}

// Upload загружает изображение в MinIO и возвращает ключ объекта.
func (i *ImageRepo) Upload(ctx context.Context, image *domain.StoredImage, data []byte) (string, error) {
	reader := bytes.NewReader(data)

	info, err := i.mc.PutObject(ctx, image.Bucket, image.ObjectKey, reader, image.Size, minio.PutObjectOptions{
		ContentType: image.ContentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Delete удаляет объект из бакета архива по указанному ключу.
func (i *ImageRepo) Delete(ctx context.Context, key string) error {
	if err := i.mc.RemoveObject(ctx, i.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetObject открывает объект на чтение. Ошибка доступа проявляется при первом Stat.
func (i *ImageRepo) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := i.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return obj, nil
}
