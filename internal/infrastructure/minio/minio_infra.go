package minio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/infrastructure"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/jitter"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/google/uuid"
)

const (
	cleanupAttempts = 3
	cleanupBackoff  = time.Second
	cleanupMaxDelay = 10 * time.Second
)

// MinioInfrastructure архивирует исходные изображения каталога в MinIO
// и удаляет архив прогона, который не удалось зафиксировать.
type MinioInfrastructure struct {
	minioRepo      usecase.ImageRepository
	bucket         string
	cleanupTimeout time.Duration
	logger         logger.Logger
	shutdownCtx    context.Context
	wg             sync.WaitGroup
}

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, bucket string, cleanupTimeout time.Duration, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:      minioRepo,
		bucket:         bucket,
		cleanupTimeout: cleanupTimeout,
		logger:         logger,
		shutdownCtx:    shutdownCtx,
	}
}

// ArchiveImage сохраняет изображение под ключом <brand>/<product_id>-<uuid>.<ext> и возвращает ключ.
func (m *MinioInfrastructure) ArchiveImage(ctx context.Context, req *usecase.ArchiveImageReq) (string, error) {
	const op = "MinioInfrastructure.ArchiveImage"

	ext, err := infrastructure.GetExtensionFromMIME(req.Image.MimeType)
	if err != nil {
		return "", e.Wrap(op, fmt.Errorf("invalid mime type %s for %s: %w", req.Image.MimeType, req.ProductID, err))
	}

	objKey := fmt.Sprintf("%s/%s-%s.%s", sanitizeKeyPart(req.Brand), sanitizeKeyPart(req.ProductID), uuid.NewString(), ext)
	image := domain.NewStoredImage(m.bucket, objKey, int64(len(req.Image.Data)), req.Image.MimeType)

	key, err := m.minioRepo.Upload(ctx, image, req.Image.Data)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return key, nil
}

// CleanupImages запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupUploadedKeys(keys)
}

// cleanupUploadedKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *MinioInfrastructure) cleanupUploadedKeys(keys []string) {
	defer m.wg.Done() // сигнализируем завершение компенсации
	const op = "MinioInfrastructure.cleanupUploadedKeys"
	m.logger.Infof("%s: cleaning up %d archived images", op, len(keys))

	ctx, cancel := context.WithTimeout(m.shutdownCtx, m.cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := m.minioRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if ctx.Err() != nil {
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%v", op, key)
				break
			}

			select {
			case <-time.After(jitter.ExponentialBackoff(cleanupBackoff, cleanupMaxDelay, attempt, jitter.DefaultJitter)):
			case <-ctx.Done():
				m.logger.Warnf("cleanup interrupted by shutdown during backoff, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}

func sanitizeKeyPart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(s)
}
