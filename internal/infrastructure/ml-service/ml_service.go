package ml_service

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/jitter"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Методы ML-сервиса. Сообщения — well-known типы protobuf, поэтому сгенерированный клиент не нужен.
const (
	VectorizeImageMethod    = "/ml.v1.MachineLearningService/VectorizeImage"
	ClassifyEmbeddingMethod = "/ml.v1.MachineLearningService/ClassifyEmbedding"
)

// MLService клиент для взаимодействия с внешним ML-сервисом.
// Один экземпляр на процесс, общий для ингестии и запросов.
type MLService struct {
	conn       grpc.ClientConnInterface
	sem        chan struct{}
	maxRetries int
	timeout    time.Duration
	logger     logger.Logger
}

func NewMLService(conn grpc.ClientConnInterface, maxConcurrent int, maxRetries int, timeout time.Duration, logger logger.Logger) *MLService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &MLService{
		conn:       conn,
		sem:        make(chan struct{}, maxConcurrent),
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger,
	}
}

// VectorizeRequest векторизует одно изображение.
func (m *MLService) VectorizeRequest(ctx context.Context, req *usecase.VectorizeReq) (*usecase.VectorizeRes, error) {
	const op = "MLService.VectorizeRequest"

	res := &structpb.Struct{}
	if err := m.invoke(ctx, VectorizeImageMethod, wrapperspb.Bytes(req.Data), res); err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := vectorFromStruct(res)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return usecase.NewVectorizeRes(vector, res.GetFields()["model_version"].GetStringValue()), nil
}

// ClassifyRequest определяет тип одежды и теги по эмбеддингу.
func (m *MLService) ClassifyRequest(ctx context.Context, req *usecase.ClassifyReq) (*usecase.ClassifyRes, error) {
	const op = "MLService.ClassifyRequest"

	values := make([]any, 0, len(req.Vector))
	for _, v := range req.Vector {
		values = append(values, float64(v))
	}

	in, err := structpb.NewStruct(map[string]any{"vector": values})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &structpb.Struct{}
	if err := m.invoke(ctx, ClassifyEmbeddingMethod, in, res); err != nil {
		return nil, e.Wrap(op, err)
	}

	fields := res.GetFields()
	tags := make([]string, 0)
	for _, t := range fields["tags"].GetListValue().GetValues() {
		tags = append(tags, t.GetStringValue())
	}

	return usecase.NewClassifyRes(fields["garment_type"].GetStringValue(), tags), nil
}

// invoke выполняет вызов с ограничением конкурентности и повторами с экспоненциальной задержкой.
// Повторяются только временные ошибки транспорта.
func (m *MLService) invoke(ctx context.Context, method string, in, out any) error {
	const (
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.sem }()

	var err error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		err = m.call(ctx, method, in, out)
		if err == nil {
			return nil
		}

		if !isRetryable(err) || attempt == m.maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(baseJitter, maxJitter, attempt, jitter.DefaultJitter)
		m.logger.Warnf("%s failed, retrying in %v (attempt %d): %v", method, sleepTime, attempt+1, err)
		if err := jitter.Sleep(ctx, sleepTime); err != nil {
			return err
		}
	}

	return err
}

func (m *MLService) call(ctx context.Context, method string, in, out any) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	return m.conn.Invoke(ctx, method, in, out)
}

func isRetryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func vectorFromStruct(res *structpb.Struct) ([]float32, error) {
	values := res.GetFields()["vector"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, e.ErrVectorEmbeddingEmpty
	}

	vector := make([]float32, 0, len(values))
	for i, v := range values {
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("vector[%d] is not a number", i)
		}
		vector = append(vector, float32(num.NumberValue))
	}

	return vector, nil
}
