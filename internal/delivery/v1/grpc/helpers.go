package grpc

import (
	"errors"
	"math"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var invalidArgumentErrs = []error{
	e.ErrInvalidLimit,
	e.ErrImageURLRequired,
	e.ErrInvalidImageURL,
	e.ErrProductIDRequired,
	e.ErrMalformedImage,
	e.ErrUnsupportedMediaType,
	e.ErrStatusBadRequest,
}

func GRPCErrorResponse(err error) error {
	for _, target := range invalidArgumentErrs {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, target.Error())
		}
	}

	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, e.ErrNotFound.Error())
	default:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	}
}

// limitFrom читает необязательное числовое поле limit.
func limitFrom(in *structpb.Struct) (int, error) {
	v, ok := in.GetFields()["limit"]
	if !ok {
		return 0, nil
	}

	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || num.NumberValue != math.Trunc(num.NumberValue) {
		return 0, e.ErrInvalidLimit
	}

	return int(num.NumberValue), nil
}

func toStruct(res *usecase.SimilarItemsRes) (*structpb.Struct, error) {
	items := make([]any, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, itemFields(it.Record, it.Score))
	}

	return structpb.NewStruct(map[string]any{
		"generation_id": res.GenerationID,
		"items":         items,
	})
}

func itemFields(r *domain.CatalogRecord, score float64) map[string]any {
	tags := make([]any, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, t)
	}

	fields := map[string]any{
		"id":            r.ID,
		"product_id":    r.ProductID,
		"name":          r.Name,
		"brand":         r.Brand,
		"current_price": r.CurrentPrice.String(),
		"url":           r.URL,
		"image_url":     r.ImageURL,
		"garment_type":  r.GarmentType,
		"tags":          tags,
		"similarity":    math.Round(score*1000) / 1000,
	}
	if r.OriginalPrice != nil {
		fields["original_price"] = r.OriginalPrice.String()
	}

	return fields
}
