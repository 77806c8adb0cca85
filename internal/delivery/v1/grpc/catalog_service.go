package grpc

import (
	"context"

	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const catalogServiceName = "catalog.v1.CatalogService"

// CatalogServiceServer — серверная часть catalog.v1.CatalogService.
// Сообщения — structpb.Struct, поэтому дескриптор описан вручную.
type CatalogServiceServer interface {
	SimilarProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Recommend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type CatalogService struct {
	catalogUC usecase.CatalogUC
	logger    logger.Logger
}

func NewCatalogService(catalogUC usecase.CatalogUC, logger logger.Logger) *CatalogService {
	return &CatalogService{catalogUC: catalogUC, logger: logger}
}

// SimilarProducts принимает {product_id, limit}.
func (g *CatalogService) SimilarProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.SimilarProducts"

	limit, err := limitFrom(in)
	if err != nil {
		return nil, g.fail(op, err)
	}

	res, err := g.catalogUC.SimilarProducts(ctx, &usecase.SimilarProductsReq{
		ProductID: in.GetFields()["product_id"].GetStringValue(),
		Limit:     limit,
	})
	if err != nil {
		return nil, g.fail(op, err)
	}

	out, err := toStruct(res)
	if err != nil {
		return nil, g.fail(op, err)
	}

	return out, nil
}

// Recommend принимает {image_url, limit}.
func (g *CatalogService) Recommend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.Recommend"

	limit, err := limitFrom(in)
	if err != nil {
		return nil, g.fail(op, err)
	}

	res, err := g.catalogUC.RecommendByImageURL(ctx, &usecase.RecommendByURLReq{
		ImageURL: in.GetFields()["image_url"].GetStringValue(),
		Limit:    limit,
	})
	if err != nil {
		return nil, g.fail(op, err)
	}

	out, err := toStruct(res)
	if err != nil {
		return nil, g.fail(op, err)
	}

	return out, nil
}

func (g *CatalogService) fail(op string, err error) error {
	g.logger.Errorf(e.Wrap(op, err), "%s", op)
	return GRPCErrorResponse(e.Wrap(op, err))
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SimilarProducts",
			Handler:    similarProductsHandler,
		},
		{
			MethodName: "Recommend",
			Handler:    recommendHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

func similarProductsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServiceServer).SimilarProducts(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + catalogServiceName + "/SimilarProducts",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServiceServer).SimilarProducts(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func recommendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServiceServer).Recommend(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + catalogServiceName + "/Recommend",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServiceServer).Recommend(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}
