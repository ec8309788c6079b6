package rpc

import (
	"context"
	"errors"
	"strings"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/pkg/idempotency"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// SaleRecorder persists a checkout. Business refusals come back as
// *domain.RejectedError.
type SaleRecorder interface {
	Record(ctx context.Context, payload domain.CheckoutPayload, idempotencyKey string) (domain.Bill, error)
}

type TransactionServer struct {
	recorder SaleRecorder
	logger   *zap.Logger
}

func NewTransactionServer(recorder SaleRecorder, logger *zap.Logger) *TransactionServer {
	return &TransactionServer{recorder: recorder, logger: logger}
}

func (h *TransactionServer) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > idempotency.MaxKeyLength {
		return nil, status.Error(codes.InvalidArgument, "idempotency_key is too long")
	}

	bill, err := h.recorder.Record(ctx, req.Payload, key)
	if err != nil {
		var rejected *domain.RejectedError
		if errors.As(err, &rejected) {
			return nil, status.Error(codes.FailedPrecondition, rejected.Reason)
		}
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		h.logger.Error("record sale failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to record sale")
	}

	return &SubmitResponse{Result: bill.Result()}, nil
}

// NewServer builds a traced gRPC server carrying the transaction service
// and the standard health service.
func NewServer(recorder SaleRecorder, logger *zap.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	srv := grpc.NewServer(opts...)
	RegisterTransactionServiceServer(srv, NewTransactionServer(recorder, logger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)
	return srv, healthSrv
}
