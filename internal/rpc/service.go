// Package rpc exposes the transaction service over gRPC.
package rpc

import (
	"context"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"google.golang.org/grpc"
)

const (
	ServiceName  = "billing.v1.TransactionService"
	submitMethod = "/" + ServiceName + "/Submit"
)

type SubmitRequest struct {
	IdempotencyKey string                 `json:"idempotency_key"`
	Payload        domain.CheckoutPayload `json:"payload"`
}

type SubmitResponse struct {
	Result domain.TransactionResult `json:"result"`
}

type TransactionServiceServer interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error)
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: submitMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransactionServiceServer).Submit(ctx, req.(*SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var TransactionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransactionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "billing/v1/transaction",
}

func RegisterTransactionServiceServer(s grpc.ServiceRegistrar, srv TransactionServiceServer) {
	s.RegisterService(&TransactionServiceDesc, srv)
}
