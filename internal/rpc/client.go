package rpc

import (
	"context"
	"fmt"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// TransactionClient submits checkouts over gRPC.
type TransactionClient struct {
	conn grpc.ClientConnInterface
}

func NewTransactionClient(conn grpc.ClientConnInterface) *TransactionClient {
	return &TransactionClient{conn: conn}
}

// Dial opens an insecure, traced connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to transaction service: %w", err)
	}
	return conn, nil
}

func (c *TransactionClient) Submit(ctx context.Context, payload domain.CheckoutPayload, idempotencyKey string) (*domain.TransactionResult, error) {
	req := &SubmitRequest{IdempotencyKey: idempotencyKey, Payload: payload}
	out := new(SubmitResponse)
	if err := c.conn.Invoke(ctx, submitMethod, req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, mapError(err)
	}
	if out.Result.TransactionID == "" {
		return nil, fmt.Errorf("%w: response has no transaction id", domain.ErrTransport)
	}
	return &out.Result, nil
}

// mapError turns connectivity codes into domain.ErrTransport and every other
// status into a rejection carrying the server's message.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", domain.ErrTransport, st.Message())
	default:
		return &domain.RejectedError{Reason: st.Message()}
	}
}
