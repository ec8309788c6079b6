package rpc

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type mockRecorder struct {
	mu      sync.Mutex
	bill    domain.Bill
	err     error
	keys    []string
	payload domain.CheckoutPayload
	block   chan struct{}
}

func (m *mockRecorder) Record(ctx context.Context, payload domain.CheckoutPayload, key string) (domain.Bill, error) {
	m.mu.Lock()
	m.keys = append(m.keys, key)
	m.payload = payload
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.Bill{}, ctx.Err()
		}
	}
	return m.bill, m.err
}

func setup(t *testing.T, rec *mockRecorder) (*TransactionClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, _ := NewServer(rec, zap.NewNop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewTransactionClient(conn), conn
}

func payload() domain.CheckoutPayload {
	return domain.CheckoutPayload{
		CustomerName: "Asha",
		Subtotal:     decimal.RequireFromString("4.00"),
		TaxAmount:    decimal.RequireFromString("0.40"),
		TotalAmount:  decimal.RequireFromString("4.40"),
		PaymentMode:  domain.PaymentModeCard,
		Items: domain.Cart{{
			ProductID:    1,
			Name:         "Pen",
			UnitPrice:    decimal.RequireFromString("2.00"),
			Quantity:     2,
			LineSubtotal: decimal.RequireFromString("4.00"),
		}},
	}
}

func TestSubmit_Success(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &mockRecorder{bill: domain.Bill{ID: 12, BillNumber: "9F8E7D6C", Date: date}}
	client, _ := setup(t, rec)

	res, err := client.Submit(context.Background(), payload(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "12", res.TransactionID)
	assert.Equal(t, "9F8E7D6C", res.BillNumber)
	assert.True(t, date.Equal(res.Date))

	assert.Equal(t, []string{"key-1"}, rec.keys)
	assert.Equal(t, "Asha", rec.payload.CustomerName)
	assert.True(t, decimal.RequireFromString("4.40").Equal(rec.payload.TotalAmount))
	require.Len(t, rec.payload.Items, 1)
	assert.Equal(t, 2, rec.payload.Items[0].Quantity)
}

func TestSubmit_Rejected(t *testing.T) {
	rec := &mockRecorder{err: &domain.RejectedError{Reason: "Insufficient stock for Pen"}}
	client, _ := setup(t, rec)

	_, err := client.Submit(context.Background(), payload(), "key-1")
	var rejected *domain.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Insufficient stock for Pen", rejected.Reason)
}

func TestSubmit_InternalErrorIsRejectedWithGenericMessage(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	client, _ := setup(t, rec)

	_, err := client.Submit(context.Background(), payload(), "key-1")
	var rejected *domain.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "failed to record sale", rejected.Reason)
}

func TestSubmit_DeadlineIsTransportFailure(t *testing.T) {
	rec := &mockRecorder{block: make(chan struct{})}
	defer close(rec.block)
	client, _ := setup(t, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Submit(ctx, payload(), "key-1")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.False(t, domain.IsRejected(err))
}

func TestSubmit_KeyTooLong(t *testing.T) {
	client, _ := setup(t, &mockRecorder{})

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'k'
	}
	_, err := client.Submit(context.Background(), payload(), string(long))
	assert.True(t, domain.IsRejected(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err       error
		transport bool
	}{
		{status.Error(codes.Unavailable, "down"), true},
		{status.Error(codes.DeadlineExceeded, "slow"), true},
		{status.Error(codes.Canceled, "gone"), true},
		{status.Error(codes.FailedPrecondition, "no stock"), false},
		{status.Error(codes.InvalidArgument, "bad"), false},
		{errors.New("plain"), true},
	}
	for _, tt := range tests {
		err := mapError(tt.err)
		assert.Equal(t, tt.transport, errors.Is(err, domain.ErrTransport), tt.err.Error())
		assert.Equal(t, !tt.transport, domain.IsRejected(err), tt.err.Error())
	}
}

func TestHealth(t *testing.T) {
	_, conn := setup(t, &mockRecorder{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
