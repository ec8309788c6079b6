package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/metrics"
	"github.com/mogesh-developer/billing-webapp/internal/store"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
)

type MockRepository struct {
	mu           sync.Mutex
	OutboxEvents []*store.OutboxEvent
	FetchErr     error
	ProcessedIDs []int64
	DeletedCalls int
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*store.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	var out []*store.OutboxEvent
	for _, e := range m.OutboxEvents {
		if !m.processed(e.ID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockRepository) processed(id int64) bool {
	for _, p := range m.ProcessedIDs {
		if p == id {
			return true
		}
	}
	return false
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) DeleteProcessedEvents(context.Context, time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedCalls++
	return 0, nil
}

func (m *MockRepository) processedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.ProcessedIDs...)
}

type MockWriter struct {
	mu       sync.Mutex
	messages []kafkaGo.Message
	failKey  string
	closed   bool
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == w.failKey {
			return errors.New("broker unavailable")
		}
		w.messages = append(w.messages, m)
	}
	return nil
}

func (w *MockWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func event(id int64, bill string) *store.OutboxEvent {
	return &store.OutboxEvent{
		ID:          id,
		AggregateID: bill,
		EventType:   store.EventSaleCompleted,
		Payload:     json.RawMessage(fmt.Sprintf(`{"bill_number":%q}`, bill)),
		CreatedAt:   time.Now(),
	}
}

func newPoller(repo Repository, w Writer) *OutboxPoller {
	return NewOutboxPoller(repo, w, metrics.NewServerMetrics("test", nil), zap.NewNop())
}

func TestProcessUnpublishedEvents(t *testing.T) {
	repo := &MockRepository{OutboxEvents: []*store.OutboxEvent{event(1, "AAAA0001"), event(2, "AAAA0002")}}
	w := &MockWriter{}

	newPoller(repo, w).processUnpublishedEvents(context.Background())

	assert.Equal(t, []int64{1, 2}, repo.processedIDs())
	require.Len(t, w.messages, 2)
	assert.Equal(t, "AAAA0001", string(w.messages[0].Key))
	assert.Equal(t, "event_type", w.messages[0].Headers[0].Key)
	assert.Equal(t, store.EventSaleCompleted, string(w.messages[0].Headers[0].Value))
}

func TestProcessUnpublishedEvents_StopsAtFirstFailure(t *testing.T) {
	repo := &MockRepository{OutboxEvents: []*store.OutboxEvent{event(1, "OK"), event(2, "BAD"), event(3, "LATER")}}
	w := &MockWriter{failKey: "BAD"}

	newPoller(repo, w).processUnpublishedEvents(context.Background())

	assert.Equal(t, []int64{1}, repo.processedIDs())
	assert.Len(t, w.messages, 1)
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	repo := &MockRepository{FetchErr: errors.New("database connection error")}
	w := &MockWriter{}

	newPoller(repo, w).processUnpublishedEvents(context.Background())

	assert.Empty(t, w.messages)
}

func TestRun_PublishesAndClosesWriter(t *testing.T) {
	repo := &MockRepository{OutboxEvents: []*store.OutboxEvent{event(1, "AAAA0001")}}
	w := &MockWriter{}
	p := newPoller(repo, w)
	p.eventTick = 10 * time.Millisecond
	p.cleanupTick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(repo.processedIDs()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Positive(t, repo.DeletedCalls)
}

func setupKafka(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	brokerAddr := setupKafka(t)
	const topic = "sales-completed"
	createTopic(t, brokerAddr, topic)

	// Give Kafka time to fully initialize the topic
	time.Sleep(5 * time.Second)

	repo := &MockRepository{OutboxEvents: []*store.OutboxEvent{event(1, "5E1F0A2B")}}
	writer := NewKafkaWriter(topic, brokerAddr)
	poller := newPoller(repo, writer)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5E1F0A2B", string(msg.Key))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "5E1F0A2B", payload["bill_number"])

	require.Eventually(t, func() bool { return len(repo.processedIDs()) == 1 }, 5*time.Second, 50*time.Millisecond)
}
