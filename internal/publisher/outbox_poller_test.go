package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
	r "github.com/12344-munna/facebook-webhook-backend/internal/repository"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

// MockStore implements r.Store with only the outbox methods doing real work.
type MockStore struct {
	mu           sync.Mutex
	OutboxEvents []*r.OutboxEvent
	FetchErr     error
	ProcessedIDs []string
}

func (m *MockStore) FindProductByID(context.Context, string) (*domain.Product, error) {
	return nil, r.ErrProductNotFound
}

func (m *MockStore) UpdateProductStock(context.Context, string, map[string]int, int) error {
	return nil
}

func (m *MockStore) CreateOrder(context.Context, *domain.Order) (string, error) {
	return "", nil
}

func (m *MockStore) InsertOutboxEvent(_ context.Context, event *r.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OutboxEvents = append(m.OutboxEvents, event)
	return nil
}

func (m *MockStore) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockStore) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	if len(m.OutboxEvents) > 0 {
		ev := []*r.OutboxEvent{m.OutboxEvents[0]} // Return first event once
		m.OutboxEvents = m.OutboxEvents[1:]
		return ev, nil
	}
	return nil, nil
}

func (m *MockStore) MarkEventAsProcessed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockStore) processed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ProcessedIDs...)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
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

	topicConfigs := []kafkaGo.TopicConfig{{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}}

	if err := controllerConn.CreateTopics(topicConfigs...); err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	createTopic(t, brokerAddr, Topic)

	// Give Kafka time to fully initialize the topic
	time.Sleep(5 * time.Second)

	store := &MockStore{
		OutboxEvents: []*r.OutboxEvent{{
			ID:          "evt-1",
			AggregateID: "order-123",
			EventType:   "order.confirmed",
			Payload:     json.RawMessage(`{"order_id":"order-123","profit":200}`),
			CreatedAt:   time.Now(),
		}},
	}

	writer := &kafkaGo.Writer{
		Addr:         kafkaGo.TCP(brokerAddr),
		Topic:        Topic,
		Balancer:     &kafkaGo.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	defer writer.Close()

	poller := &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		store:     store,
		writer:    writer,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    Topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, "order-123", string(msg.Key))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "order-123", payload["order_id"])

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "order.confirmed", string(msg.Headers[0].Value))

	assert.Eventually(t, func() bool {
		p := store.processed()
		return len(p) == 1 && p[0] == "evt-1"
	}, 5*time.Second, 100*time.Millisecond)
}

func TestProcessUnpublishedEvents_FetchErrorDoesNotPanic(t *testing.T) {
	store := &MockStore{FetchErr: errors.New("store down")}
	poller := &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		store:     store,
	}

	poller.processUnpublishedEvents(context.Background())
	assert.Empty(t, store.processed())
}
