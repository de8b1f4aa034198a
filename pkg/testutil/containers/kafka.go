//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaContainer wraps a Redpanda broker speaking the Kafka protocol.
type KafkaContainer struct {
	Container testcontainers.Container
	Broker    string
	Client    *kgo.Client
	Admin     *kadm.Client
}

// NewKafkaContainer starts a single-node Redpanda broker.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.4")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka seed broker: %v", err)
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(broker))
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to create kafka client: %v", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping kafka: %v", err)
	}

	return &KafkaContainer{
		Container: container,
		Broker:    broker,
		Client:    client,
		Admin:     kadm.NewClient(client),
	}
}

// CreateTopic creates a single-partition topic. Tests use unique names.
func (k *KafkaContainer) CreateTopic(ctx context.Context, topic string) error {
	resp, err := k.Admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return err
	}
	return resp.Err
}
