package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "medgate/pkg/platform/audit"
)

// KafkaSink produces entries to a single topic, keyed by actor so one user's
// events stay ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("medgate-audit-mirror"),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (k *KafkaSink) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(k.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, k.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (k *KafkaSink) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *KafkaSink) Publish(ctx context.Context, entries []audit.Entry) error {
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(toMessage(e))
		if err != nil {
			return fmt.Errorf("marshal audit entry: %w", err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(e.ActorUserID.String()),
			Value: payload,
		})
	}
	if err := k.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entries: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() {
	k.client.Close()
}

// message is the wire shape consumed downstream.
type message struct {
	ID          int64  `json:"id"`
	ActorUserID int64  `json:"actor_user_id"`
	ActorRole   string `json:"actor_role"`
	Action      string `json:"action"`
	Timestamp   string `json:"timestamp"`
	Details     string `json:"details"`
}

func toMessage(e audit.Entry) message {
	return message{
		ID:          int64(e.ID),
		ActorUserID: int64(e.ActorUserID),
		ActorRole:   e.ActorRole.String(),
		Action:      string(e.Action),
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		Details:     e.Details,
	}
}
