package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"food-marketplace-api/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestKafkaPublisherSendsKeyedJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "FD-20261015-ABC123" {
			return errors.New("unexpected key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var ev OrderEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		if ev.To != models.StatusConfirmed || ev.OrderID != 42 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "order-events")
	err := pub.Publish(context.Background(), OrderEvent{
		Type:        TypeStatusChanged,
		OrderID:     42,
		OrderNumber: "FD-20261015-ABC123",
		From:        models.StatusPending,
		To:          models.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaPublisherReportsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "order-events")
	err := pub.Publish(context.Background(), OrderEvent{Type: TypeStatusChanged, OrderID: 1})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("err = %v, want ErrOutOfBrokers", err)
	}
	_ = pub.Close()
}
