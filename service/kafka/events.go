package kafka

import (
	"context"
	"encoding/json"

	chatmodel "GVChat/module/chat/model"
	"GVChat/tools/errs"

	"github.com/Shopify/sarama"
)

const TopicMessageCreated = "chat_message_created"

// MessageEvents publishes every persisted chat message, keyed by its id.
type MessageEvents struct {
	producer sarama.SyncProducer
	topic    string
}

func NewMessageEvents(p sarama.SyncProducer) *MessageEvents {
	return &MessageEvents{producer: p, topic: TopicMessageCreated}
}

func (e *MessageEvents) MessageCreated(_ context.Context, m *chatmodel.ChatMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errs.WrapMsg(err, "encode message event", "id", m.ID)
	}
	_, _, err = e.producer.SendMessage(&sarama.ProducerMessage{
		Topic: e.topic,
		Key:   sarama.StringEncoder(m.IDString()),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return errs.WrapMsg(err, "publish message event", "topic", e.topic, "id", m.ID)
	}
	return nil
}

// MessageCreatedHandler decodes chat_message_created records for fn.
func MessageCreatedHandler(fn func(ctx context.Context, m *chatmodel.ChatMessage) error) MessageHandler {
	return func(ctx context.Context, _ string, _, value []byte) error {
		var m chatmodel.ChatMessage
		if err := json.Unmarshal(value, &m); err != nil {
			return errs.ErrArgs.WrapMsg("bad message event: " + err.Error())
		}
		return fn(ctx, &m)
	}
}
