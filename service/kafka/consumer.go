package kafka

import (
	"context"
	"errors"
	"time"

	"GVChat/logger"
	"GVChat/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

type groupHandler struct {
	router *Router
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	logger.Info("kafka consumer group setup", zap.Any("claims", sess.Claims()))
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("kafka consumer group cleanup")
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handle(sess.Context(), msg)
			// handler failures are logged; the offset still moves on
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("kafka handler panic", zap.String("topic", msg.Topic), zap.Error(errs.ErrPanic(r)))
		}
	}()
	if err := h.router.dispatch(ctx, msg.Topic, msg.Key, msg.Value); err != nil {
		logger.Warn("kafka handler failed",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}

// Consume runs the consumer group over every routed topic until ctx ends.
func Consume(ctx context.Context, c Config, router *Router) error {
	topics := router.Topics()
	if len(topics) == 0 {
		return errs.ErrArgs.WrapMsg("no kafka topics routed")
	}
	sc, err := BuildConfig(c)
	if err != nil {
		return err
	}
	group, err := sarama.NewConsumerGroup(c.Brokers, c.GroupID, sc)
	if err != nil {
		return errs.WrapMsg(err, "kafka consumer group", "group", c.GroupID)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			logger.Warn("kafka consumer group error", zap.Error(err))
		}
	}()

	h := &groupHandler{router: router}
	for {
		if err := group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Warn("kafka consume", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
