package kafka

import (
	"GVChat/logger"
	"GVChat/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// Client owns the sarama client and the sync producer built on it.
type Client struct {
	conf     Config
	sc       *sarama.Config
	client   sarama.Client
	producer sarama.SyncProducer
}

func NewClient(c Config) (*Client, error) {
	if !c.Enabled() {
		return nil, errs.ErrArgs.WrapMsg("kafka brokers missing")
	}
	sc, err := BuildConfig(c)
	if err != nil {
		return nil, err
	}
	client, err := sarama.NewClient(c.Brokers, sc)
	if err != nil {
		return nil, errs.WrapMsg(err, "kafka client", "brokers", c.Brokers)
	}
	p, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errs.WrapMsg(err, "kafka sync producer")
	}
	return &Client{conf: c, sc: sc, client: client, producer: p}, nil
}

func (c *Client) Producer() sarama.SyncProducer { return c.producer }

// EnsureTopics creates missing topics when auto creation is on.
func (c *Client) EnsureTopics(topics ...string) error {
	if !c.conf.AutoCreateTopics {
		return nil
	}
	admin, err := sarama.NewClusterAdminFromClient(c.client)
	if err != nil {
		return errs.WrapMsg(err, "kafka cluster admin")
	}
	// closing the admin would close the shared client
	return EnsureTopics(admin, topics, c.conf)
}

func (c *Client) Close() error {
	if err := c.producer.Close(); err != nil {
		logger.Warn("kafka producer close", zap.Error(err))
	}
	return c.client.Close()
}
