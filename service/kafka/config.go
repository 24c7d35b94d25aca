package kafka

import (
	"strings"
	"time"

	"GVChat/tools/errs"

	"github.com/Shopify/sarama"
)

// Config is the KAFKA_ group of the app config. No brokers disables Kafka.
type Config struct {
	Brokers               []string `env:"BROKERS" envSeparator:","`
	GroupID               string   `env:"GROUP_ID" envDefault:"gvchat-notifications"`
	Version               string   `env:"VERSION" envDefault:"2.1.0"`
	ProducerRetries       int      `env:"PRODUCER_RETRIES" envDefault:"5"`
	ProducerCompression   string   `env:"COMPRESSION" envDefault:"snappy"`    // none/snappy/lz4/zstd
	ConsumerInitialOffset string   `env:"INITIAL_OFFSET" envDefault:"newest"` // newest/oldest
	AutoCreateTopics      bool     `env:"AUTO_CREATE_TOPICS" envDefault:"true"`
	PartitionsPerTopic    int32    `env:"PARTITIONS" envDefault:"2"`
	ReplicationFactor     int16    `env:"REPLICATION_FACTOR" envDefault:"1"`
}

func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

// BuildConfig turns c into a validated sarama config.
func BuildConfig(c Config) (*sarama.Config, error) {
	cfg := sarama.NewConfig()

	cfg.Version = sarama.V2_1_0_0
	if c.Version != "" {
		v, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, errs.ErrArgs.WrapMsg("bad kafka version", "version", c.Version)
		}
		cfg.Version = v
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	retries := c.ProducerRetries
	if retries <= 0 {
		retries = 1
	}
	cfg.Producer.Retry.Max = retries
	// key decides the partition
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	switch strings.ToLower(c.ConsumerInitialOffset) {
	case "oldest":
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, errs.WrapMsg(err, "sarama config validate")
	}
	return cfg, nil
}
