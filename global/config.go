package global

import (
	"os"
	"strings"
	"time"

	"GVChat/data/database/mgo/mongoutil"
	"GVChat/service/chat"
	"GVChat/service/kafka"
	"GVChat/service/natsx"
	"GVChat/service/storage/redis"
	"GVChat/tools/errs"

	"github.com/caarlos0/env/v11"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// AppConfig is read from the environment. Redis, NATS and Kafka are off
// unless their address variables are set.
type AppConfig struct {
	NodeID          string        `env:"GATEWAY_ID"`
	WorkerID        int64         `env:"WORKER_ID" envDefault:"1"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"gvchat.db"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	SecureCookie    bool          `env:"SECURE_COOKIE"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	Mongo mongoutil.Config  `envPrefix:"MONGO_"`
	Redis redis.Config      `envPrefix:"REDIS_"`
	Nats  natsx.NatsxConfig `envPrefix:"NATS_"`
	Kafka kafka.Config      `envPrefix:"KAFKA_"`
	JWT   JWTConfig         `envPrefix:"JWT_"`
	Chat  ChatConfig        `envPrefix:"CHAT_"`
}

type JWTConfig struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
	Issuer string        `env:"ISSUER" envDefault:"gvchat"`
}

type ChatConfig struct {
	JoinPolicy     string        `env:"JOIN_POLICY" envDefault:"open"`
	PresencePolicy string        `env:"PRESENCE_POLICY" envDefault:"any"`
	SendQueue      int           `env:"SEND_QUEUE" envDefault:"256"`
	HistoryLimit   int           `env:"HISTORY_LIMIT" envDefault:"50"`
	PresenceTTL    time.Duration `env:"PRESENCE_TTL" envDefault:"24h"`
}

// Load reads the process environment.
func Load() (*AppConfig, error) {
	return load(env.Options{})
}

// LoadFrom reads vars instead of the process environment.
func LoadFrom(vars map[string]string) (*AppConfig, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*AppConfig, error) {
	cfg, err := env.ParseAsWithOptions[AppConfig](opts)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.NodeID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "gvchat"
		}
		c.NodeID = host
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	if c.StoreDriver != StoreSQLite && c.StoreDriver != StoreMongo {
		return errs.ErrArgs.WrapMsg("unknown STORE_DRIVER", "driver", c.StoreDriver)
	}
	if c.JWT.Secret == "" {
		return errs.ErrArgs.WrapMsg("JWT_SECRET is required")
	}
	if _, err := chat.ParseJoinPolicy(c.Chat.JoinPolicy); err != nil {
		return err
	}
	if _, err := chat.ParsePresencePolicy(c.Chat.PresencePolicy); err != nil {
		return err
	}
	return nil
}

// ChatServerConfig is the chat core's view of the config.
func (c *AppConfig) ChatServerConfig() chat.Config {
	join, _ := chat.ParseJoinPolicy(c.Chat.JoinPolicy)
	presence, _ := chat.ParsePresencePolicy(c.Chat.PresencePolicy)
	return chat.Config{
		NodeID:         c.NodeID,
		JoinPolicy:     join,
		PresencePolicy: presence,
		SendQueue:      c.Chat.SendQueue,
	}
}
