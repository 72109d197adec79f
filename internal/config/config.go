package config

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Network string `env:"NETWORK,required"`

	RPCURL string `env:"RPC_URL,default=http://localhost:8545"`

	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBName     string `env:"DB_NAME,required"`
	DBHost     string `env:"DB_HOST,default=localhost"`
	DBReadHost string `env:"DB_READ_HOST,default=localhost"`

	NatsURL        string `env:"NATS_URL,default=nats://localhost:4222"`
	PublishSubject string `env:"PUBLISH_SUBJECT,default=assets-manager.wallet-transactions"`

	RequiredConfirmations int64 `env:"REQUIRED_CONFIRMATIONS,default=12"`
	MaxBlocksRead         int64 `env:"MAX_BLOCKS_READ,default=10000"`
	SyncInterval          int   `env:"SYNC_INTERVAL_SECONDS,default=30"`
	SweepInterval         int   `env:"SWEEP_INTERVAL_SECONDS,default=60"`

	SentryURL string `env:"SENTRY_URL"`
}

func New(ctx context.Context, envpath string) (*Config, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
