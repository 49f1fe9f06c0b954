package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"referral"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
		// Chat that receives operator notifications about new pending records.
		OperatorChatID int64   `env:"OPERATOR_CHAT_ID" envDefault:"0"`
		AdminIDs       []int64 `env:"ADMIN_IDS" envSeparator:","`
	}

	Payments struct {
		// Sliding window during which a second pending intent from the
		// same user is rejected.
		DedupWindow time.Duration `env:"PAYMENT_DEDUP_WINDOW" envDefault:"1h"`
	}
}

func Load() *Config {
	// Missing .env is fine, production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// GetDSN builds the postgres connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password,
		c.Postgres.Database, c.Postgres.SSLMode)
}

// IsAdmin reports whether the given telegram ID belongs to a configured operator.
func (c *Config) IsAdmin(id int64) bool {
	for _, adminID := range c.Telegram.AdminIDs {
		if adminID == id {
			return true
		}
	}
	return false
}
