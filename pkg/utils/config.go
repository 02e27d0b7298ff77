package utils

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	Dispatch DispatchConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver      string // postgres | memory
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	LockTimeout time.Duration
	Migrate     bool
}

type BookingConfig struct {
	TaxRate         decimal.Decimal
	Currency        string
	DefaultPageSize int
}

type PaymentConfig struct {
	ProcessorURL  string
	ProcessorKey  string
	Timeout       time.Duration
	WebhookSecret string
}

type DispatchConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	// RedeliverySchedule is a cron spec for re-sending failed notifications.
	// Empty disables the sweep.
	RedeliverySchedule string
	MaxRedeliveries    int
}

type RedisConfig struct {
	Addr                 string
	Password             string
	DB                   int
	SubmissionPendingTTL time.Duration
	SubmissionTTL        time.Duration
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type AuthConfig struct {
	OperatorTokenHash string
}

func LoadConfig() (*Config, error) {
	// .env is optional; real environment always wins
	_ = godotenv.Load()
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_NAME", "hotel-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_LOCK_TIMEOUT", "3s")
	viper.SetDefault("DB_MIGRATE", true)
	viper.SetDefault("TAX_RATE", "0.08")
	viper.SetDefault("CURRENCY", "usd")
	viper.SetDefault("PAGE_SIZE_DEFAULT", 20)
	viper.SetDefault("PAYMENT_TIMEOUT", "10s")
	viper.SetDefault("DISPATCH_MAX_ATTEMPTS", 3)
	viper.SetDefault("DISPATCH_BASE_BACKOFF", "200ms")
	viper.SetDefault("DISPATCH_REDELIVERY_SCHEDULE", "@every 5m")
	viper.SetDefault("DISPATCH_MAX_REDELIVERIES", 5)
	viper.SetDefault("SUBMISSION_PENDING_TTL", "30s")
	viper.SetDefault("SUBMISSION_TTL", "24h")
	viper.SetDefault("RABBITMQ_QUEUE", "notifications.booking")

	taxRate, err := decimal.NewFromString(viper.GetString("TAX_RATE"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:      viper.GetString("DB_DRIVER"),
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			LockTimeout: viper.GetDuration("DB_LOCK_TIMEOUT"),
			Migrate:     viper.GetBool("DB_MIGRATE"),
		},
		Booking: BookingConfig{
			TaxRate:         taxRate,
			Currency:        viper.GetString("CURRENCY"),
			DefaultPageSize: viper.GetInt("PAGE_SIZE_DEFAULT"),
		},
		Payment: PaymentConfig{
			ProcessorURL:  viper.GetString("PAYMENT_PROCESSOR_URL"),
			ProcessorKey:  viper.GetString("PAYMENT_PROCESSOR_KEY"),
			Timeout:       viper.GetDuration("PAYMENT_TIMEOUT"),
			WebhookSecret: viper.GetString("PAYMENT_WEBHOOK_SECRET"),
		},
		Dispatch: DispatchConfig{
			MaxAttempts: viper.GetInt("DISPATCH_MAX_ATTEMPTS"),
			BaseBackoff: viper.GetDuration("DISPATCH_BASE_BACKOFF"),

			RedeliverySchedule: viper.GetString("DISPATCH_REDELIVERY_SCHEDULE"),
			MaxRedeliveries:    viper.GetInt("DISPATCH_MAX_REDELIVERIES"),
		},
		Redis: RedisConfig{
			Addr:                 viper.GetString("REDIS_ADDR"),
			Password:             viper.GetString("REDIS_PASSWORD"),
			DB:                   viper.GetInt("REDIS_DB"),
			SubmissionPendingTTL: viper.GetDuration("SUBMISSION_PENDING_TTL"),
			SubmissionTTL:        viper.GetDuration("SUBMISSION_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   viper.GetString("RABBITMQ_URL"),
			Queue: viper.GetString("RABBITMQ_QUEUE"),
		},
		Auth: AuthConfig{
			OperatorTokenHash: viper.GetString("OPERATOR_TOKEN_HASH"),
		},
	}

	return config, nil
}
