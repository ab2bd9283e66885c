package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Booking   BookingConfig
	Fare      FareConfig
	Payment   PaymentConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Queue     QueueConfig
}

type AppConfig struct {
	Name      string
	Port      string
	Debug     bool
	LogPath   string
	TripsFile string
}

type BookingConfig struct {
	LockTTL          time.Duration
	AgentLockTTL     time.Duration
	TicketIssueDelay time.Duration
	PNRPrefix        string
}

// FareConfig is the single fee schedule applied to every quote and booking.
// Rates are basis points (500 = 5%).
type FareConfig struct {
	RegulatoryBPS    int64
	TransactionBPS   int64
	CommissionBPS    int64
	CommissionPolicy string // agent_only, all, none
	PromoCodes       map[string]int64
}

type PaymentConfig struct {
	Currency      string
	STKTimeout    time.Duration
	CardTimeout   time.Duration
	BankTimeout   time.Duration
	GatewaySecret string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// Enabled reports whether an audit archive database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

type QueueConfig struct {
	URL            string
	TicketsQueue   string
	PublishTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "transit-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("TRIPS_FILE", "")

	v.SetDefault("LOCK_TTL", "5m")
	v.SetDefault("AGENT_LOCK_TTL", "10m")
	v.SetDefault("TICKET_ISSUE_DELAY", "1s")
	v.SetDefault("PNR_PREFIX", "LTR")

	v.SetDefault("FEE_REGULATORY_BPS", 500)
	v.SetDefault("FEE_TRANSACTION_BPS", 200)
	v.SetDefault("FEE_COMMISSION_BPS", 300)
	v.SetDefault("COMMISSION_POLICY", "agent_only")
	v.SetDefault("PROMO_CODES", "STUDENT10:1000,SENIOR15:1500")

	v.SetDefault("CURRENCY", "TZS")
	v.SetDefault("PAYMENT_STK_TIMEOUT", "90s")
	v.SetDefault("PAYMENT_CARD_TIMEOUT", "10m")
	v.SetDefault("PAYMENT_BANK_TIMEOUT", "24h")
	v.SetDefault("GATEWAY_SECRET", "")

	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_CAPACITY", 20)
	v.SetDefault("RATE_LIMIT_REFILL_TOKENS", 1)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", "3s")
	v.SetDefault("RATE_LIMIT_TTL", "10m")
	v.SetDefault("RATE_LIMIT_PREFIX", "rl:holds")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("TICKETS_QUEUE", "tickets.issued")
	v.SetDefault("QUEUE_PUBLISH_TIMEOUT", "5s")
}

// LoadConfig reads envFile (if present), then the environment, then any
// flags bound from the command line. A missing env file is not an error:
// every setting has a default.
func LoadConfig(envFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("port"); f != nil {
			if err := v.BindPFlag("PORT", f); err != nil {
				return nil, err
			}
		}
		if f := flags.Lookup("trips"); f != nil {
			if err := v.BindPFlag("TRIPS_FILE", f); err != nil {
				return nil, err
			}
		}
		if f := flags.Lookup("debug"); f != nil {
			if err := v.BindPFlag("DEBUG", f); err != nil {
				return nil, err
			}
		}
	}

	config := &Config{
		App: AppConfig{
			Name:      v.GetString("APP_NAME"),
			Port:      v.GetString("PORT"),
			Debug:     v.GetBool("DEBUG"),
			LogPath:   v.GetString("LOG_PATH"),
			TripsFile: v.GetString("TRIPS_FILE"),
		},
		Booking: BookingConfig{
			LockTTL:          v.GetDuration("LOCK_TTL"),
			AgentLockTTL:     v.GetDuration("AGENT_LOCK_TTL"),
			TicketIssueDelay: v.GetDuration("TICKET_ISSUE_DELAY"),
			PNRPrefix:        v.GetString("PNR_PREFIX"),
		},
		Fare: FareConfig{
			RegulatoryBPS:    v.GetInt64("FEE_REGULATORY_BPS"),
			TransactionBPS:   v.GetInt64("FEE_TRANSACTION_BPS"),
			CommissionBPS:    v.GetInt64("FEE_COMMISSION_BPS"),
			CommissionPolicy: strings.ToLower(v.GetString("COMMISSION_POLICY")),
			PromoCodes:       ParsePromoCodes(v.GetString("PROMO_CODES")),
		},
		Payment: PaymentConfig{
			Currency:      v.GetString("CURRENCY"),
			STKTimeout:    v.GetDuration("PAYMENT_STK_TIMEOUT"),
			CardTimeout:   v.GetDuration("PAYMENT_CARD_TIMEOUT"),
			BankTimeout:   v.GetDuration("PAYMENT_BANK_TIMEOUT"),
			GatewaySecret: v.GetString("GATEWAY_SECRET"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        v.GetBool("RATE_LIMIT_ENABLED"),
			Capacity:       v.GetInt("RATE_LIMIT_CAPACITY"),
			RefillTokens:   v.GetInt("RATE_LIMIT_REFILL_TOKENS"),
			RefillInterval: v.GetDuration("RATE_LIMIT_REFILL_INTERVAL"),
			TTL:            v.GetDuration("RATE_LIMIT_TTL"),
			Prefix:         v.GetString("RATE_LIMIT_PREFIX"),
		},
		Queue: QueueConfig{
			URL:            v.GetString("RABBITMQ_URL"),
			TicketsQueue:   v.GetString("TICKETS_QUEUE"),
			PublishTimeout: v.GetDuration("QUEUE_PUBLISH_TIMEOUT"),
		},
	}

	return config, nil
}

// ParsePromoCodes parses "CODE:BPS,CODE:BPS". Malformed pairs are skipped.
func ParsePromoCodes(raw string) map[string]int64 {
	codes := make(map[string]int64)
	for _, pair := range strings.Split(raw, ",") {
		code, bps, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || code == "" {
			continue
		}
		n := ParseInt(bps, 0)
		if n <= 0 || n > 10000 {
			continue
		}
		codes[strings.ToUpper(code)] = int64(n)
	}
	return codes
}
