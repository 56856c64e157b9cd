package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AwsRegion          string
	DynamoTableName    string
	RazorpayKeyID      string
	RazorpayKeySecret  string
	EmailEventsQueue   string
	DefaultCurrency    string
	PendingTTLHours    int
	Port               string
	Env                string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AwsRegion:         strings.TrimSpace(os.Getenv("AWS_REGION")),
		DynamoTableName:   strings.TrimSpace(os.Getenv("DYNAMO_TABLE_NAME")),
		RazorpayKeyID:     strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID")),
		RazorpayKeySecret: strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),
		EmailEventsQueue:  strings.TrimSpace(os.Getenv("EMAIL_EVENTS_QUEUE_URL")),
		DefaultCurrency:   strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_CURRENCY"))),
		Port:              strings.TrimSpace(os.Getenv("PORT")),
		Env:               strings.TrimSpace(os.Getenv("ENV")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "INR"
	}
	if v := strings.TrimSpace(os.Getenv("PENDING_TTL_HOURS")); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil || ttl < 0 {
			return Config{}, errors.New("PENDING_TTL_HOURS invalid")
		}
		cfg.PendingTTLHours = ttl
	}

	if cfg.AwsRegion == "" {
		return Config{}, errors.New("AWS_REGION not set")
	}
	if cfg.DynamoTableName == "" {
		return Config{}, errors.New("DYNAMO_TABLE_NAME not set")
	}
	if cfg.RazorpayKeyID == "" {
		return Config{}, errors.New("RAZORPAY_KEY_ID not set")
	}
	if cfg.RazorpayKeySecret == "" {
		return Config{}, errors.New("RAZORPAY_KEY_SECRET not set")
	}

	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}
