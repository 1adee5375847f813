// Package config loads the kiosk's environment configuration.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full environment configuration for the API and worker.
type Config struct {
	// Store selection: "sqlite" (default) or "dynamo".
	StoreBackend  string
	SQLitePath    string
	SessionsTable string

	// Payment side.
	AmountSats    int64
	WebhookSecret string
	OrangeBin     string
	OrangeConfig  string

	// Report generation.
	XAIAPIKey string
	XAIModel  string

	// Dispatch: when ReportsQueueURL is set the webhook hands paid
	// sessions to the SQS worker; otherwise generation runs inline.
	ReportsQueueURL string

	// WARNING: FIFO fallback matches hash-less payment events to the
	// oldest pending session. Only safe with one invoice outstanding at
	// a time; leave off unless the deployment guarantees that.
	FIFOFallback bool

	MetricsNamespace string
	RunLocal         bool
	ListenAddr       string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		StoreBackend:     getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:       getEnv("SQLITE_PATH", "store/xray.db"),
		SessionsTable:    os.Getenv("SESSIONS_TABLE"),
		AmountSats:       getEnvInt64("AMOUNT_SATS", 1000),
		WebhookSecret:    os.Getenv("ORANGE_WEBHOOK_SECRET"),
		OrangeBin:        getEnv("ORANGE_BIN", "orange"),
		OrangeConfig:     os.Getenv("ORANGE_CONFIG"),
		XAIAPIKey:        os.Getenv("XAI_API_KEY"),
		XAIModel:         os.Getenv("XAI_MODEL"),
		ReportsQueueURL:  os.Getenv("REPORTS_QUEUE_URL"),
		FIFOFallback:     os.Getenv("WEBHOOK_FIFO_FALLBACK") == "true",
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "XRayKiosk"),
		RunLocal:         os.Getenv("RUN_LOCAL") == "true",
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
