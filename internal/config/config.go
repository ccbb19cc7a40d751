package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Editor   EditorConfig
	Tracer   TracerConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	BodyLimit          int
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type EditorConfig struct {
	SessionTTL        time.Duration
	SessionJanitor    time.Duration
	MergeWindow       time.Duration
	HistoryLimit      int
	DraftTTL          time.Duration
	ChangeTopic       string // Watermill topic for committed document updates
	FanoutChannel     string // Redis channel shared by websocket hubs
	SocketLogPath     string
	NatsDurablePrefix string
}

// TracerConfig controls the OTLP exporter. Tracing is off unless Enabled.
type TracerConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Environment string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			BodyLimit:          getEnvAsInt("APP_BODY_LIMIT_MB", 10) * 1024 * 1024,
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Editor: EditorConfig{
			SessionTTL:        getEnvAsDuration("EDITOR_SESSION_TTL", time.Hour),
			SessionJanitor:    getEnvAsDuration("EDITOR_SESSION_JANITOR", 10*time.Minute),
			MergeWindow:       getEnvAsDuration("EDITOR_MERGE_WINDOW", time.Second),
			HistoryLimit:      getEnvAsInt("EDITOR_HISTORY_LIMIT", 200),
			DraftTTL:          getEnvAsDuration("EDITOR_DRAFT_TTL", 24*time.Hour),
			ChangeTopic:       getEnv("EDITOR_CHANGE_TOPIC_NAME", "EDITOR_DOCUMENT_CHANGED"),
			FanoutChannel:     getEnv("EDITOR_FANOUT_CHANNEL", "editor_events"),
			SocketLogPath:     getEnv("EDITOR_SOCKET_LOG_PATH", "logs/editor_socket.log"),
			NatsDurablePrefix: getEnv("EDITOR_NATS_DURABLE", "editor-service"),
		},
		Tracer: TracerConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "post-editor-backend"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Environment: getEnv("GO_ENV", "development"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
