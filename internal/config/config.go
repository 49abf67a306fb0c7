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
	Keys     APIKeys
	Ai       AIConfig
	Reading  ReadingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	TraceLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
	MaxUploadBytes     int
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
	JwtSecret    string
}

type AIConfig struct {
	Provider      string // "gemini", "ollama" or "huggingface"
	Model         string // overrides the provider default
	OllamaBaseURL string
	HFBaseURL     string
}

type ReadingConfig struct {
	DiagnosisTimeout      time.Duration
	SnapshotDebounce      time.Duration
	SnapshotTopic         string
	SessionTTL            time.Duration
	SnapshotCacheTTL      time.Duration
	ResetMasteryOnRestore bool
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
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			TraceLogFilePath:   getEnv("INFERENCE_TRACE_LOG_PATH", "logs/inference_trace.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadBytes:     getEnvAsInt("MAX_UPLOAD_BYTES", 50*1024*1024),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			JwtSecret:    getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			Provider:      getEnv("LLM_PROVIDER", "gemini"),
			Model:         getEnv("LLM_MODEL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HFBaseURL:     getEnv("HUGGINGFACE_BASE_URL", ""),
		},
		Reading: ReadingConfig{
			DiagnosisTimeout:      getEnvAsDuration("READING_DIAGNOSIS_TIMEOUT", 90*time.Second),
			SnapshotDebounce:      getEnvAsDuration("READING_SNAPSHOT_DEBOUNCE", 2500*time.Millisecond),
			SnapshotTopic:         getEnv("READING_SNAPSHOT_TOPIC", "READING_SESSION_SNAPSHOT"),
			SessionTTL:            getEnvAsDuration("READING_SESSION_TTL", time.Hour),
			SnapshotCacheTTL:      getEnvAsDuration("READING_SNAPSHOT_CACHE_TTL", 7*24*time.Hour),
			ResetMasteryOnRestore: getEnvAsBool("READING_RESET_MASTERY_ON_RESTORE", false),
		},
	}
}

func (c *Config) APIKey() string {
	if c.Ai.Provider == "huggingface" {
		return c.Keys.HuggingFace
	}
	return c.Keys.GoogleGemini
}

func (c *Config) BaseURL() string {
	if c.Ai.Provider == "huggingface" {
		return c.Ai.HFBaseURL
	}
	return c.Ai.OllamaBaseURL
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

// getEnvAsDuration accepts Go durations ("90s") or plain milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
