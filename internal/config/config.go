package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	DBURL       string
	DBMaxConns  int
	MongoURI    string
	MongoDB     string

	SessionDriver string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SecretKey     string
	SessionTTL    time.Duration

	ModelPath        string
	ModelInputName   string
	ModelOutputName  string
	ORTLibraryPath   string
	InferenceTimeout time.Duration
	MaxUploadBytes   int64
	MaxImagePixels   int64

	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminRole     string

	OTelEndpoint    string
	OTelSampleRatio float64

	LoginRateLimit   int
	LoginRateWindow  time.Duration
	PredictRateLimit int

	CORSAllowedOrigins []string

	WorkerPort       int
	SweepInterval    time.Duration
	SessionRetention time.Duration
}

// Load reads the process configuration. A .env file in the working directory
// is applied first; real environment variables always win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DBURL:       buildDBURL(),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		MongoURI:    getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:     getEnv("MONGO_DB", "crimewatch"),

		SessionDriver: getEnv("SESSION_DRIVER", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SecretKey:     getEnv("SECRET_KEY", "change-me"),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,

		ModelPath:        getEnv("MODEL_PATH", "model/model.onnx"),
		ModelInputName:   getEnv("MODEL_INPUT_NAME", "input"),
		ModelOutputName:  getEnv("MODEL_OUTPUT_NAME", "output"),
		ORTLibraryPath:   os.Getenv("ORT_LIBRARY_PATH"),
		InferenceTimeout: time.Duration(getEnvInt("INFERENCE_TIMEOUT_MS", 3000)) * time.Millisecond,
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		MaxImagePixels:   int64(getEnvInt("MAX_IMAGE_PIXELS", 4096*4096)),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "admin"),
		AdminRole:     "admin",

		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),

		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow:  time.Duration(getEnvInt("LOGIN_RATE_WINDOW_SECONDS", 60)) * time.Second,
		PredictRateLimit: getEnvInt("PREDICT_RATE_LIMIT_PER_MINUTE", 60),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		WorkerPort:       getEnvInt("WORKER_PORT", 8081),
		SweepInterval:    time.Duration(getEnvInt("SESSION_SWEEP_INTERVAL_SECONDS", 300)) * time.Second,
		SessionRetention: time.Duration(getEnvInt("SESSION_RETENTION_HOURS", 24)) * time.Hour,
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "crimewatch")
	pass := getEnv("DB_PASSWORD", "crimewatch")
	name := getEnv("DB_NAME", "crimewatch")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an integer, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not a number, using %g\n", key, v, fallback)
			return fallback
		}
		return f
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
