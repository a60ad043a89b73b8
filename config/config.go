package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vitovidale/video-manager-service/logging"
)

const devJWTSecret = "supersecretjwtkeythatshouldbeverylongandrandominproduction"

// DefaultVideoExtensions are the upload extensions accepted when none are configured.
var DefaultVideoExtensions = []string{"avi", "h264", "m4v", "mkv", "mov", "mp4", "mpeg", "mpg", "ogv", "webm"}

type Config struct {
	Port      string
	JWTSecret string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	SQLitePath string

	QueueBackend  string
	RabbitMQHost  string
	RabbitMQPort  string
	RabbitMQUser  string
	RabbitMQPass  string
	RabbitMQQueue string
	SQSQueueURL   string

	StorageBackend string
	UploadDir      string
	S3Bucket       string

	// MaxUploadSize is in bytes; zero disables the check.
	MaxUploadSize     int64
	AllowedExtensions []string
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Config{
		Port:      getEnv("PORT", "5001"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPass:     getEnv("DB_PASS", "password"),
		DBName:     getEnv("DB_NAME", "videos_db"),
		SQLitePath: getEnv("SQLITE_PATH", "videos.db"),

		QueueBackend:  getEnv("QUEUE_BACKEND", "rabbitmq"),
		RabbitMQHost:  getEnv("RABBITMQ_HOST", "rabbitmq"),
		RabbitMQPort:  getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:  getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPass:  getEnv("RABBITMQ_PASS", "guest"),
		RabbitMQQueue: getEnv("RABBITMQ_QUEUE", "video_post_process_queue"),
		SQSQueueURL:   getEnv("SQS_QUEUE_URL", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "fs"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		S3Bucket:       getEnv("S3_BUCKET_NAME", ""),
	}

	if cfg.JWTSecret == "" {
		logging.Warn("JWT_SECRET environment variable not set. Using a default secret for development. THIS IS INSECURE FOR PRODUCTION!")
		cfg.JWTSecret = devJWTSecret
	}

	size, err := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE", "0"), 10, 64)
	if err != nil || size < 0 {
		return Config{}, fmt.Errorf("invalid MAX_UPLOAD_SIZE %q", os.Getenv("MAX_UPLOAD_SIZE"))
	}
	cfg.MaxUploadSize = size

	cfg.AllowedExtensions = parseExtensions(getEnv("ALLOWED_VIDEO_EXTENSIONS", ""))
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = DefaultVideoExtensions
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.QueueBackend {
	case "rabbitmq":
	case "sqs":
		if c.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when QUEUE_BACKEND=sqs")
		}
	default:
		return fmt.Errorf("unsupported QUEUE_BACKEND %q", c.QueueBackend)
	}
	switch c.StorageBackend {
	case "fs":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// PostgresDSN builds the lib/pq connection string.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

// RabbitMQURL builds the AMQP connection URL.
func (c Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPass, c.RabbitMQHost, c.RabbitMQPort)
}

func parseExtensions(raw string) []string {
	var exts []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
