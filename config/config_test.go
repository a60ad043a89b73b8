package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "5001" {
		t.Errorf("Expected default port 5001, got %s", cfg.Port)
	}
	if cfg.QueueBackend != "rabbitmq" {
		t.Errorf("Expected rabbitmq queue backend, got %s", cfg.QueueBackend)
	}
	if cfg.MaxUploadSize != 0 {
		t.Errorf("Expected unlimited upload size, got %d", cfg.MaxUploadSize)
	}
	if !reflect.DeepEqual(cfg.AllowedExtensions, DefaultVideoExtensions) {
		t.Errorf("Expected default extensions, got %v", cfg.AllowedExtensions)
	}
}

func TestLoadFallsBackToDevSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Errorf("Expected development secret fallback, got %q", cfg.JWTSecret)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("MAX_UPLOAD_SIZE", "1048576")
	t.Setenv("ALLOWED_VIDEO_EXTENSIONS", " .MP4, webm ,,")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET_NAME", "videos")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxUploadSize != 1048576 {
		t.Errorf("Expected max upload size 1048576, got %d", cfg.MaxUploadSize)
	}
	if want := []string{"mp4", "webm"}; !reflect.DeepEqual(cfg.AllowedExtensions, want) {
		t.Errorf("Expected %v, got %v", want, cfg.AllowedExtensions)
	}
	if cfg.S3Bucket != "videos" {
		t.Errorf("Expected bucket videos, got %s", cfg.S3Bucket)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad size", map[string]string{"MAX_UPLOAD_SIZE": "lots"}, "MAX_UPLOAD_SIZE"},
		{"negative size", map[string]string{"MAX_UPLOAD_SIZE": "-1"}, "MAX_UPLOAD_SIZE"},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"sqs without url", map[string]string{"QUEUE_BACKEND": "sqs"}, "SQS_QUEUE_URL"},
		{"s3 without bucket", map[string]string{"STORAGE_BACKEND": "s3"}, "S3_BUCKET_NAME"},
		{"bad storage", map[string]string{"STORAGE_BACKEND": "ftp"}, "STORAGE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s")
			t.Setenv("SQS_QUEUE_URL", "")
			t.Setenv("S3_BUCKET_NAME", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestConnectionStrings(t *testing.T) {
	cfg := Config{
		DBHost: "h", DBPort: "1", DBUser: "u", DBPass: "p", DBName: "n",
		RabbitMQUser: "guest", RabbitMQPass: "pw", RabbitMQHost: "mq", RabbitMQPort: "5672",
	}
	if got := cfg.PostgresDSN(); got != "host=h port=1 user=u password=p dbname=n sslmode=disable" {
		t.Errorf("unexpected DSN %q", got)
	}
	if got := cfg.RabbitMQURL(); got != "amqp://guest:pw@mq:5672/" {
		t.Errorf("unexpected AMQP URL %q", got)
	}
}
