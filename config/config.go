package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendRemote = "remote"
	BackendGoCV   = "gocv"
)

type Config struct {
	Weights          string        `validate:"required"`
	ConfThreshold    float64       `validate:"gte=0,lte=1"`
	Device           string
	Backend          string        `validate:"oneof=remote gocv"`
	InferenceURL     string        `validate:"required_if=Backend remote"`
	InferenceTimeout time.Duration `validate:"gt=0"`
	NamesFile        string

	HTTPPort       string  `validate:"required,numeric"`
	UploadDir      string
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gte=1"`

	TelegramToken string

	LogLevel string `validate:"oneof=debug info warn warning error"`
	LogFile  string
	AppEnv   string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		Weights:       getEnv("YOLO_WEIGHTS", "yolov8n.onnx"),
		Device:        os.Getenv("YOLO_DEVICE"),
		Backend:       getEnv("DETECTOR_BACKEND", BackendRemote),
		InferenceURL:  getEnv("INFERENCE_URL", "http://localhost:5000/predict"),
		NamesFile:     os.Getenv("YOLO_NAMES"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		UploadDir:     getEnv("UPLOAD_DIR", os.TempDir()),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		AppEnv:        getEnv("APP_ENV", "development"),
	}

	var err error
	if cfg.ConfThreshold, err = getFloat("YOLO_CONF_THRESHOLD", 0.25); err != nil {
		return nil, err
	}
	if cfg.InferenceTimeout, err = getDuration("INFERENCE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 2); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения конфигурации.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
