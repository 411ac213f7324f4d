package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Detector backends recognized by DETECTOR_BACKEND.
const (
	BackendDNN    = "dnn"
	BackendRemote = "remote"
	BackendOllama = "ollama"
)

type Config struct {
	Port          int
	DatabasePath  string
	LogDirectory  string
	SessionSecret string
	CatalogPath   string

	DetectorBackend string
	ModelPath       string // fine-tuned weights, preferred when present
	BaseModelPath   string // generic weights used as fallback
	LabelsPath      string
	ModelInputSize  int
	InferenceURL    string
	OllamaURL       string
	OllamaModel     string

	ConfidenceThreshold  float64
	NMSThreshold         float64
	ClosureLabel         string
	ContainerLabel       string
	ClosureAreaThreshold float64
	ItemWeightGrams      float64

	MaxUploadMB     int64
	ScanTTLMinutes  int
	ItemsGoal       int // progress goal shown on /api/me
	MetricsEndpoint bool
}

// Load reads an optional .env file and builds the configuration from the
// environment. Variables already set in the process environment win over .env.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	_ = godotenv.Load(envFile)

	return &Config{
		Port:          getEnvAsInt("PORT", 8080),
		DatabasePath:  getEnv("DB_PATH", filepath.Join(".", "data", "eco_scanner.db")),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		CatalogPath:   getEnv("CATALOG_PATH", ""),

		DetectorBackend: getEnv("DETECTOR_BACKEND", BackendDNN),
		ModelPath:       getEnv("MODEL_PATH", "best.onnx"),
		BaseModelPath:   getEnv("BASE_MODEL_PATH", "yolov8s.onnx"),
		LabelsPath:      getEnv("LABELS_PATH", "labels.txt"),
		ModelInputSize:  getEnvAsInt("MODEL_INPUT_SIZE", 640),
		InferenceURL:    getEnv("INFERENCE_URL", "http://localhost:5000/predict"),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llava"),

		ConfidenceThreshold:  getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.4),
		NMSThreshold:         getEnvAsFloat("NMS_THRESHOLD", 0.5),
		ClosureLabel:         getEnv("CLOSURE_LABEL", "Bottle cap"),
		ContainerLabel:       getEnv("CONTAINER_LABEL", "Plastic container"),
		ClosureAreaThreshold: getEnvAsFloat("CLOSURE_AREA_THRESHOLD", 10000),
		ItemWeightGrams:      getEnvAsFloat("ITEM_WEIGHT_GRAMS", 25),

		MaxUploadMB:     getEnvAsInt64("MAX_UPLOAD_MB", 20),
		ScanTTLMinutes:  getEnvAsInt("SCAN_TTL_MINUTES", 15),
		ItemsGoal:       getEnvAsInt("ITEMS_GOAL", 100),
		MetricsEndpoint: getEnvAsBool("METRICS_ENABLED", true),
	}
}

// Validate checks value ranges. It also fills in a random session secret when
// none is configured, which invalidates sessions on every restart.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be within [0,1], got %v", c.NMSThreshold)
	}
	if c.ClosureAreaThreshold < 0 {
		return fmt.Errorf("closure area threshold must not be negative, got %v", c.ClosureAreaThreshold)
	}
	if c.ItemWeightGrams <= 0 {
		return fmt.Errorf("item weight must be positive, got %v", c.ItemWeightGrams)
	}
	if c.ModelInputSize <= 0 {
		return fmt.Errorf("model input size must be positive, got %d", c.ModelInputSize)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadMB)
	}
	if c.ScanTTLMinutes <= 0 {
		return fmt.Errorf("scan ttl must be positive, got %d", c.ScanTTLMinutes)
	}

	switch c.DetectorBackend {
	case BackendDNN, BackendRemote, BackendOllama:
	default:
		return fmt.Errorf("unknown detector backend: %q", c.DetectorBackend)
	}

	if c.SessionSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		c.SessionSecret = hex.EncodeToString(buf)
	}
	return nil
}

// ModelWeights returns the fine-tuned weights if the file exists, otherwise the
// generic base weights.
func (c *Config) ModelWeights() string {
	if _, err := os.Stat(c.ModelPath); err == nil {
		return c.ModelPath
	}
	return c.BaseModelPath
}

// FineTuned reports whether ModelWeights resolves to the fine-tuned artifact.
func (c *Config) FineTuned() bool {
	return c.ModelWeights() == c.ModelPath
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
