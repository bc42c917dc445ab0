package config

import (
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all pipeline configuration.
type Config struct {
	Extraction ExtractionConfig
	OCR        OCRConfig
	Review     ReviewConfig
}

type ExtractionConfig struct {
	// EngineTimeout bounds each adapter invocation; a timed-out adapter is
	// treated like a failed one and excluded from consensus.
	EngineTimeout time.Duration
	// GoodEnoughConfidence lets multi-engine extraction stop early once a
	// single adapter clears this score.
	GoodEnoughConfidence float64
}

type OCRConfig struct {
	TesseractPath string
	PdftoppmPath  string
	DPI           int
	MaxPages      int
}

type ReviewConfig struct {
	AutoApproveThreshold float64
	SpotCheckThreshold   float64
	ReviewThreshold      float64
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			EngineTimeout:        getEnvAsDuration("ENGINE_TIMEOUT", 45*time.Second),
			GoodEnoughConfidence: getEnvAsFloat("GOOD_ENOUGH_CONFIDENCE", 98),
		},
		OCR: OCRConfig{
			TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
			PdftoppmPath:  getEnv("PDFTOPPM_PATH", "pdftoppm"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 50),
		},
		Review: ReviewConfig{
			AutoApproveThreshold: getEnvAsFloat("REVIEW_AUTO_APPROVE", 95),
			SpotCheckThreshold:   getEnvAsFloat("REVIEW_SPOT_CHECK", 85),
			ReviewThreshold:      getEnvAsFloat("REVIEW_FLAG", 70),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
