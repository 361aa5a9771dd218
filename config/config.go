package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Redis        RedisConfig
	S3           S3Config
	OCR          OCRConfig
	FaceMatch    FaceMatchConfig
	Kafka        KafkaConfig
	Verification VerificationConfig
	KYC          KYCConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	Environment    string
	RequestsPerSec float64 // admin API throttle per client IP
	RequestBurst   int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type OCRConfig struct {
	PreferredProvider string // google_vision, tesseract
	FallbackProvider  string
	GoogleAPIKey      string
	TesseractPath     string
	TesseractLangs    string
}

type FaceMatchConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	Username string
	Password string
}

type VerificationConfig struct {
	Weights           scoring.Weights
	RetentionDays     int
	RetentionSchedule string // cron spec
	ReviewFeedEnabled bool
}

type KYCConfig struct {
	MaxRetries           int
	RetryCooldown        time.Duration
	StepAttemptsPerHour  int
	RapidSubmissionLimit int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			RequestsPerSec: parseFloat(getEnv("API_REQUESTS_PER_SEC", "10"), 10),
			RequestBurst:   parseInt(getEnv("API_REQUEST_BURST", "50"), 50),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "fleetverify"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
			Issuer: getEnv("JWT_ISSUER", "fleetverify-admin"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "fleetverify-documents"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		OCR: OCRConfig{
			PreferredProvider: getEnv("OCR_PROVIDER", "google_vision"),
			FallbackProvider:  getEnv("OCR_FALLBACK_PROVIDER", "tesseract"),
			GoogleAPIKey:      getEnv("GOOGLE_VISION_API_KEY", ""),
			TesseractPath:     getEnv("TESSERACT_PATH", "tesseract"),
			TesseractLangs:    getEnv("TESSERACT_LANGS", "eng"),
		},
		FaceMatch: FaceMatchConfig{
			APIKey:  getEnv("FACE_MATCH_API_KEY", ""),
			BaseURL: getEnv("FACE_MATCH_BASE_URL", "https://api.iapp.co.th/v3/store/ekyc/face-and-id-card-verification"),
			Timeout: parseDuration(getEnv("FACE_MATCH_TIMEOUT", "20s"), 20*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:  getEnv("KAFKA_ENABLED", "false") == "true",
			Brokers:  parseSlice(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:    getEnv("KAFKA_VERIFICATION_TOPIC", "driver.verification.events"),
			Username: getEnv("KAFKA_USERNAME", ""),
			Password: getEnv("KAFKA_PASSWORD", ""),
		},
		Verification: VerificationConfig{
			Weights: scoring.Weights{
				OCRAccuracy:           parseFloat(getEnv("VERIFICATION_WEIGHT_OCR", "0.4"), 0.4),
				FaceMatch:             parseFloat(getEnv("VERIFICATION_WEIGHT_FACE", "0.4"), 0.4),
				ValidationConsistency: parseFloat(getEnv("VERIFICATION_WEIGHT_VALIDATION", "0.2"), 0.2),
			},
			RetentionDays:     parseInt(getEnv("VERIFICATION_RETENTION_DAYS", "365"), 365),
			RetentionSchedule: getEnv("VERIFICATION_RETENTION_SCHEDULE", "30 3 * * *"),
			ReviewFeedEnabled: getEnv("REVIEW_FEED_ENABLED", "true") == "true",
		},
		KYC: KYCConfig{
			MaxRetries:           parseInt(getEnv("KYC_MAX_RETRIES", "3"), 3),
			RetryCooldown:        parseDuration(getEnv("KYC_RETRY_COOLDOWN", "24h"), 24*time.Hour),
			StepAttemptsPerHour:  parseInt(getEnv("KYC_STEP_ATTEMPTS_PER_HOUR", "5"), 5),
			RapidSubmissionLimit: parseInt(getEnv("KYC_RAPID_SUBMISSION_LIMIT", "3"), 3),
		},
	}

	if err := config.Verification.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid verification weights: %w", err)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid number %s, using default %v", s, fallback)
		return fallback
	}
	return v
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
