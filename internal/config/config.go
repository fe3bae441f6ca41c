package config

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	PublicBaseURL   string
}

type TTSConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type TurnstileConfig struct {
	Secret    string
	VerifyURL string
}

type Config struct {
	DB_URL      string
	Port        string
	JWTSecret   string
	Environment string
	// Static bearer secrets guarding the REST surface.
	ClientAuthSecret string
	BookAuthSecret   string
	CorsConfig       cors.Options
	R2               R2Config
	TTS              TTSConfig
	Turnstile        TurnstileConfig
}

// Load reads the env file (if present) and assembles the full configuration.
// Components receive the pieces they need explicitly; there is no package-level
// config singleton.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Config{
		DB_URL:           getEnv("DB_URL", ""),
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		Environment:      getEnv("ENV", "development"),
		ClientAuthSecret: getEnv("CLIENT_AUTH", ""),
		BookAuthSecret:   getEnv("BOOK_AUTH", ""),
		CorsConfig:       CorsConfig(),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			PublicBaseURL:   getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		TTS: TTSConfig{
			BaseURL:      getEnv("TTS_BASE_URL", ""),
			ClientID:     getEnv("TTS_CLIENT_ID", ""),
			ClientSecret: getEnv("TTS_CLIENT_SECRET", ""),
			TokenURL:     getEnv("TTS_TOKEN_URL", ""),
		},
		Turnstile: TurnstileConfig{
			Secret:    getEnv("TURNSTILE_SECRET", ""),
			VerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		},
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://lectorium.app"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
