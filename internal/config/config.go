package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	// StoreURL is the public base URL of the storefront, used to build
	// return, checkout and callback URLs.
	StoreURL string

	// Bootstrap merchant credentials, used until settings are saved by an admin.
	MerchantID     string
	APIKey         string
	APISecret      string
	TestMode       bool
	VerifyCallback bool

	GatewayTestBaseURL string
	GatewayLiveBaseURL string

	JWTSecret         string
	RedisAddr         string
	RedisPassword     string
	InternalSecretKey string

	// CORSOrigin is the admin frontend origin allowed to call the API.
	CORSOrigin string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getEnv("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),
		StoreURL:   strings.TrimRight(os.Getenv("STORE_URL"), "/"),

		MerchantID:     os.Getenv("ABSA_MERCHANT_ID"),
		APIKey:         os.Getenv("ABSA_API_KEY"),
		APISecret:      os.Getenv("ABSA_API_SECRET"),
		TestMode:       getBool("ABSA_TEST_MODE", true),
		VerifyCallback: getBool("ABSA_VERIFY_CALLBACKS", false),

		GatewayTestBaseURL: os.Getenv("ABSA_TEST_BASE_URL"),
		GatewayLiveBaseURL: os.Getenv("ABSA_LIVE_BASE_URL"),

		JWTSecret:         os.Getenv("SECRET_KEY"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),

		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getBool accepts the usual strconv forms plus "yes"/"no".
func getBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "yes":
		return true
	case "no":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
