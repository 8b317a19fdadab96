package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret  string
	SessionTTLMins int

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	GatewayProvider   string
	GatewayBaseURL    string
	GatewaySecretKey  string
	GatewayTimeoutSec int
	GatewayCallback   string

	BlobDir           string
	AllowedExtensions []string

	Currency string

	Email EmailConfig
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "lumenis"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret:  strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		SessionTTLMins: getenvInt("SESSION_TTL_MINUTES", 720),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "lumenis"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME_MIN", 30),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		GatewayProvider:   strings.ToLower(getenv("PAYMENT_GATEWAY", "paystack")),
		GatewayBaseURL:    getenv("PAYMENT_GATEWAY_BASE_URL", "https://api.paystack.co"),
		GatewaySecretKey:  strings.TrimSpace(getenv("PAYMENT_GATEWAY_SECRET_KEY", "")),
		GatewayTimeoutSec: getenvInt("PAYMENT_GATEWAY_TIMEOUT_SEC", 15),
		GatewayCallback:   getenv("PAYMENT_GATEWAY_CALLBACK_URL", ""),

		BlobDir:           getenv("BLOB_DIR", "./data/blobs"),
		AllowedExtensions: getenvList("ALLOWED_FILE_EXTENSIONS", "pdf,doc,docx,ppt,pptx,xls,xlsx,png,jpg,jpeg,gif,txt,zip,mp4"),

		Currency: strings.ToUpper(getenv("CURRENCY", "NGN")),

		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@lumenis.app"),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key, def string) []string {
	raw := getenv(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
