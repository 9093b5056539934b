package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For duration settings

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	AppBaseURL string // Public URL used in reset links
	IsProd     bool   // Is production environment

	DBDriver    string // mysql, postgres or memory
	DBUser      string // Database user
	DBPassword  string // Database password
	DBHost      string // Database host
	DBPort      string // Database port
	DBName      string // Database name
	DatabaseURL string // Full Postgres DSN, overrides the parts above

	JWTSecret string        // JWT secret key
	JWTTTL    time.Duration // Session credential lifetime

	RedisAddr string // Redis server address, empty disables Redis
	RedisPass string // Redis password
	RedisDB   int    // Redis database number

	PredictionLockBuffer time.Duration // Predictions close this long before kickoff
	StoreTimeout         time.Duration // Upper bound for one unit of store work
	ResetTokenTTL        time.Duration // Password reset token lifetime
	SweepInterval        time.Duration // Reconciliation sweep period, 0 disables

	ResendAPIKey string // Mail API key, empty logs mails instead
	MailFrom     string // Sender address

	S3Endpoint      string // S3-compatible endpoint, empty for AWS
	S3Region        string // Bucket region
	S3Bucket        string // Team image bucket, empty disables uploads
	S3AccessKeyID   string // Access key
	S3SecretKey     string // Secret key
	S3PublicBaseURL string // Public URL prefix for uploaded objects

	BootstrapAdminEmail string // Promoted to admin by the migrate command
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),                       // Application port
		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"), // Public URL
		IsProd:     os.Getenv("IS_PROD") == "true",                   // Is production environment

		DBDriver:    getEnv("DB_DRIVER", "mysql"), // Database driver
		DBUser:      os.Getenv("DB_USER"),         // Database user
		DBPassword:  os.Getenv("DB_PASSWORD"),     // Database password
		DBHost:      os.Getenv("DB_HOST"),         // Database host
		DBPort:      os.Getenv("DB_PORT"),         // Database port
		DBName:      os.Getenv("DB_NAME"),         // Database name
		DatabaseURL: os.Getenv("DATABASE_URL"),    // Postgres DSN

		JWTSecret: os.Getenv("JWT_SECRET"),               // JWT secret key
		JWTTTL:    getDuration("JWT_TTL", 72*time.Hour), // Credential lifetime

		RedisAddr: os.Getenv("REDIS_ADDR"), // Redis server address
		RedisPass: os.Getenv("REDIS_PASS"), // Redis password
		RedisDB:   redisDB,                 // Redis database number

		PredictionLockBuffer: getDuration("PREDICTION_LOCK_BUFFER", 30*time.Minute), // Lock buffer
		StoreTimeout:         getDuration("STORE_TIMEOUT", 5*time.Second),           // Store timeout
		ResetTokenTTL:        getDuration("RESET_TOKEN_TTL", 15*time.Minute),        // Reset token lifetime
		SweepInterval:        getDuration("SWEEP_INTERVAL", 10*time.Minute),         // Sweep period

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),                                // Mail API key
		MailFrom:     getEnv("MAIL_FROM", "support <onboarding@resend.dev>"), // Sender

		S3Endpoint:      os.Getenv("S3_ENDPOINT"),            // S3 endpoint
		S3Region:        getEnv("S3_REGION", "auto"),         // S3 region
		S3Bucket:        os.Getenv("S3_BUCKET"),              // S3 bucket
		S3AccessKeyID:   os.Getenv("S3_ACCESS_KEY_ID"),       // S3 access key
		S3SecretKey:     os.Getenv("S3_SECRET_ACCESS_KEY"),   // S3 secret key
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),     // Public URL prefix

		BootstrapAdminEmail: os.Getenv("BOOTSTRAP_ADMIN_EMAIL"), // First admin
	}
}

// MySQLDSN builds the Data Source Name for MySQL
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&loc=UTC"
}

// PostgresDSN returns DATABASE_URL or builds a key/value DSN from the parts
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
		" dbname=" + c.DBName + " port=" + c.DBPort + " sslmode=disable TimeZone=UTC"
}

// getEnv returns the variable or a default when unset
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration parses a Go duration ("30m") or falls back to def
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
