package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppName                       string        `env:"APP_NAME" env-default:"organizer-api"`
	Port                          int           `env:"PORT" env-default:"3000"`
	LogLevel                      string        `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool          `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int           `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int           `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int           `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	MaxHeaderBytes                int           `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int           `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	BodyLimit                     string        `env:"HTTP_SERVER_BODY_LIMIT" env-default:"10M"`
	AllowOrigins                  []string      `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string      `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE"`
	StartupMaxAttempts            int           `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`
	ShutdownTimeout               time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"organizer"`
	// Database SSL mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	// Database Migration Version, 0 means latest
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis host, empty disables submission locking and the contact cache
	RedisHost string `env:"REDIS_HOST" env-default:""`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Kafka brokers (comma-separated), empty disables event publishing and the CRM sync consumer
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:""`
	// Kafka topic for submission status events
	KafkaSubmissionTopic string `env:"KAFKA_SUBMISSION_TOPIC" env-default:"submission-events"`
	// Kafka consumer group for the CRM sync
	KafkaConsumerGroup string `env:"KAFKA_CONSUMER_GROUP" env-default:"organizer-crm-sync"`

	// CRM REST base url, empty disables the CRM sync
	CRMBaseURL string `env:"CRM_BASE_URL" env-default:""`
	// CRM private integration token
	CRMAPIToken string `env:"CRM_API_TOKEN" env-default:""`
	// CRM API version header
	CRMAPIVersion string `env:"CRM_API_VERSION" env-default:"2021-07-28"`
	// CRM location (sub-account) id
	CRMLocationID string `env:"CRM_LOCATION_ID" env-default:""`
	// Per form type link custom field ids, "personal=fieldA,business=fieldB"
	CRMLinkFieldIDs string `env:"CRM_LINK_FIELD_IDS" env-default:""`
	// How long a contact id lookup by email is cached
	CRMContactCacheTTL time.Duration `env:"CRM_CONTACT_CACHE_TTL" env-default:"1h"`
	// Custom field receiving the url of the submitted document, empty disables the upload
	CRMDocumentFieldID string `env:"CRM_DOCUMENT_FIELD_ID" env-default:""`
	// Calls allowed per CRM_RATE_WINDOW across all instances, 0 disables the limit (needs Redis)
	CRMRateLimit int `env:"CRM_RATE_LIMIT" env-default:"100"`
	// Sliding window for CRM_RATE_LIMIT
	CRMRateWindow time.Duration `env:"CRM_RATE_WINDOW" env-default:"10s"`
	// Frontend base url used to build resume links
	FrontendBaseURL string `env:"FRONTEND_BASE_URL" env-default:"http://localhost:5173"`

	// Fernet key (url-safe base64 of 32 bytes) used for sensitive answers
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// Auth Enabled - when false, trusts X-Tenant-ID and X-User-* headers
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// Auth Issuer URL
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`
	// Realm role that marks staff users
	AuthStaffRole string `env:"AUTH_STAFF_ROLE" env-default:"staff"`

	// Submission lock ttl
	LockTTL time.Duration `env:"LOCK_TTL" env-default:"30s"`
	// How long a mutation waits for the submission lock
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" env-default:"5s"`

	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
	// Comma-separated key=value pairs
	OTLPHeaders string `env:"OTLP_HEADERS" env-default:""`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read config from environment")
	}
	if cfg.EncryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY is required")
	}
	if cfg.DatabaseMigrationVersion < 0 {
		return nil, errors.New("DB_MIGRATION_VERSION must not be negative")
	}

	return &cfg, nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) KafkaEnabled() bool {
	return c.KafkaBrokers != ""
}

func (c *Config) CRMEnabled() bool {
	return c.CRMBaseURL != ""
}

// LinkFieldIDs parses CRM_LINK_FIELD_IDS into form type -> custom field id.
func (c *Config) LinkFieldIDs() map[string]string {
	ids := map[string]string{}
	for _, pair := range strings.Split(c.CRMLinkFieldIDs, ",") {
		formType, fieldID, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || formType == "" || fieldID == "" {
			continue
		}
		ids[strings.TrimSpace(formType)] = strings.TrimSpace(fieldID)
	}
	return ids
}

func (c *Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
