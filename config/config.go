package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"fern-api"`
	Port                          int      `env:"PORT" env-default:"8000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"90"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"fern"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version, 0 means latest
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Local token signing secret
	JWTSecret string `env:"JWT_SECRET" env-default:"change-me-in-production"`
	// Local token lifetime
	JWTExpire time.Duration `env:"JWT_EXPIRE" env-default:"168h"`
	// Auth Issuer URL, enables OIDC id tokens when set
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`

	// Redis host
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`
	// Without redis, logout cannot revoke tokens
	RedisEnabled bool `env:"REDIS_ENABLED" env-default:"true"`

	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for sighting events
	KafkaSightingTopic string `env:"KAFKA_SIGHTING_TOPIC" env-default:"fern.sightings"`
	// Publish sighting events
	KafkaEnabled bool `env:"KAFKA_ENABLED" env-default:"false"`

	// Image classifier inference endpoint
	ClassifierURL string `env:"CLASSIFIER_URL" env-default:"http://localhost:8080/v2/models/mobilenet_v2/infer"`
	// Class labels, one per line
	ClassifierLabelsPath string `env:"CLASSIFIER_LABELS_PATH" env-default:"models/imagenet_classes.txt"`
	// logits or probabilities
	ClassifierOutput string `env:"CLASSIFIER_OUTPUT" env-default:"logits"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" env-default:"20s"`

	// Species detection service, disabled without a key
	AnimalDetectAPIKey string        `env:"ANIMAL_DETECT_API_KEY" env-default:""`
	AnimalDetectURL    string        `env:"ANIMAL_DETECT_URL" env-default:"https://www.animaldetect.com/api/v1/detect"`
	DetectorTimeout    time.Duration `env:"DETECTOR_TIMEOUT" env-default:"30s"`

	// Conservation registry, disabled without a key
	IUCNAPIKey      string        `env:"IUCN_API_KEY" env-default:""`
	IUCNURL         string        `env:"IUCN_URL" env-default:"https://apiv3.iucnredlist.org/api/v3"`
	RegistryTimeout time.Duration `env:"REGISTRY_TIMEOUT" env-default:"15s"`

	// Narrative enrichment, disabled without a key
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY" env-default:""`
	OpenAIKey        string        `env:"OPENAI_KEY" env-default:""`
	OpenAIURL        string        `env:"OPENAI_URL" env-default:"https://api.openai.com/v1/chat/completions"`
	OpenAIModel      string        `env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	OpenAIMaxTokens  int           `env:"OPENAI_MAX_TOKENS" env-default:"600"`
	NarrativeTimeout time.Duration `env:"NARRATIVE_TIMEOUT" env-default:"30s"`

	// Largest accepted upload
	ScanMaxImageBytes int64 `env:"SCAN_MAX_IMAGE_BYTES" env-default:"10485760"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return &cfg, nil
}

// NarrativeAPIKey returns OPENAI_API_KEY, falling back to OPENAI_KEY.
func (c *Config) NarrativeAPIKey() string {
	if key := strings.TrimSpace(c.OpenAIAPIKey); key != "" {
		return key
	}
	return strings.Trim(strings.TrimSpace(c.OpenAIKey), `"'`)
}
