package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. TOUR_SERVICE_PORT.
const EnvPrefix = "TOUR"

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required,min=1,max=65535"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// DSN returns the gorm/pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Brokers       []string `validate:"required,min=1,dive,required"`
	GroupPrefix   string
	LocationTopic string `validate:"required"`
	TourTopic     string `validate:"required"`
	Enabled       bool
}

// EngineConfig tunes the tracking engine.
type EngineConfig struct {
	DefaultTriggerRadiusM float64 `validate:"gt=0"`
	MaxRegions            int     `validate:"gte=0"`
	SpeechWPM             int     `validate:"gte=0"`
	NarrationLocale       string  `validate:"required"`
	RouteSeedPath         string
	// QueueSettleDelay holds back the first narration so near-simultaneous
	// arrivals are sorted before any plays.
	QueueSettleDelay time.Duration `validate:"gte=0"`
}

// ServiceConfig holds all configuration for the tour service.
type ServiceConfig struct {
	Port        string `validate:"required"`
	AppEnv      string `validate:"oneof=development staging production test"`
	DBConfig    DatabaseConfig
	KafkaConfig KafkaConfig
	Engine      EngineConfig
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*ServiceConfig, error) {
	// .env is optional outside development.
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tour_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_ENABLED", true)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "")
	v.SetDefault("KAFKA_LOCATION_TOPIC", "tour.locations")
	v.SetDefault("KAFKA_TOUR_TOPIC", "tour.events")
	v.SetDefault("ROUTE_SEED_PATH", "")
	v.SetDefault("DEFAULT_TRIGGER_RADIUS_M", 30.0)
	v.SetDefault("MAX_REGIONS", 20)
	v.SetDefault("SPEECH_WPM", 150)
	v.SetDefault("NARRATION_LOCALE", "en")
	v.SetDefault("QUEUE_SETTLE_DELAY", "1500ms")
	return v
}

// FromViper builds and validates a ServiceConfig from v.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:       splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix:   v.GetString("KAFKA_GROUP_PREFIX"),
			LocationTopic: v.GetString("KAFKA_LOCATION_TOPIC"),
			TourTopic:     v.GetString("KAFKA_TOUR_TOPIC"),
			Enabled:       v.GetBool("KAFKA_ENABLED"),
		},
		Engine: EngineConfig{
			DefaultTriggerRadiusM: v.GetFloat64("DEFAULT_TRIGGER_RADIUS_M"),
			MaxRegions:            v.GetInt("MAX_REGIONS"),
			SpeechWPM:             v.GetInt("SPEECH_WPM"),
			NarrationLocale:       v.GetString("NARRATION_LOCALE"),
			RouteSeedPath:         v.GetString("ROUTE_SEED_PATH"),
			QueueSettleDelay:      v.GetDuration("QUEUE_SETTLE_DELAY"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// normalizePort accepts "8080" or ":8080".
func normalizePort(p string) string {
	if p == "" || strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
