package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "tour.locations", cfg.KafkaConfig.LocationTopic)
	assert.Equal(t, 30.0, cfg.Engine.DefaultTriggerRadiusM)
	assert.Equal(t, 150, cfg.Engine.SpeechWPM)
	assert.Equal(t, 1500*time.Millisecond, cfg.Engine.QueueSettleDelay)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=tour_db sslmode=disable", cfg.DBConfig.DSN())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TOUR_SERVICE_PORT", ":9000")
	t.Setenv("TOUR_APP_ENV", "production")
	t.Setenv("TOUR_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TOUR_MAX_REGIONS", "5")
	t.Setenv("TOUR_SPEECH_WPM", "0")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, 5, cfg.Engine.MaxRegions)
	assert.Equal(t, 0, cfg.Engine.SpeechWPM)
}

func TestValidationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown env", "TOUR_APP_ENV", "qa"},
		{"zero radius", "TOUR_DEFAULT_TRIGGER_RADIUS_M", "0"},
		{"bad sslmode", "TOUR_DB_SSLMODE", "sometimes"},
		{"no brokers", "TOUR_KAFKA_BROKERS", " , "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromViper(newViper())
			assert.Error(t, err)
		})
	}
}
