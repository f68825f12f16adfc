package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4=")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CRM_LINK_FIELD_IDS", "personal=fieldA, business = fieldB,broken,=x")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER_NAME", "organizer")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "organizer")
	t.Setenv("DB_SSL_MODE", "disable")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("CRM_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "submission-events", cfg.KafkaSubmissionTopic)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.CRMEnabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.Equal(t, map[string]string{"personal": "fieldA", "business": "fieldB"}, cfg.LinkFieldIDs())
	assert.Equal(t, "host=db port=5432 user=organizer password=secret dbname=organizer sslmode=disable", cfg.DatabaseDSN())
}

func TestLoadRequiresEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	require.NoError(t, os.Unsetenv("ENCRYPTION_KEY"))

	_, err := Load()
	assert.ErrorContains(t, err, "ENCRYPTION_KEY")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4=")
	t.Setenv("PORT", "")
	t.Setenv("CRM_RATE_LIMIT", "")
	t.Setenv("LOCK_TTL", "")
	t.Setenv("HTTP_SERVER_ALLOW_METHODS", "")
	t.Setenv("DB_MIGRATION_AUTO_ROLLBACK", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 100, cfg.CRMRateLimit)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH", "DELETE"}, cfg.AllowMethods)
	assert.True(t, cfg.DatabaseMigrationAutoRollback)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4=")
	t.Setenv("CRM_RATE_LIMIT", "0")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("DB_MIGRATION_VERSION", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.CRMRateLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 4, cfg.DatabaseMigrationVersion)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4=")

	t.Run("duration", func(t *testing.T) {
		t.Setenv("LOCK_TTL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative migration version", func(t *testing.T) {
		t.Setenv("DB_MIGRATION_VERSION", "-1")
		_, err := Load()
		assert.ErrorContains(t, err, "DB_MIGRATION_VERSION")
	})
}
