package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("config")

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "100-M", cfg.RateLimit)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:accounts.db")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	v := viper.New()
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("config")
	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
}

func TestConfigFileOverridesEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
redis:
  token_ttl: 30s
storage:
  avatar_dir: /srv/avatars
role_permissions:
  annotator: [organizations_view]
`), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Redis.TokenTTL)
	assert.Equal(t, "/srv/avatars", cfg.Storage.AvatarDir)
	assert.Equal(t, "/data/avatars", cfg.Storage.AvatarBaseURL)
	assert.Equal(t, []string{"organizations_view"}, cfg.RolePermissions["annotator"])
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Kafka.Enabled = true
	cfg.Kafka.NewsletterTopic = ""
	assert.Error(t, cfg.Validate())
}
