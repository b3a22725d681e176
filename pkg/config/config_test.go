package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreSQL, cfg.Store.Backend)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 10*time.Minute, cfg.Cache.CatalogTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, int64(0), cfg.Incentive.SystemActorID)
	assert.InDelta(t, 0.1, cfg.Tracing.SampleRatio, 0.0001)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_BACKEND", "MEMORY")
	v.Set("DB_DRIVER", "SQLite")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("OTEL_SAMPLER_RATIO", 4)
	v.Set("JWT_EXPIRATION", "not-a-duration")
	v.Set("INCENTIVE_SYSTEM_ACTOR_ID", 99)

	cfg := fromViper(v)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, int64(99), cfg.Incentive.SystemActorID)
}
