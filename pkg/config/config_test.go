package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 366, cfg.Occurrences.MaxRangeDays)
	assert.Equal(t, 50, cfg.Occurrences.DefaultPageSize)
	assert.Equal(t, 200, cfg.Occurrences.MaxPageSize)
	assert.Equal(t, "UTC", cfg.Occurrences.Timezone)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "0 3 * * *", cfg.Purge.Schedule)
	assert.Equal(t, 720*time.Hour, cfg.Purge.Retention)
	assert.True(t, cfg.Exports.Enabled)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("OCCURRENCES_MAX_PAGE_SIZE", 500)
	v.Set("OCCURRENCES_EXPANSION_WORKERS", 0)
	v.Set("OCCURRENCE_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 500, cfg.Occurrences.MaxPageSize)
	assert.Equal(t, 4, cfg.Occurrences.ExpansionWorkers)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
