package Config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "HOURLY_RATE", "GENERATION_SCHEDULE", "SCHEDULER_CONCURRENCY", "TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "0 0 6 * * *", cfg.Scheduler.GenerationSchedule)
	assert.Equal(t, 4, cfg.Scheduler.Concurrency)
	assert.Equal(t, "UTC", cfg.Scheduler.Location.String())
	assert.True(t, cfg.HourlyRate.Equal(decimal.NewFromInt(500)))
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("HOURLY_RATE", "42.5")
	t.Setenv("SCHEDULER_RUN_ON_START", "true")
	t.Setenv("SCHEDULER_CONCURRENCY", "not-a-number")
	t.Setenv("TIMEZONE", "Africa/Tunis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "42.5", cfg.HourlyRate.String())
	assert.True(t, cfg.Scheduler.RunOnStart)
	assert.Equal(t, 4, cfg.Scheduler.Concurrency)
	assert.Equal(t, "Africa/Tunis", cfg.Scheduler.Location.String())
}

func TestLoadRejectsBadRate(t *testing.T) {
	t.Setenv("HOURLY_RATE", "cheap")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, key := range []string{"HOURLY_RATE", "GENERATION_SCHEDULE", "REMINDER_SCHEDULE", "DB_DRIVER", "APP_ENV", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	cases := map[string]func(c *Config){
		"unknown driver":      func(c *Config) { c.Database.Driver = "oracle" },
		"zero rate":           func(c *Config) { c.HourlyRate = decimal.Zero },
		"prod without secret": func(c *Config) { c.Server.Environment = "production" },
		"bad schedule":        func(c *Config) { c.Scheduler.GenerationSchedule = "every day" },
		"wide advance":        func(c *Config) { c.Scheduler.AdvanceDays = 31 },
		"no workers":          func(c *Config) { c.Scheduler.Concurrency = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
