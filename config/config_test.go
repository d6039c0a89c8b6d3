package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Booking.MaxActive)
	assert.Equal(t, 365, cfg.Booking.HorizonDays)
	assert.Equal(t, []int{24, 6, 3, 1}, cfg.Reminder.ThresholdsHours)
	assert.Equal(t, 5*time.Minute, cfg.Reminder.PollInterval)
	assert.Equal(t, 6*time.Hour, cfg.Worker.ExpirySweepInterval)
	assert.Equal(t, 90, cfg.Worker.LogRetentionDays)
	assert.Equal(t, "UTC", cfg.App.Timezone)
}

func TestParseConfigEnvOverridesSecrets(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("database.password", "from-yaml")
	v.Set("telegram.bot_token", "yaml-token")

	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	// The env value wins when set; an empty env falls back to the file.
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "yaml-token", cfg.Telegram.BotToken)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("BOOKER_TEST_KEY", "value")

	assert.Equal(t, "value", GetEnv("BOOKER_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("BOOKER_TEST_MISSING", "fallback"))
}
