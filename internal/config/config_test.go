package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, uint8(0x3C), cfg.OLEDAddr)
	assert.Equal(t, int64(400), cfg.I2CSpeedKHz)
	assert.Equal(t, DriverAdapter, cfg.DisplayDriver)
	assert.Equal(t, ":80", cfg.HTTPAddr)
	assert.Equal(t, "Pico W HTTP", cfg.Product)
	assert.Equal(t, 2, cfg.MaxSessions)
	assert.Equal(t, "wlan0", cfg.WiFiInterface)
	assert.Equal(t, "PicoW", cfg.HostnamePrefix)
	assert.NotEmpty(t, cfg.StatePath)
	assert.False(t, cfg.Notifications())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(envOf(map[string]string{
		"OLED_ADDR":          "0x3d",
		"DISPLAY_DRIVER":     "periph",
		"HTTP_ADDR":          "127.0.0.1:8080",
		"HTTPD_MAX_SESSIONS": "4",
		"TELEGRAM_TOKEN":     "tok",
		"TELEGRAM_CHANNELID": "-100123",
	}))
	require.NoError(t, err)

	assert.Equal(t, uint8(0x3D), cfg.OLEDAddr)
	assert.Equal(t, DriverPeriph, cfg.DisplayDriver)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, 4, cfg.MaxSessions)
	assert.Equal(t, int64(-100123), cfg.TelegramChannelID)
	assert.True(t, cfg.Notifications())
}

func TestLoad_Invalid(t *testing.T) {
	long := make([]byte, MaxProductLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := map[string]map[string]string{
		"8-bit address":   {"OLED_ADDR": "0x78"},
		"garbage address": {"OLED_ADDR": "oled"},
		"speed":           {"I2C_SPEED_KHZ": "0"},
		"driver":          {"DISPLAY_DRIVER": "u8g2"},
		"sessions":        {"HTTPD_MAX_SESSIONS": "-1"},
		"product":         {"HTTPD_PRODUCT": string(long)},
		"channel":         {"TELEGRAM_TOKEN": "tok", "TELEGRAM_CHANNELID": "abc"},
		"token only":      {"TELEGRAM_TOKEN": "tok"},
		"channel only":    {"TELEGRAM_CHANNELID": "1"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(envOf(env))
			assert.Error(t, err)
		})
	}
}
