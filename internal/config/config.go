package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("pico.config")

// MaxProductLength keeps the status body well inside the response buffer.
const MaxProductLength = 64

const (
	DriverAdapter = "adapter"
	DriverPeriph  = "periph"
)

type Config struct {
	StatePath string
	LogConfig string

	I2CBus        string
	I2CSpeedKHz   int64
	OLEDAddr      uint8
	DisplayDriver string
	FontPath      string

	HTTPAddr    string
	Product     string
	MaxSessions int
	LEDGPIO     string

	WiFiSSID       string
	WiFiPassword   string
	WiFiInterface  string
	HostnamePrefix string

	TelegramToken     string
	TelegramChannelID int64
}

// Get loads the config from the environment, exits on invalid values.
func Get() *Config {
	cfg, err := Load(os.Getenv)
	if err != nil {
		logger.Criticalf("invalid configuration: %v", err)
		os.Exit(1)
	}

	return cfg
}

// Load reads every setting through getenv, missing optional values get their defaults.
func Load(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		StatePath:      env("STATE_PATH", filepath.Join(os.TempDir(), "pico-demo")),
		LogConfig:      getenv("LOG_CONFIG"),
		I2CBus:         getenv("I2C_BUS"),
		DisplayDriver:  env("DISPLAY_DRIVER", DriverAdapter),
		FontPath:       getenv("FONT_PATH"),
		HTTPAddr:       env("HTTP_ADDR", ":80"),
		Product:        env("HTTPD_PRODUCT", "Pico W HTTP"),
		LEDGPIO:        getenv("LED_GPIO"),
		WiFiSSID:       getenv("WIFI_SSID"),
		WiFiPassword:   getenv("WIFI_PASSWORD"),
		WiFiInterface:  env("WIFI_INTERFACE", "wlan0"),
		HostnamePrefix: env("HOSTNAME_PREFIX", "PicoW"),
		TelegramToken:  getenv("TELEGRAM_TOKEN"),
	}

	addr, err := strconv.ParseUint(env("OLED_ADDR", "0x3C"), 0, 8)
	if err != nil || addr > 0x7F {
		return nil, fmt.Errorf("OLED_ADDR must be a 7-bit address: %q", getenv("OLED_ADDR"))
	}
	cfg.OLEDAddr = uint8(addr)

	cfg.I2CSpeedKHz, err = strconv.ParseInt(env("I2C_SPEED_KHZ", "400"), 10, 64)
	if err != nil || cfg.I2CSpeedKHz <= 0 {
		return nil, fmt.Errorf("I2C_SPEED_KHZ must be a positive number: %q", getenv("I2C_SPEED_KHZ"))
	}

	switch cfg.DisplayDriver {
	case DriverAdapter, DriverPeriph:
	default:
		return nil, fmt.Errorf("DISPLAY_DRIVER must be %q or %q: %q", DriverAdapter, DriverPeriph, cfg.DisplayDriver)
	}

	ms, err := strconv.Atoi(env("HTTPD_MAX_SESSIONS", "2"))
	if err != nil || ms <= 0 {
		return nil, fmt.Errorf("HTTPD_MAX_SESSIONS must be a positive number: %q", getenv("HTTPD_MAX_SESSIONS"))
	}
	cfg.MaxSessions = ms

	if len(cfg.Product) > MaxProductLength {
		return nil, fmt.Errorf("HTTPD_PRODUCT longer than %d bytes", MaxProductLength)
	}

	if cid := getenv("TELEGRAM_CHANNELID"); cid != "" {
		cfg.TelegramChannelID, err = strconv.ParseInt(cid, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed parsing TELEGRAM_CHANNELID: %v", err)
		}
	}
	if (cfg.TelegramToken == "") != (cfg.TelegramChannelID == 0) {
		return nil, fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHANNELID have to be set together")
	}

	return cfg, nil
}

// Notifications reports whether telegram notifications are configured.
func (c *Config) Notifications() bool {
	return c.TelegramToken != ""
}
