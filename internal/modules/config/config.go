package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"signal_engine/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const configFilePathENV = "CONFIG_FILE"

// Config ...
type Config struct {
	DB string `yaml:"db_dsn"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	// Какие символы гоняет автосканер
	Symbols []string `yaml:"symbols"`

	// Внешние коллабораторы
	MarketDataURL   string `yaml:"market_data_url"`
	MarketDataWSURL string `yaml:"market_data_ws_url"`
	ScenarioURL     string `yaml:"scenario_url"`

	HealthAddr string `yaml:"health_addr"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	FillFractionsRaw []float64 `yaml:"fill_fractions"`

	// Тюнинг ядра — из ENV (см. дефолты ниже)
	CooldownPerSymbol    time.Duration
	MaxSignalsPerHour    int
	MaxActivePerSymbol   int
	PriceRefreshInterval time.Duration
	MonitorPollInterval  time.Duration
	PriceCacheTTL        time.Duration
	PersistenceRetryMax  int
	PersistenceRetryBase time.Duration
	ScanInterval         time.Duration
	ScanConcurrency      int
	RehydrateMaxAge      time.Duration
	RequestTimeout       time.Duration

	FillFractions [3]float64
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Config{
		Symbols:         []string{"BTCUSDT"},
		MarketDataURL:   getenvDefault("MARKET_DATA_URL", "https://api.bybit.com"),
		MarketDataWSURL: os.Getenv("MARKET_DATA_WS_URL"),
		ScenarioURL:     os.Getenv("SCENARIO_URL"),
		HealthAddr:      getenvDefault("HEALTH_ADDR", ":8080"),

		CooldownPerSymbol:    durationFromEnv("COOLDOWN_PER_SYMBOL", "1800s"),
		MaxSignalsPerHour:    intFromEnv("MAX_SIGNALS_PER_HOUR", 10),
		MaxActivePerSymbol:   intFromEnv("MAX_ACTIVE_PER_SYMBOL", 2),
		PriceRefreshInterval: durationFromEnv("PRICE_REFRESH_INTERVAL", "2s"),
		MonitorPollInterval:  durationFromEnv("MONITOR_POLL_INTERVAL", "5s"),
		PriceCacheTTL:        durationFromEnv("PRICE_CACHE_TTL", "5s"),
		PersistenceRetryMax:  intFromEnv("PERSISTENCE_RETRY_MAX", 5),
		PersistenceRetryBase: durationFromEnv("PERSISTENCE_RETRY_BASE", "150ms"),
		ScanInterval:         durationFromEnv("SCAN_INTERVAL", "300s"),
		ScanConcurrency:      intFromEnv("SCAN_CONCURRENCY", 4),
		RehydrateMaxAge:      durationFromEnv("REHYDRATE_MAX_AGE", "24h"),
		RequestTimeout:       durationFromEnv("REQUEST_TIMEOUT", "10s"),
	}

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	if file, err := os.Open("configs/" + configFileName); err == nil {
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("decode config file: %w", err)
		}
		_ = file.Close()
	}

	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.DB = dsn
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		config.Symbols = splitSymbols(v)
	}

	if err := config.resolveFractions(); err != nil {
		return nil, err
	}

	return &config, nil
}

// resolveFractions: yaml/env список -> [3]float64 + валидация суммы.
func (c *Config) resolveFractions() error {
	fr := [3]float64{0.25, 0.50, 0.25}

	if v := os.Getenv("FILL_FRACTIONS"); v != "" {
		parts := strings.Split(v, ",")
		if len(parts) != 3 {
			return fmt.Errorf("FILL_FRACTIONS: want 3 values, got %d", len(parts))
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return fmt.Errorf("FILL_FRACTIONS[%d]: %w", i, err)
			}
			fr[i] = f
		}
	} else if len(c.FillFractionsRaw) == 3 {
		copy(fr[:], c.FillFractionsRaw)
	} else if len(c.FillFractionsRaw) != 0 {
		return fmt.Errorf("fill_fractions: want 3 values, got %d", len(c.FillFractionsRaw))
	}

	if err := models.ValidateFractions(fr); err != nil {
		return err
	}
	c.FillFractions = fr
	return nil
}

func splitSymbols(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(strings.ToUpper(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
