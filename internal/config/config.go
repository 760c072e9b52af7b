package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AppEnv                string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ViewCacheTTLSeconds   int
	AuthSecret            string
	AccessTokenTTLMinutes int
	ClinicTimezone        string
	StockAlertSchedule    string
	MetricsEnabled        bool
	AutoMigrate           bool

	// BootstrapAdminPassword seeds the first admin account when the user
	// store is empty.
	BootstrapAdminPassword string
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"APP_ENV":                  "prod",
	"ALLOWED_ORIGIN":           "http://127.0.0.1:3000",
	"DATABASE_URL":             "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"VIEW_CACHE_TTL_SECONDS":   30,
	"AUTH_SECRET":              "",
	"ACCESS_TOKEN_TTL_MINUTES": 480,
	"CLINIC_TIMEZONE":          "America/Mexico_City",
	"STOCK_ALERT_SCHEDULE":     "0 7 * * *",
	"METRICS_ENABLED":          true,
	"AUTO_MIGRATE":             true,
	"BOOTSTRAP_ADMIN_PASSWORD": "",
}

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables override it.
func Load() (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	ttl := v.GetInt("VIEW_CACHE_TTL_SECONDS")
	if ttl < 1 {
		ttl = 30
	}
	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  v.GetString("PORT"),
		AppEnv:                strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		ViewCacheTTLSeconds:   ttl,
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		ClinicTimezone:        v.GetString("CLINIC_TIMEZONE"),
		StockAlertSchedule:    strings.TrimSpace(v.GetString("STOCK_ALERT_SCHEDULE")),
		MetricsEnabled:        v.GetBool("METRICS_ENABLED"),
		AutoMigrate:           v.GetBool("AUTO_MIGRATE"),

		BootstrapAdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) ViewCacheTTL() time.Duration {
	return time.Duration(c.ViewCacheTTLSeconds) * time.Second
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}
