package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Booking BookingConfig
	Cache   CacheConfig
	Feed    FeedConfig
	Sweep   SweepConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	Secret        string
	AdminUser     string
	AdminPassword string
	AccessExpiry  time.Duration
}

// BookingConfig holds engine-wide booking defaults. Per-clinic values stored on
// the clinic row take precedence.
type BookingConfig struct {
	DefaultCapacity         int
	DefaultPriorityCapacity int
	SearchHorizonDays       int
	DefaultTimezone         string
}

type CacheConfig struct {
	Driver   string // "memory" or "redis"
	Capacity int
	TTL      time.Duration
}

type FeedConfig struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	StreamTimeout     time.Duration
	SnapshotTTL       time.Duration
}

type SweepConfig struct {
	Interval time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			Secret:        viper.GetString("AUTH_SECRET"),
			AdminUser:     viper.GetString("AUTH_ADMIN_USER"),
			AdminPassword: viper.GetString("AUTH_ADMIN_PASSWORD"),
			AccessExpiry:  durationOr("AUTH_ACCESS_EXPIRY", 12*time.Hour),
		},
		Booking: BookingConfig{
			DefaultCapacity:         intOr("BOOKING_DEFAULT_CAPACITY", 20),
			DefaultPriorityCapacity: intOr("BOOKING_DEFAULT_PRIORITY_CAPACITY", 5),
			SearchHorizonDays:       intOr("BOOKING_SEARCH_HORIZON_DAYS", 30),
			DefaultTimezone:         stringOr("BOOKING_DEFAULT_TIMEZONE", "Africa/Cairo"),
		},
		Cache: CacheConfig{
			Driver:   stringOr("CACHE_DRIVER", "memory"),
			Capacity: intOr("CACHE_CAPACITY", 512),
			TTL:      durationOr("CACHE_TTL", 30*time.Second),
		},
		Feed: FeedConfig{
			PollInterval:      durationOr("FEED_POLL_INTERVAL", time.Second),
			HeartbeatInterval: durationOr("FEED_HEARTBEAT_INTERVAL", 15*time.Second),
			StreamTimeout:     durationOr("FEED_STREAM_TIMEOUT", 5*time.Minute),
			SnapshotTTL:       durationOr("FEED_SNAPSHOT_TTL", 30*time.Second),
		},
		Sweep: SweepConfig{
			Interval: durationOr("SWEEP_INTERVAL", time.Hour),
		},
	}

	return config, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func intOr(key string, fallback int) int {
	if !viper.IsSet(key) {
		return fallback
	}
	return viper.GetInt(key)
}

func stringOr(key, fallback string) string {
	v := viper.GetString(key)
	if v == "" {
		return fallback
	}
	return v
}
