package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	RoomURL   string `mapstructure:"room_url"`
	RoomLabel string `mapstructure:"room_label"`

	Admins []string `mapstructure:"admins"`

	SlotCount          int           `mapstructure:"slot_count"`
	StrictThreshold    int           `mapstructure:"strict_threshold"`
	TurnsPerVisit      int           `mapstructure:"turns_per_visit"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
	GracePeriod        time.Duration `mapstructure:"grace_period"`
	ReservationTimeout time.Duration `mapstructure:"reservation_timeout"`
	MinPerformance     time.Duration `mapstructure:"min_performance"`
	OccupancyTimeout   time.Duration `mapstructure:"occupancy_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("room_url", "ws://localhost:9000/feed")
	v.SetDefault("room_label", "main")
	v.SetDefault("slot_count", 5)
	v.SetDefault("strict_threshold", 6)
	v.SetDefault("turns_per_visit", 1)
	v.SetDefault("cooldown", "20m")
	v.SetDefault("grace_period", "45s")
	v.SetDefault("reservation_timeout", "90s")
	v.SetDefault("min_performance", "15s")
	v.SetDefault("occupancy_timeout", "5s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Room: %s\n", cfg.Mode, cfg.Port, cfg.RoomLabel)
	return &cfg, nil
}
