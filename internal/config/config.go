package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port                          string `mapstructure:"PORT"`
	DatabasePath                  string `mapstructure:"DATABASE_PATH"`
	DefaultCapacityPerDay         int    `mapstructure:"DEFAULT_CAPACITY_PER_DAY"`
	MorningStart                  string `mapstructure:"MORNING_START"`
	MorningEnd                    string `mapstructure:"MORNING_END"`
	AfternoonStart                string `mapstructure:"AFTERNOON_START"`
	AfternoonEnd                  string `mapstructure:"AFTERNOON_END"`
	SweepIntervalMinutes          int    `mapstructure:"SWEEP_INTERVAL_MINUTES"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "scheduler.db")
	viper.SetDefault("DEFAULT_CAPACITY_PER_DAY", 20)
	viper.SetDefault("MORNING_START", "09:00")
	viper.SetDefault("MORNING_END", "12:00")
	viper.SetDefault("AFTERNOON_START", "13:00")
	viper.SetDefault("AFTERNOON_END", "16:00")
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 0)

	viper.BindEnv("PORT")
	viper.BindEnv("DATABASE_PATH")
	viper.BindEnv("DEFAULT_CAPACITY_PER_DAY")
	viper.BindEnv("MORNING_START")
	viper.BindEnv("MORNING_END")
	viper.BindEnv("AFTERNOON_START")
	viper.BindEnv("AFTERNOON_END")
	viper.BindEnv("SWEEP_INTERVAL_MINUTES")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
