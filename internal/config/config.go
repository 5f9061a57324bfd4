package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	ServerPort       string `mapstructure:"SERVER_PORT"`
	BaseURL          string `mapstructure:"BASE_URL"`
	BadgerDBPath     string `mapstructure:"BADGERDB_PATH"`
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	PreviewEnabled   bool   `mapstructure:"PREVIEW_ENABLED"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err = viper.ReadInConfig()
	if err != nil {
		// A missing config file is fine when env vars carry the values.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}
	if config.ServerPort == "" {
		config.ServerPort = "3000"
	}
	if config.BadgerDBPath == "" {
		config.BadgerDBPath = "./badger_data"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:" + config.ServerPort
	}

	return config, nil
}
