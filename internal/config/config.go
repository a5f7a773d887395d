package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Transport TransportConfig `mapstructure:"transport"`
	AppHost   string          `mapstructure:"host"`
	ClientURL string          `mapstructure:"client_url"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type MailConfig struct {
	BrevoAPIKey string `mapstructure:"brevo_api_key"`
	SenderName  string `mapstructure:"sender_name"`
	SenderEmail string `mapstructure:"sender_email"`
}

// TransportConfig points at the realtime transport's control endpoint;
// outbox events are posted there.
type TransportConfig struct {
	ControlURL string `mapstructure:"control_url"`
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/configs")
	viper.SetConfigName("settings")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
