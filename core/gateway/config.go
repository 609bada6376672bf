package gateway

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`

	// Optional absolute prefix for playback URLs; relative paths when empty.
	StreamBaseURL string `envconfig:"STREAM_BASE_URL"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
