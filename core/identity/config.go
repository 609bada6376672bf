package identity

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Secret string `envconfig:"JWT_SECRET" default:"mediamesh-dev-secret-do-not-use-in-prod"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
