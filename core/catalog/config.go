package catalog

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Path string `envconfig:"CATALOG_PATH" default:"./storage/catalog"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
