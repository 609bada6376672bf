package objectsync

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Enabled   bool   `envconfig:"OBJECT_UPLOAD_ENABLED" default:"true"`
	Endpoint  string `envconfig:"OBJECT_STORE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"OBJECT_STORE_ACCESS_KEY"`
	SecretKey string `envconfig:"OBJECT_STORE_SECRET_KEY"`
	UseSSL    bool   `envconfig:"OBJECT_STORE_USE_SSL" default:"false"`
	Bucket    string `envconfig:"OBJECT_STORE_BUCKET" default:"mediamesh"`

	// Tokens: {mediaId}, {resolution}, {fileName}
	ChunkPathTemplate string `envconfig:"OBJECT_CHUNK_PATH_TEMPLATE" default:"media/{mediaId}/{resolution}/{fileName}"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
