package chunkstore

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Root      string `envconfig:"CHUNKS_DIR" default:"./storage/chunks"`
	ChunkSize int64  `envconfig:"CHUNK_SIZE_BYTES" default:"10485760"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
