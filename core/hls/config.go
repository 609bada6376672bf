package hls

import "github.com/kelseyhightower/envconfig"

type Config struct {
	FFmpegPath     string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	OutputDir      string `envconfig:"HLS_DIR" default:"./storage/hls"`
	SegmentTime    int    `envconfig:"HLS_SEGMENT_TIME" default:"10"`
	SegmentPattern string `envconfig:"HLS_SEGMENT_PATTERN" default:"seg_%05d.ts"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
