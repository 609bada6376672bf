package mesh

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Control struct {
		Host string `envconfig:"MESH_CONTROL_HOST" default:"0.0.0.0"`
		Port int    `envconfig:"MESH_CONTROL_PORT" default:"9001"`
	}
	Data struct {
		Host string `envconfig:"MESH_DATA_HOST" default:"0.0.0.0"`
		Port int    `envconfig:"MESH_DATA_PORT" default:"9002"`
	}
	Peers struct {
		TTL           time.Duration `envconfig:"PEER_TTL" default:"2m"`
		SweepInterval time.Duration `envconfig:"PEER_SWEEP_INTERVAL" default:"30s"`
	}

	// Self-announcement to another coordinator; disabled when the URL
	// is empty.
	Announce struct {
		CoordinatorURL string        `envconfig:"MESH_COORDINATOR_URL"`
		PeerID         string        `envconfig:"MESH_PEER_ID"`
		AdvertiseAddr  string        `envconfig:"MESH_ADVERTISE_ADDR"`
		Interval       time.Duration `envconfig:"MESH_ANNOUNCE_INTERVAL" default:"1m"`
	}

	// Gate peer registration behind bearer credentials. Off by default:
	// the control endpoint normally lives on a trusted network.
	RequireAuth bool `envconfig:"MESH_REQUIRE_AUTH" default:"false"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
