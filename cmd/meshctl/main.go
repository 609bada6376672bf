package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mediamesh/mediamesh/lib/logger"
)

var log, _ = logger.New("meshctl")

func main() {
	app := &cli.App{
		Name:  "meshctl",
		Usage: "Operate a mediamesh node over its HTTP surfaces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "Base URL of the delivery gateway",
				EnvVars: []string{"MEDIAMESH_API_URL"},
			},
			&cli.StringFlag{
				Name:    "mesh-url",
				Value:   "http://localhost:9001",
				Usage:   "Base URL of the mesh control server",
				EnvVars: []string{"MEDIAMESH_MESH_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for admin operations",
				EnvVars: []string{"MEDIAMESH_TOKEN"},
			},
		},
		Commands: []*cli.Command{
			mediaAddCmd,
			chunkCmd,
			packageCmd,
			backfillCmd,
			peersCmd,
			chunkInfoCmd,
			fetchCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
