package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/chunkstore"
	"github.com/mediamesh/mediamesh/core/gateway"
	"github.com/mediamesh/mediamesh/core/hls"
	"github.com/mediamesh/mediamesh/core/identity"
	"github.com/mediamesh/mediamesh/core/mesh"
	"github.com/mediamesh/mediamesh/core/objectsync"
	"github.com/mediamesh/mediamesh/lib/logger"
)

var log, _ = logger.New("mediamesh")

func main() {
	if err := run(); err != nil {
		log.Fatalln("startup", "ERROR", err)
	}
}

func run() error {
	catalogCfg, err := catalog.GetConfig()
	if err != nil {
		return err
	}

	chunksCfg, err := chunkstore.GetConfig()
	if err != nil {
		return err
	}

	meshCfg, err := mesh.GetConfig()
	if err != nil {
		return err
	}

	hlsCfg, err := hls.GetConfig()
	if err != nil {
		return err
	}

	objectCfg, err := objectsync.GetConfig()
	if err != nil {
		return err
	}

	identityCfg, err := identity.GetConfig()
	if err != nil {
		return err
	}

	gatewayCfg, err := gateway.GetConfig()
	if err != nil {
		return err
	}

	cat, err := catalog.NewStore(catalogCfg.Path)
	if err != nil {
		log.Errorw("startup", "error", "catalog open failed", "path", catalogCfg.Path)
		return err
	}
	defer cat.Close()

	chunks := chunkstore.NewStore(chunksCfg)
	pipeline := hls.NewPipeline(hlsCfg, cat)
	verifier := identity.NewVerifier(identityCfg)

	var store objectsync.ObjectStore
	if objectCfg.Enabled {
		store, err = objectsync.NewMinioStore(objectCfg)
		if err != nil {
			log.Errorw("startup", "error", "object store client failed", "endpoint", objectCfg.Endpoint)
			return err
		}
	}
	syncer := objectsync.NewSyncer(objectCfg, store)

	registry := mesh.NewPeerRegistry(meshCfg.Peers.TTL)
	control := mesh.NewControlServer(meshCfg, registry, chunks, cat, verifier)
	data := mesh.NewDataServer(meshCfg, chunks)
	gw := gateway.New(gatewayCfg, cat, chunks, pipeline, syncer, verifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 3)

	log.Infow("startup", "status", "starting delivery gateway")
	go func() { errs <- gw.Start(ctx) }()

	log.Infow("startup", "status", "starting mesh control server")
	go func() { errs <- control.Start(ctx) }()

	log.Infow("startup", "status", "starting mesh data server")
	go func() { errs <- data.Start(ctx) }()

	log.Infow("startup", "status", "starting peer sweeper")
	go registry.StartSweeper(ctx, meshCfg.Peers.SweepInterval)

	if meshCfg.Announce.CoordinatorURL != "" {
		if meshCfg.Announce.AdvertiseAddr == "" {
			meshCfg.Announce.AdvertiseAddr = fmt.Sprintf("%s:%d", meshCfg.Data.Host, meshCfg.Data.Port)
		}

		log.Infow("startup", "status", "starting mesh announcer",
			"coordinator", meshCfg.Announce.CoordinatorURL)
		go mesh.NewAnnouncer(meshCfg, chunks, cat).Start(ctx)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errs:
		log.Errorw("shutdown", "error", "server exited", "cause", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "status", "signal received", "signal", sig.String())
	}

	cancel()

	return err
}
