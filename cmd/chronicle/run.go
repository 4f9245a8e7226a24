// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/tomtom215/chronicle/internal/api"
	"github.com/tomtom215/chronicle/internal/capture"
	"github.com/tomtom215/chronicle/internal/dispatch"
	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/relational"
	"github.com/tomtom215/chronicle/internal/search"
	"github.com/tomtom215/chronicle/internal/supervisor"
	"github.com/tomtom215/chronicle/internal/supervisor/services"
	"github.com/tomtom215/chronicle/internal/transport"
)

var (
	runCapture bool
	runProject bool
)

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Run capture and projection consumers",
	GroupID: "service",
	Long: `Run starts the supervised services of a Chronicle node: the embedded NATS
server when configured, the gateway capture pipeline, one consumer group per
projection and the ops HTTP server.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	runCmd.Flags().BoolVar(&runCapture, "capture", true, "connect to the gateway and publish events")
	runCmd.Flags().BoolVar(&runProject, "project", true, "run the relational and search consumers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if !runCapture && !runProject {
		return errors.New("nothing to run: both --capture and --project are disabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Bool("capture", runCapture).
		Bool("project", runProject).
		Str("database", cfg.Database.Backend).
		Msg("Starting Chronicle")

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tc := transportConfig(cfg)
	if cfg.NATS.Embedded {
		srv, err := transport.NewEmbeddedServer(transport.ServerConfig{
			Host:     cfg.NATS.Host,
			Port:     cfg.NATS.Port,
			StoreDir: cfg.NATS.StoreDir,
			MaxStore: cfg.NATS.MaxStore,
		})
		if err != nil {
			return err
		}
		tc.URL = srv.ClientURL()
		tree.AddTransportService(services.NewNATSServerService(srv, cfg.Dispatch.CloseTimeout))
		logging.Info().Str("url", tc.URL).Msg("Embedded NATS server started")
	}

	admin, err := transport.Connect(tc)
	if err != nil {
		return err
	}
	defer admin.Close()
	if err := admin.EnsureStream(ctx); err != nil {
		return err
	}

	wmLogger := logging.NewWatermillAdapter()
	pub, err := transport.NewPublisher(tc, wmLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}()
	pub.SetCircuitBreaker(transport.NewCircuitBreaker(breakerConfig(cfg)))

	ignore, err := capture.LoadIgnoreList(cfg.Capture.IgnoreFile)
	if err != nil {
		return err
	}
	if cfg.Capture.WatchIgnoreFile {
		if err := ignore.Watch(); err != nil {
			logging.Warn().Err(err).Str("path", cfg.Capture.IgnoreFile).Msg("Ignore list watch disabled")
		}
	}

	deps := api.Deps{
		Checks: map[string]api.HealthChecker{"transport": admin},
		Ignore: ignore,
	}

	if runCapture {
		if err := addCapture(tree, pub, ignore); err != nil {
			return err
		}
	}

	if runProject {
		store, index, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStores(store, index)

		var deadLetter message.Publisher
		if cfg.Dispatch.DeadLetter {
			deadLetter = pub.WatermillPublisher()
		}
		addProjections(tree, admin, tc, store, index, deadLetter)

		deps.Relational = store
		deps.Search = index
		deps.Checks["relational"] = api.HealthFunc(store.Ping)
	}

	if cfg.Server.Enabled {
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		server := &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(cfg.Server, deps),
			ReadHeaderTimeout: cfg.Server.Timeout,
			ReadTimeout:       cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
		logging.Info().Str("addr", addr).Msg("Ops server configured")
	}

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received")

	err = <-errCh
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			logging.Warn().Str("service", u.Name).Msg("Service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Chronicle stopped")
	return nil
}

func addCapture(tree *supervisor.SupervisorTree, pub *transport.Publisher, ignore *capture.IgnoreList) error {
	session, err := newSession(cfg)
	if err != nil {
		return err
	}

	mapper := capture.NewMapper(capture.StateDirectory{State: session.State}, ignore)
	emitter := capture.NewEmitter(cfg.Capture, mapper, pub)
	emitter.Attach(session)

	tree.AddCaptureService(services.NewStaticRunnerService("capture-emitter", emitter))
	tree.AddCaptureService(services.NewGatewayService(session))
	return nil
}

func addProjections(tree *supervisor.SupervisorTree, admin *transport.Admin, tc transport.Config, store *relational.Store, index *search.Store, deadLetter message.Publisher) {
	partitions := transport.NewPartitioner(tc.SubjectPrefix, tc.Partitions)
	wmLogger := logging.NewWatermillAdapter()

	relReg := dispatch.NewRegistry()
	store.Register(relReg)
	tree.AddProjectionService(services.NewRunnerService(
		"consumer-"+relational.Group,
		consumerFactory(admin, dispatchConfig(cfg, relational.Group, partitions), relReg, events.Families, deadLetter, wmLogger),
	))

	searchReg := dispatch.NewRegistry()
	index.Register(searchReg)
	tree.AddProjectionService(services.NewRunnerService(
		"consumer-"+search.Group,
		consumerFactory(admin, dispatchConfig(cfg, search.Group, partitions), searchReg, []events.Family{events.FamilyMessages}, deadLetter, wmLogger),
	))

	if cfg.Search.GCInterval > 0 {
		tree.AddProjectionService(services.NewPeriodicService("search-gc", cfg.Search.GCInterval, func(context.Context) error {
			return index.RunGC()
		}))
	}
}
