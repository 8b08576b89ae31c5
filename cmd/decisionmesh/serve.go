package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"decisionmesh/internal/metrics"
	"decisionmesh/internal/server"
	"decisionmesh/internal/view"
	"decisionmesh/internal/watch"
)

func serveCmd() *cobra.Command {
	var fromDB bool
	var noWatch bool
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live mesh over HTTP and websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr, fromDB, noWatch)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&fromDB, "db", false, "Sync rule documents through the database before loading")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when rule documents change")
	return cmd
}

func runServe(cmd *cobra.Command, addr string, fromDB, noWatch bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.logger.Sync()
	if addr == "" {
		addr = p.cfg.Server.Addr
	}

	db, closeDB, err := p.openSource(ctx, fromDB)
	if err != nil {
		return err
	}
	defer closeDB()

	ds, err := p.loadDataset(ctx, db)
	if err != nil {
		return err
	}

	recorder := metrics.NewPrometheusRecorder()
	hub := server.NewHub(p.logger)
	renderer := server.NewRemoteRenderer(hub, p.cfg.Server.FramePushInterval)
	v := view.New(ds, p.palette, *p.cfg, nil, renderer, view.Options{
		Logger:  p.logger,
		Metrics: recorder,
	})
	defer v.Close()

	srv := server.New(v, hub, server.Options{
		Addr:    addr,
		Version: version,
		Logger:  p.logger,
		Metrics: recorder,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return v.Start(gctx)
	})
	if !noWatch {
		reload := watch.ViewReloader(p.cfg, p.recordLoader(db), v, p.logger)
		w, err := watch.New(p.cfg, reload, watch.Options{Logger: p.logger})
		if err != nil {
			p.logger.Warn("file watching disabled", zap.Error(err))
		} else {
			g.Go(func() error {
				return w.Run(gctx)
			})
		}
	}

	p.logger.Info("serving decision mesh",
		zap.String("addr", addr),
		zap.Int("entities", ds.Len()))
	return g.Wait()
}
