package main

import (
	"context"
	"fmt"
	"io"

	"github.com/caasmo/litepool/metrics"
	"github.com/caasmo/litepool/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
)

func serveFlags() (*pflag.FlagSet, CommandHelp) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("addr", "", "Listen address (overrides metrics.addr)")
	return fs, CommandHelp{
		Usage: "litepool serve [options]",
		Description: "Serves GET /metrics, GET /stats and GET /stats/{writer,reader} until SIGINT or SIGTERM.\n" +
			"Prometheus collectors are registered when metrics.enabled is true.\n" +
			"SIGHUP reloads the configuration file and applies the new log level.",
		Options: fs,
		Examples: []string{
			"litepool -c litepool.toml serve",
			"litepool --db app.db serve --addr 127.0.0.1:9090",
		},
	}
}

func runServe(_ context.Context, a *app, fs *pflag.FlagSet, _ io.Writer) error {
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: serve takes no arguments", ErrTooManyArguments)
	}
	if addr, _ := fs.GetString("addr"); addr != "" {
		cfg := *a.provider.Get()
		cfg.Metrics.Addr = addr
		a.provider.Update(&cfg)
	}

	reg := prometheus.NewRegistry()
	if a.provider.Get().Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err := metrics.Register(reg, metrics.NewPoolCollector(metricsNamespace, a.db.Stats), a.statements); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	} else {
		a.logger.Warn("metrics disabled, /metrics serves no collectors")
	}

	router := server.NewRouter(reg, func() server.Status {
		return server.Status{Pool: a.db.Stats(), Top: a.topStatements()}
	})
	chain := server.NewChain(router).WithMiddleware(server.RequestLog(a.logger))
	if a.provider.Get().Metrics.Enabled {
		chain.WithMiddleware(server.RequestMetrics(metricsNamespace, reg))
	}

	srv := server.NewServer(a.provider, chain.Handler(), a.logger, a.reload)
	if a.daemon != nil {
		srv.AddDaemon(a.daemon)
	}
	if code := srv.Run(); code != 0 {
		return ErrServerExit
	}
	return nil
}
