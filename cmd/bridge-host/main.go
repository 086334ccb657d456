// Command bridge-host runs the privileged side of the bridge: it forks the
// consumer binary, handles commands the consumer sends, and publishes a
// periodic notice.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snowmerak/bridge.go/lib/channel"
	"github.com/snowmerak/bridge.go/lib/host"
	"github.com/snowmerak/bridge.go/lib/logx"
)

func main() {
	appPath := flag.String("app", "./bridge-app", "path to the consumer binary")
	manifestPath := flag.String("manifest", "", "path to a YAML channel manifest (defaults to the built-in channel pair)")
	metricsAddr := flag.String("metrics", os.Getenv("BRIDGE_METRICS_ADDR"), "address for the Prometheus /metrics listener (empty to disable)")
	flag.Parse()

	log := logx.Log.With().Str("component", "bridge-host").Logger()

	set := channel.DefaultSet()
	if *manifestPath != "" {
		loaded, err := channel.LoadManifest(*manifestPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *manifestPath).Msg("failed to load channel manifest")
		}
		set = loaded
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := host.New(set, &host.ExecProvider{Path: *appPath},
		host.WithRegisterer(prometheus.DefaultRegisterer),
		host.WithLogger(log),
	)

	if err := h.RegisterHandler(channel.Command, func(ctx context.Context, payload string) error {
		log.Info().Str("payload", payload).Msg("command received")
		return h.Publish(ctx, channel.Notice, fmt.Sprintf("ack: %s", payload))
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register command handler")
	}

	if err := h.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start bridge")
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			if err := h.Close(); err != nil {
				log.Error().Err(err).Msg("close failed")
			}
			return
		case <-ticker.C:
			if !h.Alive() {
				log.Warn().Msg("consumer is gone, exiting")
				h.Close()
				return
			}
			seq++
			if err := h.Publish(ctx, channel.Notice, fmt.Sprintf("tick %d", seq)); err != nil {
				log.Error().Err(err).Msg("publish failed")
			}
		}
	}
}
