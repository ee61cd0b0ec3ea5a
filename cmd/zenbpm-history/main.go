package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/pbinitiative/zenbpm-history/internal/cockpit"
	"github.com/pbinitiative/zenbpm-history/internal/config"
	"github.com/pbinitiative/zenbpm-history/internal/log"
	"github.com/pbinitiative/zenbpm-history/internal/otel"
	"github.com/pbinitiative/zenbpm-history/internal/profile"
	"github.com/pbinitiative/zenbpm-history/internal/rest"
	"github.com/pbinitiative/zenbpm-history/pkg/engine"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/plugin"
)

func main() {
	profile.InitProfile()
	log.Init()
	defer log.Sync()

	appContext, ctxCancel := context.WithCancel(context.Background())

	conf := config.InitConfig()
	initComponentLogging(conf.Name)

	openTelemetry, err := otel.SetupOtel(conf.Tracing)
	if err != nil {
		log.Error("Failed to set up OTEL: %s", err)
		os.Exit(1)
	}

	client := newEngineClient(conf.Engine)
	aggregator := history.NewAggregator(client,
		history.WithDefaultVersion(conf.History.DefaultVersion),
		history.WithInstanceListLimit(conf.History.InstanceListMaxResults),
	)
	registry := plugin.NewRegistry()
	if err := cockpit.New(aggregator).Register(registry); err != nil {
		log.Error("Failed to register extensions: %s", err)
		os.Exit(1)
	}

	// Start the public API
	svr := rest.NewServer(conf, registry, aggregator)
	if _, err := svr.Start(); err != nil {
		log.Error("Failed to start REST server: %s", err)
		os.Exit(1)
	}
	log.Info("Reading history from %s", conf.Engine.Url)

	appStop := make(chan os.Signal, 2)
	handleSigterm(appStop, appContext)

	ctxCancel()
	// cleanup
	svr.Stop(context.Background())
	openTelemetry.Stop(context.Background())
}

func newEngineClient(conf config.Engine) *engine.Client {
	options := []engine.ClientOption{engine.WithTimeout(conf.Timeout)}
	if conf.Username != "" {
		options = append(options, engine.WithBasicAuth(conf.Username, conf.Password))
	}
	if conf.Token != "" {
		options = append(options, engine.WithToken(conf.Token))
	}
	return engine.NewClient(conf.Url, options...)
}

// initComponentLogging configures the hclog default used by the component
// loggers to follow the active profile.
func initComponentLogging(name string) {
	level := hclog.Info
	if profile.Current.Verbose() {
		level = hclog.Debug
	}
	hclog.SetDefault(hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		JSONFormat: profile.Current == profile.PROD,
	}))
}

func handleSigterm(appStop chan os.Signal, ctx context.Context) {
	signal.Notify(appStop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	sig := <-appStop
	log.Infof(ctx, "Received %s. Shutting down", sig.String())
}
