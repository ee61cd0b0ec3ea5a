package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pbinitiative/zenbpm-history/internal/cockpit"
	"github.com/pbinitiative/zenbpm-history/internal/config"
	"github.com/pbinitiative/zenbpm-history/internal/log"
	"github.com/pbinitiative/zenbpm-history/internal/otel"
	"github.com/pbinitiative/zenbpm-history/internal/rest"
	"github.com/pbinitiative/zenbpm-history/pkg/engine"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/plugin"
)

var app Application

func TestMain(m *testing.M) {
	log.Init()
	fakeEngine := NewFakeEngine()

	conf, err := config.ReadConfig()
	if err != nil {
		log.Error("Failed to read config: %s", err)
		os.Exit(1)
	}
	conf.Server.Addr = "127.0.0.1:0"
	conf.Engine.Url = fakeEngine.Url()
	openTelemetry, err := otel.SetupOtel(conf.Tracing)
	if err != nil {
		log.Error("Failed to set up OTEL: %s", err)
		os.Exit(1)
	}

	client := engine.NewClient(conf.Engine.Url,
		engine.WithBasicAuth(engineUsername, enginePassword),
		engine.WithTimeout(5*time.Second),
	)
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
	ln, err := svr.Start()
	if err != nil {
		log.Error("Failed to start REST server: %s", err)
		os.Exit(1)
	}
	app = Application{
		httpAddr: ln.Addr().String(),
		engine:   fakeEngine,
	}

	// wait until the server answers
	timeout := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(timeout) {
			log.Error("Server failed to start until timeout was reached")
			os.Exit(1)
		}
		if _, err := app.NewRequest(nil).WithPath("/system/status").DoOk("application/json"); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	code := m.Run()

	// cleanup
	svr.Stop(context.Background())
	fakeEngine.Close()
	openTelemetry.Stop(context.Background())
	os.Exit(code)
}
