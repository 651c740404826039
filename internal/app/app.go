package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	server "satchel/server"
	"satchel/server/internal/catalog"
	servernet "satchel/server/internal/net"
	"satchel/server/internal/net/natsbridge"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
	loggingSinks "satchel/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Run serves the inventory API until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	namedSinks, err := buildSinks(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	metrics := &logging.Metrics{}
	router := logging.NewRouter(cfg.Logging, namedSinks, logging.WithFallback(fallbackLogger), logging.WithMetrics(metrics))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	items := catalog.Default()
	if cfg.CatalogPath != "" {
		items, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		telemetryLogger.Printf("loaded %d items from %s", items.Len(), cfg.CatalogPath)
	}

	hub := server.NewHub(server.HubConfig{
		Catalog:      items,
		Publisher:    router,
		Metrics:      telemetry.WrapMetrics(metrics),
		Logger:       telemetryLogger,
		DefaultSlots: cfg.DefaultSlots,
		MaxSlots:     cfg.MaxSlots,
	})

	if cfg.NATSURL != "" {
		conn, err := natsbridge.Connect(cfg.NATSURL, telemetryLogger)
		if err != nil {
			return err
		}
		defer conn.Drain()
		bridge := natsbridge.New(conn, natsbridge.Config{
			SubjectPrefix: cfg.NATSSubjectPrefix,
			Logger:        telemetryLogger,
			Metrics:       telemetry.WrapMetrics(metrics),
		})
		detach := bridge.Attach(hub)
		defer detach()
		telemetryLogger.Printf("publishing slot changes to nats subjects %s", bridge.Subject("<id>"))
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:        telemetryLogger,
		Metrics:       metrics,
		Publisher:     router,
		Observability: cfg.Observability,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// buildSinks instantiates the sinks named in cfg. console writes to stdout.
func buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var named []logging.NamedSink
	if cfg.HasSink(logging.SinkConsole) {
		named = append(named, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(stdout)})
	}
	if cfg.HasSink(logging.SinkJSON) {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open json log %s: %w", cfg.JSON.FilePath, err)
		}
		named = append(named, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return named, nil
}
