package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const serviceName = "web-dashboard"

// publisherFunc umožní předat loggeru transport, který ještě neexistuje.
type publisherFunc func(topic string, payload []byte)

func (f publisherFunc) Publish(topic string, payload []byte) { f(topic, payload) }

func main() {
	// 1. Načtení Konfigurace
	cfg, err := LoadConfig()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Kritická chyba: Neplatná konfigurace", "error", err)
		os.Exit(1)
	}
	loc, _ := cfg.Location() // ověřeno ve validate()

	layout, err := NewLayout(cfg.Layout, cfg.TopicRoot)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Kritická chyba: Neplatný layout", "error", err)
		os.Exit(1)
	}

	// 2. SETUP LOGGERU
	// Logger potřebuje transport (logy do MQTT) a transport potřebuje logger.
	// Problém slepice-vejce řešíme closure, která transport dohledá až při zápisu.
	var transport *Transport
	var out io.Writer = os.Stdout
	if cfg.LogToMQTT {
		mqttWriter := NewMqttLogWriter(publisherFunc(func(topic string, payload []byte) {
			if transport != nil {
				transport.Publish(topic, payload)
			}
		}), serviceName)
		out = io.MultiWriter(os.Stdout, mqttWriter)
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("Startuji Web Dashboard", "config", cfg)

	// 3. Metriky (vlastní registr, ne globální)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(reg)

	// 4. Inicializace komponent (Dependency Injection)
	store := NewStore()
	transport = NewTransport(PahoDialer{}, cfg.BrokerConfig(), layout.Topics(), logger)
	dash := NewDashboard(layout, transport, store, metrics, loc, logger)
	defer dash.Close()

	// Graceful Shutdown: SIGINT (Ctrl+C) nebo SIGTERM (docker stop) zruší ctx.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. Volitelné zrcadlení do Valkey
	if cfg.ValkeyAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.ValkeyAddr})
		defer rdb.Close()
		// Nedostupný Valkey nás nezastaví, dashboard funguje i bez něj.
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Valkey není dostupný, zápisy budou selhávat", "addr", cfg.ValkeyAddr, "error", err)
		}
		mirror := NewSnapshotMirror(rdb, cfg.SnapshotTTL, metrics, logger)
		defer store.Watch(mirror.OnChange)()
		go mirror.Run(ctx)
		logger.Info("Zrcadlení snapshotu do Valkey zapnuto", "addr", cfg.ValkeyAddr)
	}

	handler, err := NewWebHandler(ctx, dash, metrics, reg, logger)
	if err != nil {
		logger.Error("Kritická chyba: Nepodařilo se načíst HTML šablony", "error", err)
		os.Exit(1)
	}

	// 6. Připojení k MQTT
	// Neúspěch není fatální: dashboard ukáže stav "disconnected" a chybu,
	// znovu se lze připojit přes POST /api/reconnect.
	connectCtx, cancel := context.WithTimeout(ctx, cfg.MQTTConnectTimeout+time.Second)
	if err := dash.Connect(connectCtx); err != nil {
		logger.Error("MQTT nedostupné, běžím bez spojení", "error", err)
	}
	cancel()

	// 7. Spuštění HTTP serveru
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown HTTP serveru selhal", "error", err)
		}
	}()

	logger.Info("Web server naslouchá", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server nečekaně spadl", "error", err)
		dash.Close()
		os.Exit(1)
	}

	logger.Info("Ukončuji službu...")
	// Zde proběhnou defery (odpojení MQTT, zavření Valkey)
}
