// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"fireguard/internal/api"
	"fireguard/internal/auth"
	"fireguard/internal/chat"
	"fireguard/internal/config"
	"fireguard/internal/db"
	"fireguard/internal/hub"
	"fireguard/internal/logging"
	"fireguard/internal/mqtt"
	"fireguard/internal/providers"
	"fireguard/internal/services"
	"fireguard/internal/utils"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}
	defer logger.Close()
	mainLog := logger.Component("main")

	// Connect to DB
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dbConn, err := db.New(ctx, cfg.DB.DSN)
	if err != nil {
		mainLog.Fatalf("DB connect failed: %v", err)
	}
	defer func() {
		dbConn.Close()
		mainLog.Infof("DB connection closed")
	}()
	if err := utils.Retry(mainLog, 5, 2*time.Second, func() error { return dbConn.Ping(ctx) }); err != nil {
		mainLog.Fatalf("DB unreachable: %v", err)
	}
	if err := dbConn.Migrate(ctx); err != nil {
		mainLog.Fatalf("DB migrate failed: %v", err)
	}

	// Alert transports
	alertLog := logger.Component("alert")
	mail, closeMail := mailTransport(cfg)
	defer closeMail()
	router := &providers.Router{Mail: mail}
	var extra []string
	if cfg.Telegram.BotToken != "" {
		tg, err := providers.NewTelegramDeliverer(cfg.Telegram.BotToken, cfg.Telegram.RateLimit, alertLog)
		if err != nil {
			mainLog.Fatalf("Telegram init failed: %v", err)
		}
		router.Telegram = tg
		for _, id := range cfg.Telegram.ChatIDs {
			extra = append(extra, providers.TelegramAddress(id))
		}
	}
	dispatcher := services.NewAlertDispatcher(dbConn, router, extra, alertLog)

	// Ingest path
	registry := hub.NewRegistry(logger.Component("hub"))
	broadcaster := hub.NewBroadcaster(registry, logger.Component("hub"))
	loop := services.NewLoop(logger.Component("ingest"))
	loop.Start(ctx)
	gate := services.NewAlertGate(cfg.Alert.Temperature, cfg.Alert.Cooldown)
	pipeline := services.NewPipeline(loop, gate, dbConn, broadcaster, dispatcher, logger.Component("ingest"))

	// Connect to broker
	bridge := mqtt.NewBridge(mqtt.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		TLS:      cfg.MQTT.TLS,
	}, pipeline, logger.Component("mqtt"))
	if err := utils.Retry(mainLog, 5, 2*time.Second, func() error { return bridge.Connect(10 * time.Second) }); err != nil {
		mainLog.Fatalf("MQTT connect failed: %v", err)
	}
	poller := services.NewPoller(bridge, cfg.Poll.Interval, logger.Component("poller"))

	// Start API server
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Auth.WSTokenTTL)
	toolbox := chat.NewToolbox(dbConn, poller, bridge)
	assistant := chat.NewAssistant(chat.NewOpenAIModel(cfg.Chat.BaseURL, cfg.Chat.APIKey), cfg.Chat.Model, toolbox, logger.Component("chat"))
	handler := api.NewRouter(api.Deps{
		Users:         dbConn,
		Readings:      dbConn,
		Poller:        poller,
		Devices:       bridge,
		Chat:          assistant,
		Tokens:        tokens,
		Authenticator: auth.NewCookieAuthenticator(tokens, dbConn),
		Registry:      registry,
		WebDir:        cfg.API.WebDir,
		Log:           logger.Component("api"),
	})
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLog.Infof("API started on %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLog.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	mainLog.Infof("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Errorf("API shutdown failed: %v", err)
	}
	poller.Stop()
	bridge.Disconnect(250)
	loop.Stop()
	registry.CloseAll(websocket.CloseGoingAway, "Closing server")
	dispatcher.Wait()
	mainLog.Infof("Service stopped")
}

// mailTransport returns the deliverer for mail addresses and a function
// releasing its resources.
func mailTransport(cfg config.Config) (providers.Deliverer, func()) {
	if cfg.Alert.Transport == "kafka" {
		k := providers.NewKafkaDeliverer(cfg.Kafka.Broker, cfg.Kafka.Topic)
		return k, func() { _ = k.Close() }
	}
	return providers.NewEmailDeliverer(providers.EmailConfig{
		SMTPServer: cfg.Email.SMTPServer,
		SMTPPort:   cfg.Email.SMTPPort,
		Username:   cfg.Email.Username,
		Password:   cfg.Email.Password,
	}), func() {}
}
