// Package main is the entry point for the PancyPremium Go application.
// It initializes all systems and starts the bot fleet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/internal/commands"
	"github.com/PancyStudios/PancyPremiumGo/internal/events"
	"github.com/PancyStudios/PancyPremiumGo/pkg/audit"
	"github.com/PancyStudios/PancyPremiumGo/pkg/config"
	"github.com/PancyStudios/PancyPremiumGo/pkg/database"
	"github.com/PancyStudios/PancyPremiumGo/pkg/discord"
	"github.com/PancyStudios/PancyPremiumGo/pkg/errors"
	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/PancyStudios/PancyPremiumGo/pkg/metrics"
	"github.com/PancyStudios/PancyPremiumGo/pkg/mqtt"
	"github.com/PancyStudios/PancyPremiumGo/pkg/subscription"
	"github.com/PancyStudios/PancyPremiumGo/pkg/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando PancyPremium Go %s (%s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize error handler
	var fleet *discord.Fleet
	errors.Init(cfg.ErrorWebhook, func() {
		if fleet != nil {
			fleet.Stop()
		}
	})

	// Initialize database. Commands answer with an error while it is down
	// and the connection keeps retrying in the background.
	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
	} else if err := db.EnsureIndexes(ctx); err != nil {
		logger.Error(fmt.Sprintf("Error creando índices: %v", err), "Main")
	}
	defer func() {
		if err := db.Disconnect(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando la base de datos: %v", err), "Main")
		}
	}()

	codes := database.NewCodeStore(db)
	guilds := database.NewGuildStore(db)

	// Initialize Discord clients, one per token
	fleet, err = discord.Init(cfg.BotTokens)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord clients: %v", err), "Main")
		os.Exit(1)
	}
	roles := discord.NewRoleManager(fleet)

	// Initialize MQTT
	var mqttClient *mqtt.MqttCommunicator
	if cfg.MQTTEnabled() {
		mqttClientID := "pancypremium"
		if !cfg.IsProd() {
			mqttClientID = "pancypremium_canary"
		}
		mqttClient = mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
		defer mqttClient.Destroy()
	} else {
		logger.Warn("MQTT_HOST no configurado, MQTT deshabilitado", "Main")
	}

	// Audit log fan-out
	hub := web.NewHub()
	auditOpts := []audit.Option{
		audit.WithDiscord(fleet, cfg.LogChannelID),
		audit.WithBroadcaster(hub),
		audit.WithGuildNames(fleet.GuildName),
		audit.WithFooter(fmt.Sprintf("Bot Instance: %s", instanceName(cfg))),
	}
	if mqttClient != nil {
		auditOpts = append(auditOpts, audit.WithPublisher(mqttClient))
	}
	dispatcher := audit.NewDispatcher(auditOpts...)
	defer dispatcher.Close()

	// Premium lifecycle
	svc := subscription.Init(codes, guilds, roles, subscription.WithNotifier(dispatcher))
	sweeper := subscription.NewSweeper(guilds, roles, cfg.SweepInterval,
		subscription.WithReadyFunc(fleet.AnyReady),
		subscription.WithNotifier(dispatcher),
	)
	defer sweeper.Stop()

	if mqttClient != nil {
		mqtt.RegisterResponders(mqttClient, svc)
	}

	// Initialize web server
	webServer := web.Init(web.Options{
		Fleet:      fleet,
		Database:   db,
		Premium:    svc,
		Hub:        hub,
		Metrics:    metrics.Handler(),
		AdminKey:   cfg.AdminAPIKey,
		WebhookURL: cfg.LogsWebhook,
	})
	webServer.StartAsync(cfg.Port)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := webServer.Shutdown(sctx); err != nil {
			logger.Warn(fmt.Sprintf("Error apagando el servidor web: %v", err), "Main")
		}
	}()

	// Register commands and events on every bot
	for _, client := range fleet.Clients() {
		commands.RegisterAll(client)
		events.RegisterAll(client, events.Deps{Ctx: ctx, Sweeper: sweeper})
	}

	// Start the bots
	if err := fleet.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord clients: %v", err), "Main")
		os.Exit(1)
	}
	defer fleet.Stop()

	logger.Success("PancyPremium Go iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando PancyPremium Go...", "Main")
	cancel()
}

// instanceName labels audit embeds when several deployments share a channel
func instanceName(cfg *config.Config) string {
	host, err := os.Hostname()
	if err != nil {
		host = "desconocido"
	}
	return fmt.Sprintf("%s@%s", cfg.Environment, host)
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
