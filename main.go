package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hom-bot/archive"
	"hom-bot/bot"
	"hom-bot/config"
	"hom-bot/embeds"
	"hom-bot/events"
	"hom-bot/handlers"
	"hom-bot/lang"
	"hom-bot/logger"
	"hom-bot/storage"
	"hom-bot/templates"
	"hom-bot/tickets"
)

func main() {
	cleanup := flag.Bool("cleanup", false, "Remove slash commands on shutdown")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := config.Load()
	logger.Init(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	replies, err := lang.Load(cfg.MessagesFile)
	if err != nil {
		slog.Error("Failed to load message catalog", "path", cfg.MessagesFile, "error", err)
		os.Exit(1)
	}

	store, err := templates.Load(cfg.TemplateDir)
	if err != nil {
		slog.Error("Failed to load templates", "dir", cfg.TemplateDir, "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		slog.Error("Failed to open archive ledger", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	publisher, err := events.Connect(cfg.AMQPURL)
	if err != nil {
		slog.Warn("Event publishing disabled", "error", err)
	}
	defer publisher.Close()

	b, err := bot.New(cfg)
	if err != nil {
		slog.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	directory := tickets.NewDirectory(&tickets.SessionChannels{Session: b.Session}, cfg.TicketCategory)
	builder := embeds.NewBuilder(store, cfg.QuestionsChannel, cfg.PatreonChannel)
	exporter := archive.NewExporter(b.Session, store, cfg.ModLogChannel)

	service := tickets.NewService(tickets.ServiceDeps{
		Messenger:  b.Session,
		Directory:  directory,
		Embeds:     builder,
		Replies:    replies,
		Exporter:   exporter,
		Ledger:     db,
		Publisher:  publisher,
		ModRole:    cfg.ModRole,
		CategoryID: cfg.TicketCategory,
		AppID:      b.AppID,
	})

	// Handlers must be listening before the gateway opens so no
	// interaction arrives unrouted.
	h := handlers.New(service, builder, replies, cfg.ModRole)
	h.Register(b.Session)

	if err := b.Start(); err != nil {
		slog.Error("Failed to connect to the gateway", "error", err)
		os.Exit(1)
	}
	defer b.Stop()

	b.RegisterCommands(handlers.Commands())

	slog.Info("Bot is running, press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	if *cleanup {
		b.CleanupCommands()
	}
}
