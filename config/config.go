package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Config holds every setting the bot reads from the environment.
// All variables carry the HOM_ prefix, e.g. HOM_DISCORD_TOKEN.
type Config struct {
	DiscordToken string
	GuildID      string

	ModRole          string
	TicketCategory   string
	ModLogChannel    string
	SupportChannel   string
	QuestionsChannel string
	PatreonChannel   string

	TemplateDir  string
	MessagesFile string

	Database DatabaseConfig
	AMQPURL  string

	Debug bool
}

type DatabaseConfig struct {
	Driver string // "sqlite" or "mongodb"

	SQLitePath string
	MongoURI   string
	MongoDB    string
}

// Load reads the configuration from the environment. Call godotenv.Load
// first if a .env file should be honoured.
func Load() *Config {
	cfg := &Config{
		DiscordToken:     os.Getenv("HOM_DISCORD_TOKEN"),
		GuildID:          os.Getenv("HOM_GUILD_ID"),
		ModRole:          os.Getenv("HOM_MOD_ROLE"),
		TicketCategory:   os.Getenv("HOM_TICKET_CATEGORY"),
		ModLogChannel:    os.Getenv("HOM_MOD_LOG_CHANNEL"),
		SupportChannel:   os.Getenv("HOM_SUPPORT_CHANNEL"),
		QuestionsChannel: os.Getenv("HOM_QUESTIONS_CHANNEL"),
		PatreonChannel:   os.Getenv("HOM_PATREON_CHANNEL"),
		TemplateDir:      os.Getenv("HOM_TEMPLATE_DIR"),
		MessagesFile:     os.Getenv("HOM_MESSAGES_FILE"),
		AMQPURL:          os.Getenv("HOM_AMQP_URL"),
		Debug:            envBool("HOM_DEBUG"),
		Database: DatabaseConfig{
			Driver:     os.Getenv("HOM_DB_DRIVER"),
			SQLitePath: os.Getenv("HOM_SQLITE_PATH"),
			MongoURI:   os.Getenv("HOM_MONGO_URI"),
			MongoDB:    os.Getenv("HOM_MONGO_DATABASE"),
		},
	}

	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "data/templates"
	}
	if cfg.MessagesFile == "" {
		cfg.MessagesFile = "data/messages.yaml"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/hom.db"
	}
	return cfg
}

// Validate reports every missing required variable before failing, so a
// misconfigured deployment shows the full list in one run.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"HOM_DISCORD_TOKEN", c.DiscordToken},
		{"HOM_GUILD_ID", c.GuildID},
		{"HOM_MOD_ROLE", c.ModRole},
		{"HOM_TICKET_CATEGORY", c.TicketCategory},
		{"HOM_MOD_LOG_CHANNEL", c.ModLogChannel},
		{"HOM_SUPPORT_CHANNEL", c.SupportChannel},
		{"HOM_QUESTIONS_CHANNEL", c.QuestionsChannel},
	}

	valid := true
	for _, r := range required {
		if r.value == "" {
			slog.Error("Required environment variable is missing", "key", r.key)
			valid = false
		}
	}
	if !valid {
		return fmt.Errorf("config: missing required environment variables")
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "mongodb" {
		return fmt.Errorf("config: unsupported HOM_DB_DRIVER %q (use \"sqlite\" or \"mongodb\")", c.Database.Driver)
	}
	return nil
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false
	}
	return v
}
