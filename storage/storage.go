// Package storage records an archive ledger: one row per archived
// ticket. Live ticket state never touches the database (it is derived
// from channel metadata); the ledger only exists so moderators can
// answer "who archived what, when" after the channel is gone.
package storage

import (
	"fmt"
	"time"

	"hom-bot/config"
)

// ArchiveRecord is one archived ticket.
type ArchiveRecord struct {
	ID          int       `json:"id"          bson:"-"`
	GuildID     string    `json:"guild_id"    bson:"guild_id"`
	ChannelID   string    `json:"channel_id"  bson:"channel_id"`
	OwnerID     string    `json:"owner_id"    bson:"owner_id"`
	Label       string    `json:"label"       bson:"label"`
	ArchivedBy  string    `json:"archived_by" bson:"archived_by"`
	Messages    int       `json:"messages"    bson:"messages"`
	Attachments int       `json:"attachments" bson:"attachments"`
	Transcript  string    `json:"transcript"  bson:"transcript"`
	ArchivedAt  time.Time `json:"archived_at" bson:"archived_at"`
}

// Database is the archive ledger backend.
type Database interface {
	Init() error
	Close() error

	RecordArchive(rec ArchiveRecord) error
	ListArchives(guildID string, limit int) ([]ArchiveRecord, error)
}

// Open initialises the backend selected by the config.
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "sqlite":
		db := &SQLiteDB{Path: cfg.SQLitePath}
		if err := db.Init(); err != nil {
			return nil, err
		}
		return db, nil

	case "mongodb":
		db := &MongoDB{URI: cfg.MongoURI, DBName: cfg.MongoDB}
		if err := db.Init(); err != nil {
			return nil, err
		}
		return db, nil

	default:
		return nil, fmt.Errorf("storage: unsupported driver %q (use \"sqlite\" or \"mongodb\")", cfg.Driver)
	}
}
