package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	Path string
	db   *sql.DB
}

func (s *SQLiteDB) Init() error {
	if dir := filepath.Dir(s.Path); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	s.db = db

	schema := `
	CREATE TABLE IF NOT EXISTS archives (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id     TEXT NOT NULL,
		channel_id   TEXT NOT NULL,
		owner_id     TEXT NOT NULL,
		label        TEXT NOT NULL,
		archived_by  TEXT NOT NULL,
		messages     INTEGER NOT NULL DEFAULT 0,
		attachments  INTEGER NOT NULL DEFAULT 0,
		transcript   TEXT NOT NULL DEFAULT '',
		archived_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_archives_guild ON archives(guild_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("SQLite archive ledger initialised", "component", "database", "path", s.Path)
	return nil
}

func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDB) RecordArchive(rec ArchiveRecord) error {
	_, err := s.db.Exec(
		"INSERT INTO archives (guild_id, channel_id, owner_id, label, archived_by, messages, attachments, transcript, archived_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.GuildID, rec.ChannelID, rec.OwnerID, rec.Label, rec.ArchivedBy,
		rec.Messages, rec.Attachments, rec.Transcript, rec.ArchivedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteDB) ListArchives(guildID string, limit int) ([]ArchiveRecord, error) {
	rows, err := s.db.Query(
		"SELECT id, guild_id, channel_id, owner_id, label, archived_by, messages, attachments, transcript, archived_at FROM archives WHERE guild_id = ? ORDER BY id DESC LIMIT ?",
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ArchiveRecord
	for rows.Next() {
		var rec ArchiveRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.GuildID, &rec.ChannelID, &rec.OwnerID, &rec.Label,
			&rec.ArchivedBy, &rec.Messages, &rec.Attachments, &rec.Transcript, &ts); err != nil {
			return nil, err
		}
		rec.ArchivedAt, _ = time.Parse(time.RFC3339, ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}
