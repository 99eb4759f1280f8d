package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoDB struct {
	URI    string
	DBName string

	client   *mongo.Client
	archives *mongo.Collection
}

func (m *MongoDB) Init() error {
	if m.URI == "" || m.DBName == "" {
		return fmt.Errorf("mongodb: HOM_MONGO_URI and HOM_MONGO_DATABASE must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(m.URI))
	if err != nil {
		return fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}

	m.client = client
	m.archives = client.Database(m.DBName).Collection("ticket_archives")

	m.archives.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "archived_at", Value: -1}},
	})

	slog.Info("MongoDB archive ledger initialised", "component", "database", "database", m.DBName)
	return nil
}

func (m *MongoDB) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) RecordArchive(rec ArchiveRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rec.ArchivedAt.IsZero() {
		rec.ArchivedAt = time.Now().UTC()
	}
	_, err := m.archives.InsertOne(ctx, rec)
	return err
}

func (m *MongoDB) ListArchives(guildID string, limit int) ([]ArchiveRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "archived_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.archives.Find(ctx, bson.M{"guild_id": guildID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []ArchiveRecord
	return records, cursor.All(ctx, &records)
}
