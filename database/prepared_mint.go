package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightlink-network/ll-bridge-relayer/database/models"
	"github.com/lightlink-network/ll-bridge-relayer/relayer"
	"github.com/lightlink-network/ll-bridge-relayer/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ relayer.Sink = &Database{}

// Emit archives a prepared mint.
func (db *Database) Emit(ctx context.Context, tx *types.UnsignedMintTx) error {
	return db.InsertPreparedMint(ctx, models.NewPreparedMint(tx, time.Now()))
}

// InsertPreparedMint stores mint. A mint already stored for the same source
// nonce is left untouched and not treated as an error.
func (db *Database) InsertPreparedMint(ctx context.Context, mint models.PreparedMint) error {
	_, err := db.collection(preparedMintsCollection).InsertOne(ctx, mint)
	if err != nil {
		// Check if error is due to duplicate key
		if mongo.IsDuplicateKeyError(err) {
			db.logger.Info("prepared mint already archived", "sourceNonce", mint.SourceNonce)
			return nil
		}
		return fmt.Errorf("failed to insert prepared mint: %w", err)
	}

	return nil
}

func (db *Database) GetPreparedMintByNonce(ctx context.Context, sourceNonce string) (models.PreparedMint, error) {
	filter := bson.D{{Key: "source_nonce", Value: sourceNonce}}

	var mint models.PreparedMint
	if err := db.collection(preparedMintsCollection).FindOne(ctx, filter).Decode(&mint); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.PreparedMint{}, fmt.Errorf("prepared mint %s: %w", sourceNonce, ErrNotFound)
		}
		return models.PreparedMint{}, fmt.Errorf("failed to get prepared mint by nonce: %w", err)
	}

	return mint, nil
}

// GetPreparedMints returns one page of prepared mints, newest source block
// first. page starts at 1.
func (db *Database) GetPreparedMints(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	collection := db.collection(preparedMintsCollection)
	mongoFilter := buildFilter(filter)

	total, err := collection.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count prepared mints: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "source_block", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := collection.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get prepared mints: %w", err)
	}
	defer cursor.Close(ctx)

	mints := []models.PreparedMint{}
	if err := cursor.All(ctx, &mints); err != nil {
		return nil, fmt.Errorf("failed to decode prepared mints: %w", err)
	}

	return &models.PaginatedResult{
		Items:      mints,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func buildFilter(f models.Filter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.User != "" {
		filter["user"] = f.User
	}
	if f.Token != "" {
		filter["token"] = f.Token
	}
	return filter
}
