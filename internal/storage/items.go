package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/news-dedup/internal/core/domain"
	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

// FetchCandidates returns items created after since, newest first.
// With onlyRelevant set, items below MinRelevance are excluded.
func (db *DB) FetchCandidates(ctx context.Context, since time.Time, onlyRelevant bool, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, content, ai_summary, relevance_score, created_at
		FROM news_items
		WHERE created_at > $1
		  AND (NOT $2::boolean OR relevance_score >= $3)
		ORDER BY created_at DESC
		LIMIT $4
	`, toTimestamptz(since), onlyRelevant, db.MinRelevance, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0, limit)

	for rows.Next() {
		var (
			id        pgtype.UUID
			title     pgtype.Text
			content   pgtype.Text
			summary   pgtype.Text
			relevance pgtype.Float4
			createdAt pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &title, &content, &summary, &relevance, &createdAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		candidates = append(candidates, domain.Candidate{
			ID:             fromUUID(id),
			Title:          fromText(title),
			Content:        fromText(content),
			AISummary:      fromText(summary),
			RelevanceScore: fromFloat4(relevance),
			CreatedAt:      fromTimestamptz(createdAt),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

// CreateItem stores a new item together with its origin source link.
func (db *DB) CreateItem(ctx context.Context, item domain.NewItem) (string, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns error, this is best-effort cleanup
	}()

	var id pgtype.UUID

	err = tx.QueryRow(ctx, `
		INSERT INTO news_items (title, content, ai_summary, relevance_score)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, SanitizeUTF8(item.Title), toText(item.Content), toText(item.AISummary), item.RelevanceScore).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}

	if item.SourceID != "" {
		if err := insertSourceLink(ctx, tx, id, item.SourceID, item.SourceURL); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	return fromUUID(id), nil
}

// MergeSource links sourceID to an existing item. Linking the same source
// twice is a successful no-op.
func (db *DB) MergeSource(ctx context.Context, itemID, sourceID, sourceURL string) (bool, error) {
	id := toUUID(itemID)
	if !id.Valid {
		return false, fmt.Errorf("merge source %q: %w", itemID, coreerrors.ErrInvalidID)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns error, this is best-effort cleanup
	}()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM news_items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}

	if !exists {
		return false, fmt.Errorf("merge source into %s: %w", itemID, coreerrors.ErrNotFound)
	}

	if err := insertSourceLink(ctx, tx, id, sourceID, sourceURL); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

// SourceLinks returns the sources attached to itemID, oldest first.
func (db *DB) SourceLinks(ctx context.Context, itemID string) ([]domain.SourceLink, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT source_id, source_url, created_at
		FROM news_item_sources
		WHERE item_id = $1
		ORDER BY created_at, source_id
	`, toUUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("get source links: %w", err)
	}
	defer rows.Close()

	var links []domain.SourceLink

	for rows.Next() {
		var (
			sourceID  string
			sourceURL pgtype.Text
			createdAt pgtype.Timestamptz
		)

		if err := rows.Scan(&sourceID, &sourceURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan source link: %w", err)
		}

		links = append(links, domain.SourceLink{
			ItemID:    itemID,
			SourceID:  sourceID,
			SourceURL: fromText(sourceURL),
			CreatedAt: fromTimestamptz(createdAt),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source links: %w", err)
	}

	return links, nil
}

func insertSourceLink(ctx context.Context, tx pgx.Tx, itemID pgtype.UUID, sourceID, sourceURL string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO news_item_sources (item_id, source_id, source_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, source_id) DO NOTHING
	`, itemID, SanitizeUTF8(sourceID), toText(sourceURL))
	if err != nil {
		return fmt.Errorf("insert source link: %w", err)
	}

	return nil
}
