package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darkodi/qrcode-service/internal/model"
)

// ShortURLRepository persists short URLs
type ShortURLRepository struct {
	c conn
}

const selectShortURL = `
	SELECT id, short_code, destination_url, is_active, owner_id, created_at, updated_at
	FROM short_urls
`

// Create inserts a short URL. It returns ErrShortCodeTaken when the short
// code is already in use; the surrounding transaction stays usable.
func (r *ShortURLRepository) Create(ctx context.Context, s *model.ShortURL) error {
	return r.c.savepoint(ctx, "short_url_create", func() error {
		_, err := r.c.exec(ctx, `
			INSERT INTO short_urls (id, short_code, destination_url, is_active, owner_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID,
			s.ShortCode,
			s.DestinationURL,
			s.IsActive,
			nullable(s.OwnerID),
			s.CreatedAt,
			s.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return ErrShortCodeTaken
		}
		if err != nil {
			return fmt.Errorf("failed to insert short url: %w", err)
		}
		return nil
	})
}

// GetByID returns a short URL or ErrNotFound
func (r *ShortURLRepository) GetByID(ctx context.Context, id string) (*model.ShortURL, error) {
	return r.get(ctx, "id", id)
}

// GetByShortCode returns a short URL or ErrNotFound
func (r *ShortURLRepository) GetByShortCode(ctx context.Context, code string) (*model.ShortURL, error) {
	return r.get(ctx, "short_code", code)
}

func (r *ShortURLRepository) get(ctx context.Context, column, value string) (*model.ShortURL, error) {
	row := r.c.queryRow(ctx, selectShortURL+" WHERE "+column+" = ?", value)

	var (
		s       model.ShortURL
		dest    sql.NullString
		ownerID sql.NullString
	)
	err := row.Scan(&s.ID, &s.ShortCode, &dest, &s.IsActive, &ownerID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get short url: %w", err)
	}

	s.DestinationURL = dest.String
	s.OwnerID = nullString(ownerID)
	return &s, nil
}

// UpdateDestination points the short URL somewhere else
func (r *ShortURLRepository) UpdateDestination(ctx context.Context, id, destination string, at time.Time) error {
	result, err := r.c.exec(ctx,
		`UPDATE short_urls SET destination_url = ?, updated_at = ? WHERE id = ?`,
		destination, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update short url: %w", err)
	}
	return checkAffected(result)
}

// SetActive enables or disables redirects through the short URL
func (r *ShortURLRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	result, err := r.c.exec(ctx,
		`UPDATE short_urls SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update short url: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a short URL. A QR code still referencing it is detached.
func (r *ShortURLRepository) Delete(ctx context.Context, id string) error {
	result, err := r.c.exec(ctx, `DELETE FROM short_urls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete short url: %w", err)
	}
	return checkAffected(result)
}
