package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/darkodi/qrcode-service/internal/model"
)

// QRCodeRepository persists QR codes
type QRCodeRepository struct {
	c conn
}

const selectQRCode = `
	SELECT q.id, q.owner_id, q.name, q.content, q.config, q.short_url_id, q.qr_code_data,
	       q.created_at, q.updated_at,
	       s.id, s.short_code, s.destination_url, s.is_active, s.owner_id, s.created_at, s.updated_at
	FROM qr_codes q
	LEFT JOIN short_urls s ON s.id = q.short_url_id
`

// Create inserts a QR code
func (r *QRCodeRepository) Create(ctx context.Context, qr *model.QRCode) error {
	contentJSON, err := json.Marshal(qr.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	_, err = r.c.exec(ctx, `
		INSERT INTO qr_codes (id, owner_id, name, content_type, content, config, short_url_id, qr_code_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		qr.ID,
		nullable(qr.OwnerID),
		qr.Name,
		string(qr.Content.Type),
		string(contentJSON),
		configValue(qr.Config),
		nullable(qr.ShortURLID),
		qr.QRCodeData,
		qr.CreatedAt,
		qr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert qr code: %w", err)
	}
	return nil
}

// GetByID returns the QR code with its short URL, or ErrNotFound
func (r *QRCodeRepository) GetByID(ctx context.Context, id string) (*model.QRCode, error) {
	row := r.c.queryRow(ctx, selectQRCode+" WHERE q.id = ?", id)
	qr, err := scanQRCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get qr code: %w", err)
	}
	return qr, nil
}

// ListByOwner returns the owner's QR codes, newest first
func (r *QRCodeRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.QRCode, error) {
	rows, err := r.c.query(ctx, selectQRCode+" WHERE q.owner_id = ? ORDER BY q.created_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list qr codes: %w", err)
	}
	defer rows.Close()

	codes := []*model.QRCode{}
	for rows.Next() {
		qr, err := scanQRCode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan qr code: %w", err)
		}
		codes = append(codes, qr)
	}
	return codes, rows.Err()
}

// Update rewrites the mutable columns of a QR code
func (r *QRCodeRepository) Update(ctx context.Context, qr *model.QRCode) error {
	contentJSON, err := json.Marshal(qr.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	result, err := r.c.exec(ctx, `
		UPDATE qr_codes
		SET name = ?, content = ?, config = ?, short_url_id = ?, qr_code_data = ?, updated_at = ?
		WHERE id = ?`,
		qr.Name,
		string(contentJSON),
		configValue(qr.Config),
		nullable(qr.ShortURLID),
		qr.QRCodeData,
		qr.UpdatedAt,
		qr.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update qr code: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a QR code. The bound short URL is removed by the caller.
func (r *QRCodeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.c.exec(ctx, `DELETE FROM qr_codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete qr code: %w", err)
	}
	return checkAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQRCode(row rowScanner) (*model.QRCode, error) {
	var (
		qr          model.QRCode
		ownerID     sql.NullString
		contentJSON string
		configJSON  sql.NullString
		shortURLID  sql.NullString

		sID        sql.NullString
		sCode      sql.NullString
		sDest      sql.NullString
		sActive    sql.NullBool
		sOwnerID   sql.NullString
		sCreatedAt sql.NullTime
		sUpdatedAt sql.NullTime
	)

	err := row.Scan(
		&qr.ID, &ownerID, &qr.Name, &contentJSON, &configJSON, &shortURLID, &qr.QRCodeData,
		&qr.CreatedAt, &qr.UpdatedAt,
		&sID, &sCode, &sDest, &sActive, &sOwnerID, &sCreatedAt, &sUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(contentJSON), &qr.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", qr.ID, err)
	}
	qr.OwnerID = nullString(ownerID)
	qr.ShortURLID = nullString(shortURLID)
	if configJSON.Valid {
		qr.Config = json.RawMessage(configJSON.String)
	}

	if sID.Valid {
		qr.ShortURL = &model.ShortURL{
			ID:             sID.String,
			ShortCode:      sCode.String,
			DestinationURL: sDest.String,
			IsActive:       sActive.Bool,
			OwnerID:        nullString(sOwnerID),
			CreatedAt:      sCreatedAt.Time,
			UpdatedAt:      sUpdatedAt.Time,
		}
	}

	return &qr, nil
}

func configValue(cfg json.RawMessage) any {
	if len(cfg) == 0 {
		return nil
	}
	return string(cfg)
}
