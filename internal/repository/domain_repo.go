package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/darkodi/qrcode-service/internal/model"
)

// DomainRepository persists custom domains
type DomainRepository struct {
	c conn
}

// Create inserts a custom domain. A domain can only be created as default
// once its SSL certificate is active.
func (r *DomainRepository) Create(ctx context.Context, d *model.CustomDomain) error {
	if d.IsDefault && d.SSLStatus != model.SSLActive {
		return ErrDomainNotActive
	}
	d.Domain = strings.ToLower(d.Domain)

	if d.IsDefault {
		if err := r.clearDefault(ctx, d.OwnerID); err != nil {
			return err
		}
	}

	_, err := r.c.exec(ctx, `
		INSERT INTO custom_domains (id, owner_id, domain, ssl_status, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Domain, string(d.SSLStatus), d.IsDefault, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert custom domain: %w", err)
	}
	return nil
}

// ListByOwner returns all domains of an owner, oldest first
func (r *DomainRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.CustomDomain, error) {
	rows, err := r.c.query(ctx, `
		SELECT id, owner_id, domain, ssl_status, is_default, created_at
		FROM custom_domains
		WHERE owner_id = ?
		ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom domains: %w", err)
	}
	defer rows.Close()

	domains := []model.CustomDomain{}
	for rows.Next() {
		var (
			d      model.CustomDomain
			status string
		)
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Domain, &status, &d.IsDefault, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan custom domain: %w", err)
		}
		d.SSLStatus = model.SSLStatus(status)
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// SetDefault makes the domain the owner's default, unsetting any other.
// The domain must have an active SSL certificate.
func (r *DomainRepository) SetDefault(ctx context.Context, ownerID, id string) error {
	var status string
	err := r.c.queryRow(ctx,
		`SELECT ssl_status FROM custom_domains WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&status)
	if err != nil {
		return notFoundOr(err, "failed to get custom domain")
	}
	if model.SSLStatus(status) != model.SSLActive {
		return ErrDomainNotActive
	}

	if err := r.clearDefault(ctx, ownerID); err != nil {
		return err
	}

	result, err := r.c.exec(ctx, `UPDATE custom_domains SET is_default = ? WHERE id = ?`, true, id)
	if err != nil {
		return fmt.Errorf("failed to set default domain: %w", err)
	}
	return checkAffected(result)
}

// UpdateSSLStatus records certificate progress. A domain leaving the active
// state stops being the default.
func (r *DomainRepository) UpdateSSLStatus(ctx context.Context, id string, status model.SSLStatus) error {
	query := `UPDATE custom_domains SET ssl_status = ? WHERE id = ?`
	if status != model.SSLActive {
		query = `UPDATE custom_domains SET ssl_status = ?, is_default = FALSE WHERE id = ?`
	}

	result, err := r.c.exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update ssl status: %w", err)
	}
	return checkAffected(result)
}

func (r *DomainRepository) clearDefault(ctx context.Context, ownerID string) error {
	_, err := r.c.exec(ctx,
		`UPDATE custom_domains SET is_default = ? WHERE owner_id = ? AND is_default = ?`,
		false, ownerID, true,
	)
	if err != nil {
		return fmt.Errorf("failed to clear default domain: %w", err)
	}
	return nil
}
