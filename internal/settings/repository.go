package settings

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error
	ListPages(ctx context.Context) ([]Page, error)
	GetPage(ctx context.Context, pageID uint) (*Page, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSettings(ctx context.Context) (*Settings, error) {
	var (
		s      Settings
		pageID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT enabled, title, description, test_mode,
			merchant_id, api_key, api_secret, return_page_id, updated_at
		FROM gateway_settings
		WHERE id = 1
	`).Scan(
		&s.Enabled, &s.Title, &s.Description, &s.TestMode,
		&s.MerchantID, &s.APIKey, &s.APISecret, &pageID, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	if pageID.Valid {
		id := uint(pageID.Int64)
		s.ReturnPageID = &id
	}
	return &s, nil
}

func (r *repository) SaveSettings(ctx context.Context, s *Settings) error {
	var pageID sql.NullInt64
	if s.ReturnPageID != nil {
		pageID = sql.NullInt64{Int64: int64(*s.ReturnPageID), Valid: true}
	}

	return r.db.QueryRowContext(ctx, `
		INSERT INTO gateway_settings (
			id, enabled, title, description, test_mode,
			merchant_id, api_key, api_secret, return_page_id, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			test_mode = EXCLUDED.test_mode,
			merchant_id = EXCLUDED.merchant_id,
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			return_page_id = EXCLUDED.return_page_id,
			updated_at = now()
		RETURNING updated_at
	`,
		s.Enabled, s.Title, s.Description, s.TestMode,
		s.MerchantID, s.APIKey, s.APISecret, pageID,
	).Scan(&s.UpdatedAt)
}

func (r *repository) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, parent_id, title, slug, menu_order
		FROM pages
		WHERE status = 'published'
		ORDER BY menu_order ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (r *repository) GetPage(ctx context.Context, pageID uint) (*Page, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, parent_id, title, slug, menu_order
		FROM pages
		WHERE id = $1 AND status = 'published'
	`, pageID)

	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPageNotFound
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(s scanner) (*Page, error) {
	var (
		p        Page
		parentID sql.NullInt64
	)
	if err := s.Scan(&p.ID, &parentID, &p.Title, &p.Slug, &p.MenuOrder); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := uint(parentID.Int64)
		p.ParentID = &id
	}
	return &p, nil
}
