package repository

import (
	"context"
	"time"

	"github.com/arnabBaruah009/sms-nucleus/internal/model"
)

func (s *Store) GetActiveAllowListByPhone(ctx context.Context, phone string) (model.AllowListEntry, error) {
	var entry model.AllowListEntry
	row := s.pool.QueryRow(ctx, `
		SELECT id, phone, created_by, created_at, deleted_at
		FROM allow_list
		WHERE phone = $1 AND `+active+`
	`, phone)
	err := row.Scan(&entry.ID, &entry.Phone, &entry.CreatedBy, &entry.CreatedAt, &entry.DeletedAt)
	return entry, err
}

func (s *Store) ListAllowList(ctx context.Context) ([]model.AllowListEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, phone, created_by, created_at, deleted_at
		FROM allow_list
		WHERE `+active+`
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AllowListEntry
	for rows.Next() {
		var entry model.AllowListEntry
		if err := rows.Scan(&entry.ID, &entry.Phone, &entry.CreatedBy, &entry.CreatedAt, &entry.DeletedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CreateAllowListEntry(ctx context.Context, entry model.AllowListEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO allow_list (id, phone, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.ID, entry.Phone, entry.CreatedBy, entry.CreatedAt)
	return err
}

func (s *Store) SoftDeleteAllowListEntry(ctx context.Context, id string, deletedAt time.Time) (model.AllowListEntry, error) {
	var entry model.AllowListEntry
	row := s.pool.QueryRow(ctx, `
		UPDATE allow_list
		SET deleted_at = $1
		WHERE id = $2 AND `+active+`
		RETURNING id, phone, created_by, created_at, deleted_at
	`, deletedAt, id)
	err := row.Scan(&entry.ID, &entry.Phone, &entry.CreatedBy, &entry.CreatedAt, &entry.DeletedAt)
	return entry, err
}
