package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"slotbot/internal/domain"
	"slotbot/internal/store"
)

type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) SetDisplayName(ctx context.Context, userID int64, name string) error {
	u := domain.User{
		UserID:      userID,
		DisplayName: name,
	}

	_, err := r.db.NewInsert().
		Model(&u).
		On("CONFLICT (user_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (r *DirectoryRepo) DisplayName(ctx context.Context, userID int64) (string, error) {
	var name string
	err := r.db.NewSelect().
		Model((*domain.User)(nil)).
		Column("display_name").
		Where("user_id = ?", userID).
		Scan(ctx, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

var _ store.Directory = (*DirectoryRepo)(nil)
