package domain

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// User is a directory entry. UserID is the external chat identity; a user
// must have a row here before they may hold a booking.
type User struct {
	bun.BaseModel `bun:"table:users"`

	UserID      int64     `bun:"user_id,pk"`
	DisplayName string    `bun:"display_name,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}

// ValidDisplayName requires at least two space-separated tokens, i.e. both
// a given name and a family name.
func ValidDisplayName(raw string) bool {
	return len(strings.Fields(strings.TrimSpace(raw))) >= 2
}

// DisplayNameWithHandle appends the chat handle, when present, to the name
// stored in the directory.
func DisplayNameWithHandle(name, handle string) string {
	name = strings.TrimSpace(name)
	handle = strings.TrimSpace(strings.TrimPrefix(handle, "@"))
	if handle == "" {
		return name
	}
	return name + " (@" + handle + ")"
}
