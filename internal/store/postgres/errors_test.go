package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"slotbot/internal/store"
)

func TestLostSlotRace(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{
			"slot unique index",
			&pgconn.PgError{Code: pgerrUniqueViolation, ConstraintName: slotTakenConstraint},
			true,
		},
		{
			"wrapped",
			fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrUniqueViolation, ConstraintName: slotTakenConstraint}),
			true,
		},
		{
			"other unique index",
			&pgconn.PgError{Code: pgerrUniqueViolation, ConstraintName: "bookings_pkey"},
			false,
		},
		{
			"other pg error",
			&pgconn.PgError{Code: "40001"},
			false,
		},
		{
			"plain error",
			errors.New("boom"),
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lostSlotRace(tc.err); got != tc.want {
				t.Fatalf("lostSlotRace(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestConflictError(t *testing.T) {
	unique := &pgconn.PgError{Code: pgerrUniqueViolation, ConstraintName: "bookings_pkey"}
	if err := conflictError(unique); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Anything that is not a unique violation passes through untouched.
	plain := errors.New("connection reset")
	if err := conflictError(plain); !errors.Is(err, plain) {
		t.Fatalf("err = %v, want passthrough", err)
	}
}
