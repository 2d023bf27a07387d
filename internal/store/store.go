package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"appointment-booking-api/internal/model"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrStale     = errors.New("store: record changed since it was read")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Backend is everything the service needs from persistence. Both the
// Postgres Store and Memory satisfy it.
type Backend interface {
	Ping(ctx context.Context) error

	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindAvailable(ctx context.Context) ([]model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	ListByOwner(ctx context.Context, userID string) ([]model.Appointment, error)
	Save(ctx context.Context, a *model.Appointment) (*model.Appointment, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Store struct {
	pool *pgxpool.Pool
}

var _ Backend = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// mapErr turns driver errors into package sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case "22P02":
			// malformed uuid in a lookup can never match a row
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
