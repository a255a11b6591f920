package pg

import (
	"errors"

	"github.com/feedpress/feedpress/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements storage.Store on top of a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(pool *ConnectionPool) *Store {
	return &Store{db: pool.conn}
}

const uniqueViolationCode = "23505"

// mapRowError translates pgx-level errors into the storage sentinels the
// orchestrators branch on.
func mapRowError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return storage.ErrDuplicateFingerprint
	}
	return err
}
