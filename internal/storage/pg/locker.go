package pg

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Acquire takes a session-scoped advisory lock keyed by (site, job type).
// The lock lives on a dedicated pooled connection so it survives until
// Release explicitly unlocks it, and disappears with the session if the
// process dies mid-run.
func (s *Store) Acquire(ctx context.Context, siteID uuid.UUID, job domain.JobType) (storage.RunLock, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	key := advisoryLockKey(siteID, job)
	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1);`, key).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock for site %s job %s: %w", siteID, job, err)
	}
	if !locked {
		conn.Release()
		return nil, storage.ErrRunInProgress
	}

	return &advisoryLock{conn: conn, key: key}, nil
}

type advisoryLock struct {
	conn *pgxpool.Conn
	key  int64
}

func (l *advisoryLock) Release(ctx context.Context) error {
	defer l.conn.Release()

	var unlocked bool
	if err := l.conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1);`, l.key).Scan(&unlocked); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	if !unlocked {
		return fmt.Errorf("advisory unlock: lock %d was not held", l.key)
	}
	return nil
}

func advisoryLockKey(siteID uuid.UUID, job domain.JobType) int64 {
	h := fnv.New64a()
	h.Write(siteID[:])
	h.Write([]byte(job))
	return int64(h.Sum64())
}
