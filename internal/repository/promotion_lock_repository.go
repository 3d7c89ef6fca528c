package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PromotionLockRepository serializes promotion runs per academic year using
// postgres session advisory locks. The lock is tied to a dedicated
// connection, which is held until release so the unlock lands on the same
// session that acquired it.
type PromotionLockRepository struct {
	db *sqlx.DB
}

// NewPromotionLockRepository constructs a PromotionLockRepository.
func NewPromotionLockRepository(db *sqlx.DB) *PromotionLockRepository {
	return &PromotionLockRepository{db: db}
}

// TryAcquire attempts to take the per-year lock without blocking. When
// acquired it returns a release func that must be called once the batch is
// done; when the lock is held elsewhere it returns ok=false.
func (r *PromotionLockRepository) TryAcquire(ctx context.Context, yearID string) (release func(), ok bool, err error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock(hashtext($1))`, yearID); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release = func() {
		// Unlock on a background context so a cancelled request still
		// releases the lock before the connection goes back to the pool.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, yearID)
		_ = conn.Close()
	}
	return release, true, nil
}
