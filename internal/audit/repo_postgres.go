package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists events via database/sql (pgx stdlib driver).
//
// Expected schema:
//
//	CREATE TABLE auth_events (
//	    id            uuid PRIMARY KEY,
//	    type          text NOT NULL,
//	    actor_user_id text,
//	    actor_role    text,
//	    session_id    text,
//	    ip_address    text,
//	    provider      text,
//	    message       text,
//	    created_at    timestamptz NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO auth_events (id, type, actor_user_id, actor_role, session_id, ip_address, provider, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.SessionID,
		e.IPAddress,
		e.Provider,
		e.Message,
		e.CreatedAt,
	)
	return err
}
