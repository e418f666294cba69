package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yskhub/TaskVault/internal/db"
)

type AuditLog struct {
	ID        string    `db:"id"`
	ActorID   *string   `db:"actor_id"`
	ActorRole *string   `db:"actor_role"`
	Action    string    `db:"action"`
	Target    *string   `db:"target"`
	CreatedAt time.Time `db:"created_at"`
}

type AuditRepository interface {
	Insert(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, limit int) ([]*AuditLog, error)
}

type pgxAuditRepository struct {
	pool *pgxpool.Pool
}

func NewPgxAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &pgxAuditRepository{pool: pool}
}

func (p *pgxAuditRepository) Insert(ctx context.Context, entry *AuditLog) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("audit_logs", "actor_id", "actor_role", "action", "target"),
		im.Values(
			psql.Arg(entry.ActorID),
			psql.Arg(entry.ActorRole),
			psql.Arg(entry.Action),
			psql.Arg(entry.Target),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func (p *pgxAuditRepository) List(ctx context.Context, limit int) ([]*AuditLog, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "actor_id", "actor_role", "action", "target", "created_at"),
		sm.From("audit_logs"),
		sm.OrderBy("created_at").Desc(),
		sm.Limit(int64(limit)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*AuditLog, error) {
		entry := &AuditLog{}
		if err = row.Scan(&entry.ID, &entry.ActorID, &entry.ActorRole, &entry.Action, &entry.Target, &entry.CreatedAt); err != nil {
			return nil, err
		}
		return entry, nil
	})
}
