package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yskhub/TaskVault/internal/db"
)

type TeamMember struct {
	ID    int64  `db:"id"`
	Email string `db:"email"`
	Role  string `db:"role"`
}

type TeamRepository interface {
	List(ctx context.Context) ([]*TeamMember, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, member *TeamMember) (*TeamMember, error)
	UpdateRole(ctx context.Context, memberID int64, role string) (*TeamMember, error)
	Delete(ctx context.Context, memberID int64) error
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

func (p *pgxTeamRepository) List(ctx context.Context) ([]*TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "email", "role"),
		sm.From("team_members"),
		sm.OrderBy("id"),
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*TeamMember, error) {
		member := &TeamMember{}
		if err = row.Scan(&member.ID, &member.Email, &member.Role); err != nil {
			return nil, err
		}
		return member, nil
	})
}

func (p *pgxTeamRepository) Count(ctx context.Context) (int, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(psql.Raw("count(id)")),
		sm.From("team_members"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	if err = e.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (p *pgxTeamRepository) Create(ctx context.Context, member *TeamMember) (*TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_members", "email", "role"),
		im.Values(psql.Arg(member.Email), psql.Arg(member.Role)),
		im.Returning("id", "email", "role"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	created := &TeamMember{}
	err = e.QueryRow(ctx, sql, args...).Scan(&created.ID, &created.Email, &created.Role)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (p *pgxTeamRepository) UpdateRole(ctx context.Context, memberID int64, role string) (*TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("team_members"),
		um.SetCol("role").ToArg(role),
		um.Where(psql.Quote("id").EQ(psql.Arg(memberID))),
		um.Returning("id", "email", "role"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	member := &TeamMember{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&member.ID, &member.Email, &member.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return member, nil
}

func (p *pgxTeamRepository) Delete(ctx context.Context, memberID int64) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("team_members"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(memberID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
