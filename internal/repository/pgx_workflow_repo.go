package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yskhub/TaskVault/internal/db"
)

type Workflow struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

// Step rows are keyed by (workflow_id, idx); the index is the step's only
// identity and is stable after creation.
type Step struct {
	WorkflowID int64  `db:"workflow_id"`
	Idx        int    `db:"idx"`
	Title      string `db:"title"`
	AssignedTo string `db:"assigned_to"`
	Status     string `db:"status"`
}

type StepPatch struct {
	WorkflowID int64
	Idx        int
	Title      *string
	AssignedTo *string
	Status     *string
}

type WorkflowRepository interface {
	List(ctx context.Context) ([]*Workflow, error)
	Get(ctx context.Context, workflowID int64) (*Workflow, error)
	Create(ctx context.Context, workflow *Workflow) (*Workflow, error)
	ListSteps(ctx context.Context, workflowID int64) ([]*Step, error)
	ListAllSteps(ctx context.Context) ([]*Step, error)
	InsertSteps(ctx context.Context, steps []*Step) error
	PatchStep(ctx context.Context, patch *StepPatch) error
}

type pgxWorkflowRepository struct {
	pool *pgxpool.Pool
}

func NewPgxWorkflowRepository(pool *pgxpool.Pool) WorkflowRepository {
	return &pgxWorkflowRepository{pool: pool}
}

func (p *pgxWorkflowRepository) List(ctx context.Context) ([]*Workflow, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "title"),
		sm.From("workflows"),
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Workflow, error) {
		wf := &Workflow{}
		if err = row.Scan(&wf.ID, &wf.Title); err != nil {
			return nil, err
		}
		return wf, nil
	})
}

func (p *pgxWorkflowRepository) Get(ctx context.Context, workflowID int64) (*Workflow, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "title"),
		sm.From("workflows"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(workflowID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	wf := &Workflow{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&wf.ID, &wf.Title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return wf, nil
}

func (p *pgxWorkflowRepository) Create(ctx context.Context, workflow *Workflow) (*Workflow, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("workflows", "title"),
		im.Values(psql.Arg(workflow.Title)),
		im.Returning("id", "title"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	created := &Workflow{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&created.ID, &created.Title); err != nil {
		return nil, err
	}

	return created, nil
}

func (p *pgxWorkflowRepository) ListSteps(ctx context.Context, workflowID int64) ([]*Step, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("workflow_id", "idx", "title", "assigned_to", "status"),
		sm.From("workflow_steps"),
		sm.Where(psql.Quote("workflow_id").EQ(psql.Arg(workflowID))),
		sm.OrderBy("idx"),
	)

	return p.collectSteps(ctx, e, q)
}

func (p *pgxWorkflowRepository) ListAllSteps(ctx context.Context) ([]*Step, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("workflow_id", "idx", "title", "assigned_to", "status"),
		sm.From("workflow_steps"),
		sm.OrderBy("workflow_id"),
		sm.OrderBy("idx"),
	)

	return p.collectSteps(ctx, e, q)
}

func (p *pgxWorkflowRepository) collectSteps(ctx context.Context, e db.Executor, q bob.BaseQuery[*dialect.SelectQuery]) ([]*Step, error) {
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Step, error) {
		step := &Step{}
		if err = row.Scan(&step.WorkflowID, &step.Idx, &step.Title, &step.AssignedTo, &step.Status); err != nil {
			return nil, err
		}
		return step, nil
	})
}

func (p *pgxWorkflowRepository) InsertSteps(ctx context.Context, steps []*Step) error {
	if len(steps) == 0 {
		return nil
	}

	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	values := make([]bob.Mod[*dialect.InsertQuery], 0, len(steps)+1)
	values = append(values, im.Into("workflow_steps", "workflow_id", "idx", "title", "assigned_to", "status"))
	for _, s := range steps {
		values = append(values, im.Values(
			psql.Arg(s.WorkflowID),
			psql.Arg(s.Idx),
			psql.Arg(s.Title),
			psql.Arg(s.AssignedTo),
			psql.Arg(s.Status),
		))
	}

	q := psql.Insert(values...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func (p *pgxWorkflowRepository) PatchStep(ctx context.Context, patch *StepPatch) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 3)

	if patch.Title != nil {
		sets = append(sets, um.SetCol("title").ToArg(*patch.Title))
	}
	if patch.AssignedTo != nil {
		sets = append(sets, um.SetCol("assigned_to").ToArg(*patch.AssignedTo))
	}
	if patch.Status != nil {
		sets = append(sets, um.SetCol("status").ToArg(*patch.Status))
	}

	q := psql.Update(
		um.Table("workflow_steps"),
		um.Where(psql.Quote("workflow_id").EQ(psql.Arg(patch.WorkflowID))),
		um.Where(psql.Quote("idx").EQ(psql.Arg(patch.Idx))),
	)

	q.Apply(sets...)

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
