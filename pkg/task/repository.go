package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	Store(ctx context.Context, task Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter) ([]Task, error)
	Update(ctx context.Context, task Task) error
	Delete(ctx context.Context, id string) error
	FindByEventID(ctx context.Context, eventID string) (*Task, error)
}

type RepositoryImpl struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db, tx: nil}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const taskColumns = `id, title, description, status, priority, due_date, scheduled_date, tags, event_id, created_at, updated_at, completed_at`

func (r *RepositoryImpl) Store(ctx context.Context, task Task) error {
	query := `INSERT INTO task (` + taskColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	stmt, err := r.getQueryer().PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		millisOrNil(task.DueDate),
		millisOrNil(task.ScheduledDate),
		joinTags(task.Tags),
		nullableString(task.EventID),
		task.CreatedAt.UnixMilli(),
		task.UpdatedAt.UnixMilli(),
		millisOrNil(task.CompletedAt),
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE id = $1`

	row := r.getQueryer().QueryRowContext(ctx, query, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		err := fmt.Errorf("could not query task: %w", err)
		log.Error(err)
		return nil, err
	}
	return task, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter Filter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, "%,"+filter.Tag+",%")
		conditions = append(conditions, fmt.Sprintf("(',' || tags || ',') LIKE $%d", len(args)))
	}
	if filter.DueBefore != nil {
		args = append(args, filter.DueBefore.UnixMilli())
		conditions = append(conditions, fmt.Sprintf("due_date IS NOT NULL AND due_date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.getQueryer().QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query tasks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0, 10)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, task Task) error {
	query := `UPDATE task
              SET title = $1, description = $2, status = $3, priority = $4, due_date = $5,
                  scheduled_date = $6, tags = $7, event_id = $8, updated_at = $9, completed_at = $10
              WHERE id = $11`

	stmt, err := r.getQueryer().PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		millisOrNil(task.DueDate),
		millisOrNil(task.ScheduledDate),
		joinTags(task.Tags),
		nullableString(task.EventID),
		task.UpdatedAt.UnixMilli(),
		millisOrNil(task.CompletedAt),
		task.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not read affected rows: %w", err)
		log.Error(err)
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM task WHERE id = $1`

	result, err := r.getQueryer().ExecContext(ctx, query, id)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not read affected rows: %w", err)
		log.Error(err)
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *RepositoryImpl) FindByEventID(ctx context.Context, eventID string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE event_id = $1`

	row := r.getQueryer().QueryRowContext(ctx, query, eventID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		err := fmt.Errorf("could not query task by event id: %w", err)
		log.Error(err)
		return nil, err
	}
	return task, nil
}

func scanTask(row interface{ Scan(dest ...interface{}) error }) (*Task, error) {
	var task Task
	var status string
	var dueDate, scheduledDate, completedAt sql.NullInt64
	var createdAt, updatedAt int64
	var tags string
	var eventID sql.NullString

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&task.Priority,
		&dueDate,
		&scheduledDate,
		&tags,
		&eventID,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = Status(status)
	task.DueDate = timeFromMillis(dueDate)
	task.ScheduledDate = timeFromMillis(scheduledDate)
	task.Tags = splitTags(tags)
	task.EventID = eventID.String
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	task.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	task.CompletedAt = timeFromMillis(completedAt)
	return &task, nil
}

func millisOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timeFromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

// nullableString stores empty strings as NULL so the partial unique index on
// event_id only applies to tasks actually linked to an event.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
