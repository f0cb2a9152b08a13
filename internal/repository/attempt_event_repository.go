package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exam-portal/internal/model"
)

// AttemptEventFilter narrows an exam's journal listing.
type AttemptEventFilter struct {
	StudentID model.ID
	Kind      model.AttemptEventKind
	Page      int
	PerPage   int
}

// AttemptEventRepository handles attempt journal data access.
type AttemptEventRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptEventRepository creates a new AttemptEventRepository.
func NewAttemptEventRepository(pool *pgxpool.Pool) *AttemptEventRepository {
	return &AttemptEventRepository{pool: pool}
}

// Insert appends one event and sets its ID.
func (r *AttemptEventRepository) Insert(ctx context.Context, ev *model.AttemptEvent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempt_events
		   (attempt_id, exam_id, student_id, kind, question_id, selected_key, remaining_seconds, detail, occurred_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9)
		 RETURNING id`,
		ev.AttemptID, ev.ExamID.String(), ev.StudentID.String(), string(ev.Kind),
		ev.QuestionID.String(), ev.SelectedKey, ev.RemainingSeconds, ev.Detail, ev.OccurredAt,
	).Scan(&ev.ID)
}

// ListByExam returns the journal of an exam in chronological order together
// with the total number of matching events.
func (r *AttemptEventRepository) ListByExam(ctx context.Context, examID model.ID, f AttemptEventFilter) ([]model.AttemptEvent, int, error) {
	where := `WHERE exam_id = $1
		  AND ($2::text = '' OR student_id = $2::text)
		  AND ($3::text = '' OR kind = $3::text)`
	args := []any{examID.String(), f.StudentID.String(), string(f.Kind)}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attempt_events `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attempt events: %w", err)
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, exam_id, student_id, kind,
		        COALESCE(question_id, ''), COALESCE(selected_key, ''),
		        remaining_seconds, COALESCE(detail, ''), occurred_at
		 FROM attempt_events `+where+`
		 ORDER BY occurred_at, id
		 LIMIT $4 OFFSET $5`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempt events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AttemptEvent, error) {
		var (
			ev                            model.AttemptEvent
			exam, student, question, kind string
		)
		err := row.Scan(&ev.ID, &ev.AttemptID, &exam, &student, &kind,
			&question, &ev.SelectedKey, &ev.RemainingSeconds, &ev.Detail, &ev.OccurredAt)
		ev.ExamID = model.ID(exam)
		ev.StudentID = model.ID(student)
		ev.QuestionID = model.ID(question)
		ev.Kind = model.AttemptEventKind(kind)
		return ev, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan attempt events: %w", err)
	}
	return events, total, nil
}
