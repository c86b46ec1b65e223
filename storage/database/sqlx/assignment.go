package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/survey"
)

const assignmentCorrelationConstraint = "assignment_correlation_key"

type assignmentRow struct {
	ID           string    `db:"id"`
	TemplateID   string    `db:"template_id"`
	AssignerID   string    `db:"assigner_id"`
	RespondentID string    `db:"respondent_id"`
	TargetID     string    `db:"target_id"`
	Month        string    `db:"month"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row assignmentRow) toAssignment() survey.Assignment {
	return survey.Assignment{
		ID:           row.ID,
		TemplateID:   row.TemplateID,
		AssignerID:   row.AssignerID,
		RespondentID: row.RespondentID,
		TargetID:     row.TargetID,
		Month:        row.Month,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ survey.AssignmentRepository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) survey.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a survey.Assignment) (survey.Assignment, error) {
	query := `
INSERT INTO assignment (template_id, assigner_id, respondent_id, target_id, month, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING *`

	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, query,
		a.TemplateID, a.AssignerID, a.RespondentID, a.TargetID, a.Month, a.Status,
	)
	if err != nil {
		if isUniqueViolation(err, assignmentCorrelationConstraint) {
			return survey.Assignment{}, survey.ErrAssignmentExists
		}
		return survey.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *survey.AssignmentFilter, ordering ...core.DBOrdering) ([]survey.Assignment, error) {
	query := `SELECT * FROM assignment`
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.TemplateID != "" {
			clauses = append(clauses, "template_id = "+arg(filter.TemplateID))
		}
		if filter.Month != "" {
			clauses = append(clauses, "month = "+arg(filter.Month))
		}
		if key := filter.Key; key != nil {
			clauses = append(clauses,
				"template_id = "+arg(key.TemplateID),
				"respondent_id = "+arg(key.RespondentID),
				"target_id = "+arg(key.TargetID),
				"month = "+arg(key.Month),
			)
		}
		if len(filter.RespondentIn) > 0 {
			clauses = append(clauses, "respondent_id = ANY("+arg(pqStringArray(filter.RespondentIn))+")")
		}
		if len(filter.EitherPartyIn) > 0 {
			p := arg(pqStringArray(filter.EitherPartyIn))
			clauses = append(clauses, fmt.Sprintf("(respondent_id = ANY(%s) OR target_id = ANY(%s))", p, p))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy("month DESC, created_at DESC", ordering)

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]survey.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toAssignment())
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (survey.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return survey.Assignment{}, survey.ErrAssignmentNotFound
		}
		return survey.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a survey.Assignment) (survey.Assignment, error) {
	query := `
UPDATE assignment
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING *`

	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, query, a.ID, a.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return survey.Assignment{}, survey.ErrAssignmentNotFound
		}
		return survey.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}
