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

const responseCorrelationConstraint = "response_correlation_key"

type responseRow struct {
	ID            string         `db:"id"`
	TemplateID    string         `db:"template_id"`
	RespondentID  string         `db:"respondent_id"`
	TargetID      string         `db:"target_id"`
	Month         string         `db:"month"`
	SubmittedAt   time.Time      `db:"submitted_at"`
	Answers       survey.Answers `db:"answers"`
	WeightedScore float64        `db:"weighted_score"`
}

func (row responseRow) toResponse() survey.Response {
	return survey.Response{
		ID:            row.ID,
		TemplateID:    row.TemplateID,
		RespondentID:  row.RespondentID,
		TargetID:      row.TargetID,
		Month:         row.Month,
		SubmittedAt:   row.SubmittedAt,
		Answers:       row.Answers,
		WeightedScore: row.WeightedScore,
	}
}

type responseRepository struct {
	db *sqlx.DB
}

var _ survey.ResponseRepository = (*responseRepository)(nil) // interface compliance check

func NewResponseRepository(db *sqlx.DB) survey.ResponseRepository {
	return &responseRepository{db: db}
}

func (repo *responseRepository) CreateResponse(ctx context.Context, r survey.Response) (survey.Response, error) {
	query := `
INSERT INTO response (template_id, respondent_id, target_id, month, submitted_at, answers, weighted_score)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING *`

	var row responseRow
	err := repo.db.GetContext(ctx, &row, query,
		r.TemplateID, r.RespondentID, r.TargetID, r.Month, r.SubmittedAt.UTC(), r.Answers, r.WeightedScore,
	)
	if err != nil {
		if isUniqueViolation(err, responseCorrelationConstraint) {
			return survey.Response{}, survey.ErrResponseExists
		}
		return survey.Response{}, errors.Wrap(err, "creating response")
	}
	return row.toResponse(), nil
}

func (repo *responseRepository) QueryResponses(ctx context.Context, filter *survey.ResponseFilter, ordering ...core.DBOrdering) ([]survey.Response, error) {
	query := `SELECT * FROM response`
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
	query += orderBy("month DESC, submitted_at DESC", ordering)

	var rows []responseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	responses := make([]survey.Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.toResponse())
	}
	return responses, nil
}

func (repo *responseRepository) GetResponse(ctx context.Context, id string) (survey.Response, error) {
	var row responseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM response WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return survey.Response{}, survey.ErrResponseNotFound
		}
		return survey.Response{}, errors.Wrap(err, "getting response")
	}
	return row.toResponse(), nil
}

func (repo *responseRepository) DeleteResponse(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM response WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting response")
	}
	return nil
}
