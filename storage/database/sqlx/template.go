package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/survey"
)

type templateRow struct {
	ID            string            `db:"id"`
	Name          string            `db:"name"`
	ArName        string            `db:"ar_name"`
	Description   string            `db:"description"`
	ArDescription string            `db:"ar_description"`
	Categories    survey.Categories `db:"categories"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

func (row templateRow) toTemplate() survey.Template {
	return survey.Template{
		ID:            row.ID,
		Name:          row.Name,
		ArName:        row.ArName,
		Description:   row.Description,
		ArDescription: row.ArDescription,
		Categories:    row.Categories,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

type templateRepository struct {
	db *sqlx.DB
}

var _ survey.TemplateRepository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *sqlx.DB) survey.TemplateRepository {
	return &templateRepository{db: db}
}

func (repo *templateRepository) CreateTemplate(ctx context.Context, tmpl survey.Template) (survey.Template, error) {
	query := `
INSERT INTO survey_template (name, ar_name, description, ar_description, categories)
VALUES ($1, $2, $3, $4, $5)
RETURNING *`

	var row templateRow
	err := repo.db.GetContext(ctx, &row, query,
		tmpl.Name, tmpl.ArName, tmpl.Description, tmpl.ArDescription, tmpl.Categories,
	)
	if err != nil {
		return survey.Template{}, errors.Wrap(err, "creating template")
	}
	return row.toTemplate(), nil
}

func (repo *templateRepository) QueryTemplates(ctx context.Context, ordering ...core.DBOrdering) ([]survey.Template, error) {
	query := `SELECT * FROM survey_template` + orderBy("created_at DESC", ordering)

	var rows []templateRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying templates")
	}
	templates := make([]survey.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, row.toTemplate())
	}
	return templates, nil
}

func (repo *templateRepository) GetTemplate(ctx context.Context, id string) (survey.Template, error) {
	var row templateRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM survey_template WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return survey.Template{}, survey.ErrTemplateNotFound
		}
		return survey.Template{}, errors.Wrap(err, "getting template")
	}
	return row.toTemplate(), nil
}

func (repo *templateRepository) UpdateTemplate(ctx context.Context, tmpl survey.Template) (survey.Template, error) {
	query := `
UPDATE survey_template
SET name = $2, ar_name = $3, description = $4, ar_description = $5, categories = $6, updated_at = now()
WHERE id = $1
RETURNING *`

	var row templateRow
	err := repo.db.GetContext(ctx, &row, query,
		tmpl.ID, tmpl.Name, tmpl.ArName, tmpl.Description, tmpl.ArDescription, tmpl.Categories,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return survey.Template{}, survey.ErrTemplateNotFound
		}
		return survey.Template{}, errors.Wrap(err, "updating template")
	}
	return row.toTemplate(), nil
}

func (repo *templateRepository) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM survey_template WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting template")
	}
	return nil
}
