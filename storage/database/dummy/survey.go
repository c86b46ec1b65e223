package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/survey"
)

// Template

type templateRepository struct {
	db *templateTable
}

var _ survey.TemplateRepository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *DB) survey.TemplateRepository {
	return &templateRepository{db: db.template}
}

func (repo *templateRepository) CreateTemplate(ctx context.Context, tmpl survey.Template) (survey.Template, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tmpl.ID = uuid.New().String()
	repo.db.table[tmpl.ID] = &tmpl
	return tmpl, nil
}

func (repo *templateRepository) QueryTemplates(ctx context.Context, ordering ...core.DBOrdering) ([]survey.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	templates := make([]survey.Template, 0, len(repo.db.table))
	for _, tmpl := range repo.db.table {
		templates = append(templates, *tmpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].CreatedAt.After(templates[j].CreatedAt) })
	return templates, nil
}

func (repo *templateRepository) GetTemplate(ctx context.Context, id string) (survey.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tmpl, ok := repo.db.table[id]; ok {
		return *tmpl, nil
	}
	return survey.Template{}, survey.ErrTemplateNotFound
}

func (repo *templateRepository) UpdateTemplate(ctx context.Context, tmpl survey.Template) (survey.Template, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[tmpl.ID]; !ok {
		return survey.Template{}, survey.ErrTemplateNotFound
	}
	repo.db.table[tmpl.ID] = &tmpl
	return tmpl, nil
}

func (repo *templateRepository) DeleteTemplate(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

// Assignment

type assignmentRepository struct {
	db *assignmentTable
}

var _ survey.AssignmentRepository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) survey.AssignmentRepository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a survey.Assignment) (survey.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := a.Key()
	for _, existing := range repo.db.table {
		if existing.Key() == key {
			return survey.Assignment{}, survey.ErrAssignmentExists
		}
	}

	a.ID = uuid.New().String()
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *survey.AssignmentFilter, ordering ...core.DBOrdering) ([]survey.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]survey.Assignment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if filter != nil && !matchAssignment(*a, filter) {
			continue
		}
		assignments = append(assignments, *a)
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Month != assignments[j].Month {
			return assignments[i].Month > assignments[j].Month
		}
		return assignments[i].CreatedAt.After(assignments[j].CreatedAt)
	})
	return assignments, nil
}

func matchAssignment(a survey.Assignment, filter *survey.AssignmentFilter) bool {
	if filter.TemplateID != "" && a.TemplateID != filter.TemplateID {
		return false
	}
	if filter.Month != "" && a.Month != filter.Month {
		return false
	}
	if filter.Key != nil && a.Key() != *filter.Key {
		return false
	}
	if len(filter.RespondentIn) > 0 {
		if _, ok := idSet(filter.RespondentIn)[a.RespondentID]; !ok {
			return false
		}
	}
	if len(filter.EitherPartyIn) > 0 {
		in := idSet(filter.EitherPartyIn)
		_, asRespondent := in[a.RespondentID]
		_, asTarget := in[a.TargetID]
		if !asRespondent && !asTarget {
			return false
		}
	}
	return true
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (survey.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return survey.Assignment{}, survey.ErrAssignmentNotFound
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a survey.Assignment) (survey.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[a.ID]
	if !ok {
		return survey.Assignment{}, survey.ErrAssignmentNotFound
	}
	orig.Status = a.Status
	orig.UpdatedAt = a.UpdatedAt
	return *orig, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

// Response

type responseRepository struct {
	db *responseTable
}

var _ survey.ResponseRepository = (*responseRepository)(nil) // interface compliance check

func NewResponseRepository(db *DB) survey.ResponseRepository {
	return &responseRepository{db: db.response}
}

func (repo *responseRepository) CreateResponse(ctx context.Context, r survey.Response) (survey.Response, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := r.Key()
	for _, existing := range repo.db.table {
		if existing.Key() == key {
			return survey.Response{}, survey.ErrResponseExists
		}
	}

	r.ID = uuid.New().String()
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *responseRepository) QueryResponses(ctx context.Context, filter *survey.ResponseFilter, ordering ...core.DBOrdering) ([]survey.Response, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	responses := make([]survey.Response, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		if filter != nil && !matchResponse(*r, filter) {
			continue
		}
		responses = append(responses, *r)
	}
	sort.Slice(responses, func(i, j int) bool {
		if responses[i].Month != responses[j].Month {
			return responses[i].Month > responses[j].Month
		}
		return responses[i].SubmittedAt.After(responses[j].SubmittedAt)
	})
	return responses, nil
}

func matchResponse(r survey.Response, filter *survey.ResponseFilter) bool {
	if filter.TemplateID != "" && r.TemplateID != filter.TemplateID {
		return false
	}
	if filter.Month != "" && r.Month != filter.Month {
		return false
	}
	if filter.Key != nil && r.Key() != *filter.Key {
		return false
	}
	if len(filter.RespondentIn) > 0 {
		if _, ok := idSet(filter.RespondentIn)[r.RespondentID]; !ok {
			return false
		}
	}
	if len(filter.EitherPartyIn) > 0 {
		in := idSet(filter.EitherPartyIn)
		_, asRespondent := in[r.RespondentID]
		_, asTarget := in[r.TargetID]
		if !asRespondent && !asTarget {
			return false
		}
	}
	return true
}

func (repo *responseRepository) GetResponse(ctx context.Context, id string) (survey.Response, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return survey.Response{}, survey.ErrResponseNotFound
}

func (repo *responseRepository) DeleteResponse(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}
