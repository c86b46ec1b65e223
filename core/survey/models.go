package survey

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/user"
)

// Assignment statuses
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

var (
	// errors
	ErrTemplateNotFound   = errors.New("survey template not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrResponseNotFound   = errors.New("response not found")
	ErrAssignmentExists   = errors.New("an assignment already exists for this respondent, target and month")
	ErrResponseExists     = errors.New("a response already exists for this respondent, target and month")
)

type (
	// Question is a single weighted survey item. Weights are declarative
	// metadata for client-side scoring; the server never recomputes scores.
	Question struct {
		ID     string `json:"id"`
		Text   string `json:"text"`
		ArText string `json:"ar_text"`
		Weight int    `json:"weight"`
		Type   string `json:"type"` // e.g. RATING
	}

	Category struct {
		ID        string     `json:"id"`
		Name      string     `json:"name"`
		ArName    string     `json:"ar_name"`
		Weight    int        `json:"weight"`
		Questions []Question `json:"questions"`
	}

	// Categories is stored as a single JSONB document.
	Categories []Category

	// Template is a versionless named bundle of weighted categories; updates
	// overwrite the whole bundle.
	Template struct {
		ID            string     `json:"id"`
		Name          string     `json:"name"`
		ArName        string     `json:"ar_name"`
		Description   string     `json:"description"`
		ArDescription string     `json:"ar_description"`
		Categories    Categories `json:"categories"`
		CreatedAt     time.Time  `json:"created_at"` // UTC
		UpdatedAt     time.Time  `json:"updated_at"` // UTC
	}

	// Assignment asks a respondent to evaluate a target (possibly themselves)
	// for a given month. At most one may exist per correlation key.
	Assignment struct {
		ID           string    `json:"id"`
		TemplateID   string    `json:"template_id"`
		AssignerID   string    `json:"assigner_id"`
		RespondentID string    `json:"respondent_id"`
		TargetID     string    `json:"target_id"`
		Month        string    `json:"month"` // YYYY-MM
		Status       string    `json:"status"`
		CreatedAt    time.Time `json:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at"` // UTC
	}

	// Answers maps question ids to their submitted rating.
	Answers map[string]int

	// Response is a submitted evaluation. Its link to an Assignment is never
	// stored; it is recomputed from the correlation key on every operation.
	Response struct {
		ID            string    `json:"id"`
		TemplateID    string    `json:"template_id"`
		RespondentID  string    `json:"respondent_id"`
		TargetID      string    `json:"target_id"`
		Month         string    `json:"month"` // YYYY-MM
		SubmittedAt   time.Time `json:"submitted_at"` // UTC
		Answers       Answers   `json:"answers"`
		WeightedScore float64   `json:"weighted_score"` // client-computed, trusted
	}

	// CorrelationKey is the implicit join key between an Assignment and the
	// Response that completes it.
	CorrelationKey struct {
		TemplateID   string
		RespondentID string
		TargetID     string
		Month        string
	}
)

func (a Assignment) Key() CorrelationKey {
	return CorrelationKey{a.TemplateID, a.RespondentID, a.TargetID, a.Month}
}

func (r Response) Key() CorrelationKey {
	return CorrelationKey{r.TemplateID, r.RespondentID, r.TargetID, r.Month}
}

// driver.Valuer / sql.Scanner (JSONB columns)

func (c Categories) Value() (driver.Value, error) { return json.Marshal(c) }

func (c *Categories) Scan(src interface{}) error {
	data, ok := src.([]byte)
	if !ok {
		return errors.New("survey: cannot scan Categories")
	}
	return json.Unmarshal(data, c)
}

func (a Answers) Value() (driver.Value, error) { return json.Marshal(a) }

func (a *Answers) Scan(src interface{}) error {
	data, ok := src.([]byte)
	if !ok {
		return errors.New("survey: cannot scan Answers")
	}
	return json.Unmarshal(data, a)
}

type (
	AssignmentFilter struct {
		TemplateID string
		Month      string
		Key        *CorrelationKey
		// visibility predicates (see user.PartyFilter)
		RespondentIn  []string
		EitherPartyIn []string
	}

	ResponseFilter struct {
		TemplateID string
		Month      string
		Key        *CorrelationKey
		// visibility predicates (see user.PartyFilter)
		RespondentIn  []string
		EitherPartyIn []string
	}

	TemplateRepository interface {
		CreateTemplate(ctx context.Context, tmpl Template) (Template, error)
		QueryTemplates(ctx context.Context, ordering ...core.DBOrdering) ([]Template, error)
		GetTemplate(ctx context.Context, id string) (Template, error)
		UpdateTemplate(ctx context.Context, tmpl Template) (Template, error)
		DeleteTemplate(ctx context.Context, id string) error
	}

	AssignmentRepository interface {
		// CreateAssignment returns ErrAssignmentExists when the correlation
		// key is already taken (storage-level uniqueness guard).
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		QueryAssignments(ctx context.Context, filter *AssignmentFilter, ordering ...core.DBOrdering) ([]Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
	}

	ResponseRepository interface {
		// CreateResponse returns ErrResponseExists when the correlation key is
		// already taken.
		CreateResponse(ctx context.Context, r Response) (Response, error)
		QueryResponses(ctx context.Context, filter *ResponseFilter, ordering ...core.DBOrdering) ([]Response, error)
		GetResponse(ctx context.Context, id string) (Response, error)
		DeleteResponse(ctx context.Context, id string) error
	}
)

// NewTemplate contains information needed to create a new Template.
type NewTemplate struct {
	Name          string     `json:"name" validate:"required"`
	ArName        string     `json:"ar_name"`
	Description   string     `json:"description"`
	ArDescription string     `json:"ar_description"`
	Categories    Categories `json:"categories" validate:"required,min=1"`
}

func (nt *NewTemplate) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

// UpdateTemplate overwrites the whole bundle; there is no versioning.
type UpdateTemplate struct {
	Name          string     `json:"name" validate:"required"`
	ArName        string     `json:"ar_name"`
	Description   string     `json:"description"`
	ArDescription string     `json:"ar_description"`
	Categories    Categories `json:"categories" validate:"required,min=1"`
}

func (ut *UpdateTemplate) Validate(validate *validator.Validate) error {
	ut.Name = core.CleanString(ut.Name)
	return validate.Struct(ut)
}

// NewAssignments is a bulk assignment request: either an explicit
// respondent/target id list or one of the named bulk patterns.
type NewAssignments struct {
	TemplateID    string      `json:"template_id" validate:"required"`
	Month         string      `json:"month" validate:"required,month"`
	RespondentIDs []string    `json:"respondent_ids"`
	TargetIDs     []string    `json:"target_ids"`
	Pattern       BulkPattern `json:"pattern"`
}

func (na *NewAssignments) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// SubmitResponse contains a respondent's scored submission.
type SubmitResponse struct {
	TemplateID    string  `json:"template_id" validate:"required"`
	TargetID      string  `json:"target_id" validate:"required"`
	Month         string  `json:"month" validate:"required,month"`
	Answers       Answers `json:"answers" validate:"required,min=1"`
	WeightedScore float64 `json:"weighted_score" validate:"gte=0"`
}

func (sr *SubmitResponse) Validate(validate *validator.Validate) error {
	return validate.Struct(sr)
}

// PartyFilters translates an actor's visibility scope into store predicates.

func assignmentFilterFor(pf user.PartyFilter) *AssignmentFilter {
	if pf.All {
		return nil
	}
	return &AssignmentFilter{RespondentIn: pf.RespondentIn, EitherPartyIn: pf.EitherPartyIn}
}

func responseFilterFor(pf user.PartyFilter) *ResponseFilter {
	if pf.All {
		return nil
	}
	return &ResponseFilter{RespondentIn: pf.RespondentIn, EitherPartyIn: pf.EitherPartyIn}
}
