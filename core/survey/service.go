package survey

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/user"
)

// NowFunc returns the current time; mockable for the temporal guard tests.
var NowFunc = time.Now

type (
	Service interface {
		// templates
		CreateTemplate(ctx context.Context, nt NewTemplate) (Template, error)
		QueryTemplates(ctx context.Context, ordering ...core.DBOrdering) ([]Template, error)
		GetTemplate(ctx context.Context, id string) (Template, error)
		UpdateTemplate(ctx context.Context, id string, ut UpdateTemplate) (Template, error)
		DeleteTemplate(ctx context.Context, id string) error

		// assignments
		CreateAssignments(ctx context.Context, actor user.User, data NewAssignments) (int, error)
		PreviewAssignments(ctx context.Context, actor user.User, data NewAssignments) ([]PreviewPair, error)
		QueryAssignments(ctx context.Context, actor user.User, ordering ...core.DBOrdering) ([]Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error

		// responses
		SubmitResponse(ctx context.Context, actor user.User, data SubmitResponse) (Response, error)
		QueryResponses(ctx context.Context, actor user.User, ordering ...core.DBOrdering) ([]Response, error)
		GetResponse(ctx context.Context, id string) (Response, error)
		DeleteResponse(ctx context.Context, id string) error
	}

	service struct {
		dir      user.Directory
		tmplRepo TemplateRepository
		asgRepo  AssignmentRepository
		respRepo ResponseRepository
	}
)

var _ Service = (*service)(nil)

func NewService(
	dir user.Directory,
	tmplRepo TemplateRepository,
	asgRepo AssignmentRepository,
	respRepo ResponseRepository,
) Service {
	return &service{
		dir:      dir,
		tmplRepo: tmplRepo,
		asgRepo:  asgRepo,
		respRepo: respRepo,
	}
}

// Templates

func (svc *service) CreateTemplate(ctx context.Context, nt NewTemplate) (Template, error) {
	now := time.Now().UTC()
	tmpl := Template{
		Name:          nt.Name,
		ArName:        nt.ArName,
		Description:   nt.Description,
		ArDescription: nt.ArDescription,
		Categories:    nt.Categories,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.tmplRepo.CreateTemplate(ctx, tmpl)
}

func (svc *service) QueryTemplates(ctx context.Context, ordering ...core.DBOrdering) ([]Template, error) {
	return svc.tmplRepo.QueryTemplates(ctx, ordering...)
}

func (svc *service) GetTemplate(ctx context.Context, id string) (Template, error) {
	return svc.tmplRepo.GetTemplate(ctx, id)
}

func (svc *service) UpdateTemplate(ctx context.Context, id string, ut UpdateTemplate) (Template, error) {
	tmpl, err := svc.tmplRepo.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}

	// whole-bundle overwrite; templates are versionless
	tmpl.Name = ut.Name
	tmpl.ArName = ut.ArName
	tmpl.Description = ut.Description
	tmpl.ArDescription = ut.ArDescription
	tmpl.Categories = ut.Categories
	tmpl.UpdatedAt = time.Now().UTC()
	return svc.tmplRepo.UpdateTemplate(ctx, tmpl)
}

func (svc *service) DeleteTemplate(ctx context.Context, id string) error {
	return svc.tmplRepo.DeleteTemplate(ctx, id)
}

// Assignments

// expand computes the candidate pairs for a request along with the set of
// pairs already taken for the same (template, month).
func (svc *service) expand(ctx context.Context, data NewAssignments) ([]Pair, map[Pair]struct{}, error) {
	if _, err := svc.tmplRepo.GetTemplate(ctx, data.TemplateID); err != nil {
		return nil, nil, err
	}

	// Pattern mode walks the whole active directory. Explicit mode resolves the
	// named respondents regardless of active status: a deactivated guardian must
	// still hit the narrowing rule, not slip past it as an unknown id.
	filter := &user.QueryFilter{IDIn: data.RespondentIDs}
	if data.Pattern != "" {
		active := true
		filter = &user.QueryFilter{IsActive: &active}
	}
	users, err := svc.dir.QueryUsers(ctx, filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying users")
	}
	pairs := Expand(data, users)

	existing, err := svc.asgRepo.QueryAssignments(ctx, &AssignmentFilter{TemplateID: data.TemplateID, Month: data.Month})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying existing assignments")
	}
	taken := make(map[Pair]struct{}, len(existing))
	for _, a := range existing {
		taken[Pair{RespondentID: a.RespondentID, TargetID: a.TargetID}] = struct{}{}
	}
	return pairs, taken, nil
}

// CreateAssignments expands the request and creates a PENDING assignment for
// every candidate pair not already taken, returning the created count. It is
// idempotent under repeated identical invocation; concurrent races on the same
// pair are resolved by the storage uniqueness guard and counted as skips.
func (svc *service) CreateAssignments(ctx context.Context, actor user.User, data NewAssignments) (int, error) {
	pairs, taken, err := svc.expand(ctx, data)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var count int
	for _, p := range pairs {
		if _, ok := taken[p]; ok {
			continue
		}
		a := Assignment{
			TemplateID:   data.TemplateID,
			AssignerID:   actor.ID,
			RespondentID: p.RespondentID,
			TargetID:     p.TargetID,
			Month:        data.Month,
			Status:       StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := svc.asgRepo.CreateAssignment(ctx, a); err != nil {
			if errors.Cause(err) == ErrAssignmentExists {
				continue // lost a concurrent race; same outcome as taken
			}
			return count, errors.Wrap(err, "creating assignment")
		}
		count++
	}
	return count, nil
}

// PreviewAssignments returns the candidate pairs annotated with whether each
// one already exists, without touching storage.
func (svc *service) PreviewAssignments(ctx context.Context, actor user.User, data NewAssignments) ([]PreviewPair, error) {
	pairs, taken, err := svc.expand(ctx, data)
	if err != nil {
		return nil, err
	}

	preview := make([]PreviewPair, 0, len(pairs))
	for _, p := range pairs {
		_, exists := taken[p]
		preview = append(preview, PreviewPair{RespondentID: p.RespondentID, TargetID: p.TargetID, AlreadyExists: exists})
	}
	return preview, nil
}

func (svc *service) QueryAssignments(ctx context.Context, actor user.User, ordering ...core.DBOrdering) ([]Assignment, error) {
	scope, err := user.ResolveScope(ctx, actor, svc.dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving scope")
	}
	return svc.asgRepo.QueryAssignments(ctx, assignmentFilterFor(scope.EvaluationFilter()), ordering...)
}

func (svc *service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.asgRepo.GetAssignment(ctx, id)
}

// DeleteAssignment removes an assignment; a COMPLETED assignment's correlated
// response is located by its correlation key and deleted first.
func (svc *service) DeleteAssignment(ctx context.Context, id string) error {
	a, err := svc.asgRepo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}

	if a.Status == StatusCompleted {
		key := a.Key()
		resps, err := svc.respRepo.QueryResponses(ctx, &ResponseFilter{Key: &key})
		if err != nil {
			return errors.Wrap(err, "querying correlated response")
		}
		if len(resps) > 0 {
			if err := svc.respRepo.DeleteResponse(ctx, resps[0].ID); err != nil {
				return errors.Wrap(err, "deleting correlated response")
			}
		}
	}
	return svc.asgRepo.DeleteAssignment(ctx, id)
}

// Responses

// currentMonth returns the current UTC month key. Lexicographic comparison on
// YYYY-MM keys is correct because both sides are zero-padded and fixed-width.
func currentMonth() string {
	return NowFunc().UTC().Format("2006-01")
}

// SubmitResponse stores a submission and flips the correlated assignment to
// COMPLETED when one exists. Ad hoc submissions with no matching assignment
// are allowed; no transition occurs. Non-ADMIN actors may not submit for a
// future month (backfilling past months is fine).
func (svc *service) SubmitResponse(ctx context.Context, actor user.User, data SubmitResponse) (Response, error) {
	if !actor.IsAdmin() && data.Month > currentMonth() {
		return Response{}, core.NewValidationError(nil, core.FieldError{Field: "month", Error: "cannot submit a response for a future month"})
	}

	resp := Response{
		TemplateID:    data.TemplateID,
		RespondentID:  actor.ID,
		TargetID:      data.TargetID,
		Month:         data.Month,
		SubmittedAt:   time.Now().UTC(),
		Answers:       data.Answers,
		WeightedScore: data.WeightedScore,
	}
	resp, err := svc.respRepo.CreateResponse(ctx, resp)
	if err != nil {
		return Response{}, err
	}

	if err := svc.transitionAssignment(ctx, resp.Key(), StatusCompleted); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (svc *service) QueryResponses(ctx context.Context, actor user.User, ordering ...core.DBOrdering) ([]Response, error) {
	scope, err := user.ResolveScope(ctx, actor, svc.dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving scope")
	}
	return svc.respRepo.QueryResponses(ctx, responseFilterFor(scope.EvaluationFilter()), ordering...)
}

func (svc *service) GetResponse(ctx context.Context, id string) (Response, error) {
	return svc.respRepo.GetResponse(ctx, id)
}

// DeleteResponse removes a submission and re-opens the correlated assignment
// (COMPLETED -> PENDING) when one exists.
func (svc *service) DeleteResponse(ctx context.Context, id string) error {
	resp, err := svc.respRepo.GetResponse(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.respRepo.DeleteResponse(ctx, id); err != nil {
		return err
	}
	return svc.transitionAssignment(ctx, resp.Key(), StatusPending)
}

// transitionAssignment recomputes the correlation for a key and sets the
// matching assignment's status, if any. The lookup picks the first match;
// storage enforces at most one assignment per key.
func (svc *service) transitionAssignment(ctx context.Context, key CorrelationKey, status string) error {
	asgs, err := svc.asgRepo.QueryAssignments(ctx, &AssignmentFilter{Key: &key})
	if err != nil {
		return errors.Wrap(err, "querying correlated assignment")
	}
	if len(asgs) == 0 {
		return nil // ad hoc response; nothing to transition
	}

	a := asgs[0]
	if a.Status == status {
		return nil
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	if _, err := svc.asgRepo.UpdateAssignment(ctx, a); err != nil {
		return errors.Wrap(err, "updating assignment status")
	}
	return nil
}
