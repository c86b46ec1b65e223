package user

import (
	"context"

	"github.com/pkg/errors"
)

// PartyFilter restricts which evaluations (assignments/responses) an actor may
// see. It is expressed as store-friendly predicates: exactly one of All,
// RespondentIn or EitherPartyIn is set.
type PartyFilter struct {
	// All grants unrestricted access.
	All bool
	// RespondentIn matches evaluations whose respondent is in the set.
	RespondentIn []string
	// EitherPartyIn matches evaluations whose respondent OR target is in the set.
	EitherPartyIn []string
}

// Scope is an actor's resolved view over the directory graph. It is a
// per-role variant resolved once per request; all graph traversals happen at
// resolution time so the predicate methods are pure set lookups.
//
// Visibility is deliberately NOT a transitive closure over the graph: each
// role gets a fixed set of one-hop traversals, otherwise a shared trainer
// would leak sibling players' data.
type Scope interface {
	// VisibleUsers returns the directory subset the actor may see.
	VisibleUsers(ctx context.Context) ([]User, error)
	// EvaluationFilter returns the store predicate for assignments/responses.
	EvaluationFilter() PartyFilter
	// SeesParties reports whether an evaluation between the given respondent
	// and target is visible to the actor.
	SeesParties(respondentID, targetID string) bool
}

// ResolveScope derives the actor's Scope from the directory. Dangling edges
// (e.g. a trainer_id pointing at a deleted user) contribute nothing to the
// visible set; they never raise.
func ResolveScope(ctx context.Context, actor User, dir Directory) (Scope, error) {
	switch actor.Role {
	case RoleAdmin:
		return adminScope{dir: dir}, nil
	case RoleTrainer:
		return resolveTrainerScope(ctx, actor, dir)
	case RolePlayer:
		return resolvePlayerScope(ctx, actor, dir)
	case RoleGuardian:
		return resolveGuardianScope(ctx, actor, dir)
	}
	// unknown role: the actor only ever sees themselves
	return playerScope{self: actor}, nil
}

// lookupEdge follows a user edge, swallowing dangling references.
func lookupEdge(ctx context.Context, dir Directory, id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	usr, err := dir.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "following user edge")
	}
	return &usr, nil
}

// adminScope sees everything, unconditionally.
type adminScope struct {
	dir Directory
}

func (s adminScope) VisibleUsers(ctx context.Context) ([]User, error) {
	return s.dir.QueryUsers(ctx, nil)
}

func (s adminScope) EvaluationFilter() PartyFilter { return PartyFilter{All: true} }

func (s adminScope) SeesParties(respondentID, targetID string) bool { return true }

// trainerScope sees self and roster; plus evaluations it responds to and
// guardian evaluations about its own roster. The latter rule cannot be
// expressed as a single predicate over the evaluation row alone: it joins the
// respondent back through the directory, hence the precomputed guardian set.
type trainerScope struct {
	self             User
	roster           []User
	rosterGuardianID map[string]struct{}
}

func resolveTrainerScope(ctx context.Context, actor User, dir Directory) (Scope, error) {
	roster, err := dir.QueryUsers(ctx, &QueryFilter{TrainerID: actor.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying trainer roster")
	}

	scope := trainerScope{
		self:             actor,
		roster:           roster,
		rosterGuardianID: make(map[string]struct{}),
	}

	if len(roster) > 0 {
		rosterIDs := make([]string, 0, len(roster))
		for _, p := range roster {
			rosterIDs = append(rosterIDs, p.ID)
		}
		guardians, err := dir.QueryUsers(ctx, &QueryFilter{Role: RoleGuardian, PlayerIDIn: rosterIDs})
		if err != nil {
			return nil, errors.Wrap(err, "querying roster guardians")
		}
		for _, g := range guardians {
			scope.rosterGuardianID[g.ID] = struct{}{}
		}
	}
	return scope, nil
}

func (s trainerScope) VisibleUsers(ctx context.Context) ([]User, error) {
	return append([]User{s.self}, s.roster...), nil
}

func (s trainerScope) EvaluationFilter() PartyFilter {
	ids := make([]string, 0, len(s.rosterGuardianID)+1)
	ids = append(ids, s.self.ID)
	for id := range s.rosterGuardianID {
		ids = append(ids, id)
	}
	return PartyFilter{RespondentIn: ids}
}

func (s trainerScope) SeesParties(respondentID, targetID string) bool {
	if respondentID == s.self.ID {
		return true
	}
	_, ok := s.rosterGuardianID[respondentID]
	return ok
}

// playerScope sees self, own trainer and own guardians; plus evaluations it is
// a party to.
type playerScope struct {
	self      User
	trainer   *User
	guardians []User
}

func resolvePlayerScope(ctx context.Context, actor User, dir Directory) (Scope, error) {
	trainer, err := lookupEdge(ctx, dir, actor.TrainerID.String)
	if err != nil {
		return nil, err
	}
	guardians, err := dir.QueryUsers(ctx, &QueryFilter{Role: RoleGuardian, PlayerID: actor.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying player guardians")
	}
	return playerScope{self: actor, trainer: trainer, guardians: guardians}, nil
}

func (s playerScope) VisibleUsers(ctx context.Context) ([]User, error) {
	users := []User{s.self}
	if s.trainer != nil {
		users = append(users, *s.trainer)
	}
	return append(users, s.guardians...), nil
}

func (s playerScope) EvaluationFilter() PartyFilter {
	return PartyFilter{EitherPartyIn: []string{s.self.ID}}
}

func (s playerScope) SeesParties(respondentID, targetID string) bool {
	return respondentID == s.self.ID || targetID == s.self.ID
}

// guardianScope sees self, own ward and the ward's trainer; plus evaluations
// that self or the ward is a party to.
type guardianScope struct {
	self        User
	ward        *User
	wardTrainer *User
}

func resolveGuardianScope(ctx context.Context, actor User, dir Directory) (Scope, error) {
	ward, err := lookupEdge(ctx, dir, actor.PlayerID.String)
	if err != nil {
		return nil, err
	}
	scope := guardianScope{self: actor, ward: ward}
	if ward != nil {
		if scope.wardTrainer, err = lookupEdge(ctx, dir, ward.TrainerID.String); err != nil {
			return nil, err
		}
	}
	return scope, nil
}

func (s guardianScope) VisibleUsers(ctx context.Context) ([]User, error) {
	users := []User{s.self}
	if s.ward != nil {
		users = append(users, *s.ward)
	}
	if s.wardTrainer != nil {
		users = append(users, *s.wardTrainer)
	}
	return users, nil
}

func (s guardianScope) EvaluationFilter() PartyFilter {
	ids := []string{s.self.ID}
	if s.ward != nil {
		ids = append(ids, s.ward.ID)
	}
	return PartyFilter{EitherPartyIn: ids}
}

func (s guardianScope) SeesParties(respondentID, targetID string) bool {
	ids := map[string]struct{}{s.self.ID: {}}
	if s.ward != nil {
		ids[s.ward.ID] = struct{}{}
	}
	if _, ok := ids[respondentID]; ok {
		return true
	}
	_, ok := ids[targetID]
	return ok
}
