package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core"
)

// fakeDirectory is an in-memory Directory over a fixed user slice.
type fakeDirectory struct {
	users []User
}

var _ Directory = (*fakeDirectory)(nil)

func (d *fakeDirectory) QueryUsers(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	if filter == nil {
		return d.users, nil
	}
	inPlayerIDs := make(map[string]struct{}, len(filter.PlayerIDIn))
	for _, id := range filter.PlayerIDIn {
		inPlayerIDs[id] = struct{}{}
	}

	var users []User
	for _, u := range d.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.TrainerID != "" && u.TrainerID.String != filter.TrainerID {
			continue
		}
		if filter.PlayerID != "" && u.PlayerID.String != filter.PlayerID {
			continue
		}
		if filter.PlayerIDIn != nil {
			if _, ok := inPlayerIDs[u.PlayerID.String]; !ok {
				continue
			}
		}
		users = append(users, u)
	}
	return users, nil
}

func (d *fakeDirectory) GetUser(ctx context.Context, filter GetFilter) (User, error) {
	for _, u := range d.users {
		if filter.ID != "" && u.ID == filter.ID {
			return u, nil
		}
		if filter.Email != "" && u.Email == filter.Email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func academyDirectory() *fakeDirectory {
	return &fakeDirectory{users: []User{
		{ID: "admin", Role: RoleAdmin},
		{ID: "coach1", Role: RoleTrainer},
		{ID: "coach2", Role: RoleTrainer},
		{ID: "player1", Role: RolePlayer, TrainerID: null.StringFrom("coach1")},
		{ID: "player2", Role: RolePlayer, TrainerID: null.StringFrom("coach1")},
		{ID: "player3", Role: RolePlayer, TrainerID: null.StringFrom("coach2")},
		{ID: "guardian1", Role: RoleGuardian, PlayerID: null.StringFrom("player1")},
		{ID: "guardian2", Role: RoleGuardian, PlayerID: null.StringFrom("player3")},
	}}
}

func visibleIDs(t *testing.T, scope Scope) []string {
	t.Helper()
	users, err := scope.VisibleUsers(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func findUser(t *testing.T, dir *fakeDirectory, id string) User {
	t.Helper()
	usr, err := dir.GetUser(context.Background(), GetFilter{ID: id})
	require.NoError(t, err)
	return usr
}

func TestResolveScope_admin(t *testing.T) {
	ctx := context.Background()
	dir := academyDirectory()

	scope, err := ResolveScope(ctx, findUser(t, dir, "admin"), dir)
	require.NoError(t, err)

	assert.Len(t, visibleIDs(t, scope), len(dir.users))
	assert.True(t, scope.EvaluationFilter().All)
	assert.True(t, scope.SeesParties("whoever", "whomever"))
}

func TestResolveScope_trainer(t *testing.T) {
	ctx := context.Background()
	dir := academyDirectory()

	scope, err := ResolveScope(ctx, findUser(t, dir, "coach1"), dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"coach1", "player1", "player2"}, visibleIDs(t, scope))

	// evaluations they respond to, plus their roster's guardians' evaluations
	filter := scope.EvaluationFilter()
	assert.False(t, filter.All)
	assert.ElementsMatch(t, []string{"coach1", "guardian1"}, filter.RespondentIn)

	assert.True(t, scope.SeesParties("coach1", "player1"))
	assert.True(t, scope.SeesParties("guardian1", "player1"))
	assert.False(t, scope.SeesParties("guardian2", "player3"))
	assert.False(t, scope.SeesParties("coach2", "player3"))
	// being a target is not enough for a trainer
	assert.False(t, scope.SeesParties("player1", "coach1"))
}

func TestResolveScope_player(t *testing.T) {
	ctx := context.Background()
	dir := academyDirectory()

	scope, err := ResolveScope(ctx, findUser(t, dir, "player1"), dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"player1", "coach1", "guardian1"}, visibleIDs(t, scope))
	assert.ElementsMatch(t, []string{"player1"}, scope.EvaluationFilter().EitherPartyIn)

	assert.True(t, scope.SeesParties("player1", "coach1"))
	assert.True(t, scope.SeesParties("coach1", "player1"))
	assert.False(t, scope.SeesParties("coach1", "player2"))
}

func TestResolveScope_guardian(t *testing.T) {
	ctx := context.Background()
	dir := academyDirectory()

	scope, err := ResolveScope(ctx, findUser(t, dir, "guardian1"), dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"guardian1", "player1", "coach1"}, visibleIDs(t, scope))
	assert.ElementsMatch(t, []string{"guardian1", "player1"}, scope.EvaluationFilter().EitherPartyIn)

	assert.True(t, scope.SeesParties("guardian1", "player1"))
	assert.True(t, scope.SeesParties("coach1", "player1"))
	assert.False(t, scope.SeesParties("coach1", "player2"))
}

func TestResolveScope_danglingEdges(t *testing.T) {
	ctx := context.Background()
	dir := &fakeDirectory{users: []User{
		{ID: "player1", Role: RolePlayer, TrainerID: null.StringFrom("ghost-coach")},
		{ID: "guardian1", Role: RoleGuardian, PlayerID: null.StringFrom("ghost-player")},
	}}

	scope, err := ResolveScope(ctx, findUser(t, dir, "player1"), dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"player1"}, visibleIDs(t, scope))

	scope, err = ResolveScope(ctx, findUser(t, dir, "guardian1"), dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"guardian1"}, visibleIDs(t, scope))
	assert.ElementsMatch(t, []string{"guardian1"}, scope.EvaluationFilter().EitherPartyIn)
	assert.False(t, scope.SeesParties("ghost-player", "anyone"))
}

func TestResolveScope_unknownRole(t *testing.T) {
	ctx := context.Background()
	dir := academyDirectory()

	scope, err := ResolveScope(ctx, User{ID: "stranger", Role: "INTERN"}, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stranger"}, visibleIDs(t, scope))
	assert.ElementsMatch(t, []string{"stranger"}, scope.EvaluationFilter().EitherPartyIn)
}
