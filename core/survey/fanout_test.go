package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core/user"
)

func fanoutDirectory() []user.User {
	return []user.User{
		{ID: "admin", Role: user.RoleAdmin},
		{ID: "coach1", Role: user.RoleTrainer},
		{ID: "coach2", Role: user.RoleTrainer},
		{ID: "player1", Role: user.RolePlayer, TrainerID: null.StringFrom("coach1")},
		{ID: "player2", Role: user.RolePlayer, TrainerID: null.StringFrom("coach1")},
		{ID: "player3", Role: user.RolePlayer, TrainerID: null.StringFrom("coach2")},
		{ID: "player4", Role: user.RolePlayer}, // no trainer
		{ID: "guardian1", Role: user.RoleGuardian, PlayerID: null.StringFrom("player1")},
		{ID: "guardian2", Role: user.RoleGuardian, PlayerID: null.StringFrom("player3")},
		{ID: "guardian3", Role: user.RoleGuardian}, // no ward
	}
}

func TestExpand_explicit(t *testing.T) {
	users := fanoutDirectory()

	tests := []struct {
		name string
		req  NewAssignments
		want []Pair
	}{
		{
			name: "cartesian product",
			req: NewAssignments{
				RespondentIDs: []string{"coach1", "coach2"},
				TargetIDs:     []string{"player1", "player2"},
			},
			want: []Pair{
				{"coach1", "player1"}, {"coach1", "player2"},
				{"coach2", "player1"}, {"coach2", "player2"},
			},
		},
		{
			name: "no targets defaults to self",
			req:  NewAssignments{RespondentIDs: []string{"player1", "player2"}},
			want: []Pair{{"player1", "player1"}, {"player2", "player2"}},
		},
		{
			name: "duplicate respondents deduped",
			req: NewAssignments{
				RespondentIDs: []string{"coach1", "coach1"},
				TargetIDs:     []string{"player1", "player1"},
			},
			want: []Pair{{"coach1", "player1"}},
		},
		{
			name: "guardian narrowed to own ward",
			req: NewAssignments{
				RespondentIDs: []string{"guardian1"},
				TargetIDs:     []string{"player2", "player3"},
			},
			want: []Pair{{"guardian1", "player1"}},
		},
		{
			name: "guardian without ward yields nothing",
			req: NewAssignments{
				RespondentIDs: []string{"guardian3"},
				TargetIDs:     []string{"player1"},
			},
			want: nil,
		},
		{
			name: "mixed respondents",
			req: NewAssignments{
				RespondentIDs: []string{"coach1", "guardian2"},
				TargetIDs:     []string{"player3"},
			},
			want: []Pair{{"coach1", "player3"}, {"guardian2", "player3"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.req, users))
		})
	}
}

func TestExpand_patterns(t *testing.T) {
	users := fanoutDirectory()

	tests := []struct {
		name    string
		pattern BulkPattern
		want    []Pair
	}{
		{
			name:    "guardians to children",
			pattern: GuardiansToChildren,
			want:    []Pair{{"guardian1", "player1"}, {"guardian2", "player3"}},
		},
		{
			name:    "guardians to coaches",
			pattern: GuardiansToCoaches,
			want:    []Pair{{"guardian1", "coach1"}, {"guardian2", "coach2"}},
		},
		{
			name:    "players to coaches skips trainerless players",
			pattern: PlayersToCoaches,
			want:    []Pair{{"player1", "coach1"}, {"player2", "coach1"}, {"player3", "coach2"}},
		},
		{
			name:    "coaches to players",
			pattern: CoachesToPlayers,
			want: []Pair{
				{"coach1", "player1"}, {"coach1", "player2"},
				{"coach2", "player3"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(NewAssignments{Pattern: tt.pattern}, users)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestExpand_danglingEdges(t *testing.T) {
	// edges pointing at users absent from the snapshot contribute nothing
	users := []user.User{
		{ID: "guardian1", Role: user.RoleGuardian, PlayerID: null.StringFrom("ghost")},
		{ID: "player1", Role: user.RolePlayer, TrainerID: null.StringFrom("coach1")},
	}

	assert.Empty(t, Expand(NewAssignments{Pattern: GuardiansToChildren}, users))
	assert.Empty(t, Expand(NewAssignments{Pattern: GuardiansToCoaches}, users))
	// PlayersToCoaches only follows the player's own edge; the trainer need not
	// be in the snapshot for the pair to form.
	assert.Equal(t,
		[]Pair{{"player1", "coach1"}},
		Expand(NewAssignments{Pattern: PlayersToCoaches}, users),
	)
}
