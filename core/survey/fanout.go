package survey

import "github.com/trezcool/footpulse/core/user"

// BulkPattern names a graph traversal over the active directory used to derive
// assignment candidates without explicit id lists.
type BulkPattern string

const (
	// GuardiansToChildren assigns every guardian with a ward to evaluate that ward.
	GuardiansToChildren BulkPattern = "GUARDIANS_TO_CHILDREN"
	// GuardiansToCoaches assigns every guardian whose ward has a trainer to evaluate that trainer.
	GuardiansToCoaches BulkPattern = "GUARDIANS_TO_COACHES"
	// PlayersToCoaches assigns every player with a trainer to evaluate that trainer.
	PlayersToCoaches BulkPattern = "PLAYERS_TO_COACHES"
	// CoachesToPlayers assigns every trainer to evaluate each player on their roster.
	CoachesToPlayers BulkPattern = "COACHES_TO_PLAYERS"
)

var AllBulkPatterns = []BulkPattern{GuardiansToChildren, GuardiansToCoaches, PlayersToCoaches, CoachesToPlayers}

type (
	// Pair is a fanout candidate: respondent evaluates target.
	Pair struct {
		RespondentID string `json:"respondent_id"`
		TargetID     string `json:"target_id"`
	}

	// PreviewPair annotates a candidate with whether an Assignment already
	// exists for it (same template and month).
	PreviewPair struct {
		RespondentID  string `json:"respondent_id"`
		TargetID      string `json:"target_id"`
		AlreadyExists bool   `json:"already_exists"`
	}
)

// Expand computes the deduplicated candidate pairs for a bulk assignment
// request against a snapshot of the directory. It is a pure function; the
// caller dedups the result against existing assignments.
//
// Explicit mode takes the cartesian product of the respondent and target id
// lists; with no targets, each respondent self-targets. When an explicit
// respondent is a GUARDIAN their targets are forcibly narrowed to their own
// ward, so an admin mistake cannot assign a guardian to evaluate an unrelated
// child; a guardian without a ward yields no pairs.
//
// Pattern mode walks the graph edges of every active user instead.
func Expand(req NewAssignments, users []user.User) []Pair {
	byID := make(map[string]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var pairs []Pair
	seen := make(map[Pair]struct{})
	add := func(respondentID, targetID string) {
		p := Pair{RespondentID: respondentID, TargetID: targetID}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}

	if req.Pattern != "" {
		expandPattern(req.Pattern, users, byID, add)
		return pairs
	}

	targets := req.TargetIDs
	if len(targets) == 0 {
		targets = nil // each respondent self-targets
	}
	for _, rID := range req.RespondentIDs {
		if respondent, ok := byID[rID]; ok && respondent.IsGuardian() {
			// guardian-safety narrowing
			if ward := respondent.PlayerID.String; respondent.PlayerID.Valid && ward != "" {
				add(rID, ward)
			}
			continue
		}
		if targets == nil {
			add(rID, rID)
			continue
		}
		for _, tID := range targets {
			add(rID, tID)
		}
	}
	return pairs
}

func expandPattern(pattern BulkPattern, users []user.User, byID map[string]user.User, add func(respondentID, targetID string)) {
	ward := func(g user.User) (user.User, bool) {
		if !g.PlayerID.Valid || g.PlayerID.String == "" {
			return user.User{}, false
		}
		w, ok := byID[g.PlayerID.String]
		return w, ok
	}

	switch pattern {
	case GuardiansToChildren:
		for _, u := range users {
			if !u.IsGuardian() {
				continue
			}
			if w, ok := ward(u); ok {
				add(u.ID, w.ID)
			}
		}
	case GuardiansToCoaches:
		for _, u := range users {
			if !u.IsGuardian() {
				continue
			}
			w, ok := ward(u)
			if !ok {
				continue
			}
			if w.TrainerID.Valid && w.TrainerID.String != "" {
				add(u.ID, w.TrainerID.String)
			}
		}
	case PlayersToCoaches:
		for _, u := range users {
			if !u.IsPlayer() {
				continue
			}
			if u.TrainerID.Valid && u.TrainerID.String != "" {
				add(u.ID, u.TrainerID.String)
			}
		}
	case CoachesToPlayers:
		for _, u := range users {
			if !u.IsTrainer() {
				continue
			}
			for _, p := range users {
				if p.IsPlayer() && p.TrainerID.Valid && p.TrainerID.String == u.ID {
					add(u.ID, p.ID)
				}
			}
		}
	}
}
