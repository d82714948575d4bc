package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/fencing-club/models"
)

const (
	MinTournamentAthletes = 3
	MaxTournamentAthletes = 16
)

var (
	ErrNotEnoughAthletes = errors.New("not enough athletes")
	ErrTooManyAthletes   = errors.New("too many athletes")
	ErrDuplicateAthlete  = errors.New("duplicate athlete in pairing input")
)

// Pair is an unordered opponent pair. A is always the athlete listed first in
// the generator input.
type Pair struct {
	AthleteA int `json:"athlete_a_id"`
	AthleteB int `json:"athlete_b_id"`
}

// PairKey is the orientation-free identity of a contest.
type PairKey struct {
	Low  int
	High int
}

func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

func (p Pair) Key() PairKey { return NewPairKey(p.AthleteA, p.AthleteB) }

// ValidateRoster checks tournament size bounds and uniqueness.
func ValidateRoster(athletes []int) error {
	if len(athletes) < MinTournamentAthletes {
		return fmt.Errorf("%w: got %d, min %d", ErrNotEnoughAthletes, len(athletes), MinTournamentAthletes)
	}
	if len(athletes) > MaxTournamentAthletes {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyAthletes, len(athletes), MaxTournamentAthletes)
	}
	return checkDistinct(athletes)
}

func checkDistinct(athletes []int) error {
	seen := make(map[int]struct{}, len(athletes))
	for _, id := range athletes {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: athlete %d", ErrDuplicateAthlete, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// GeneratePairs returns every unordered pair of the input exactly once, in
// input order: (0,1), (0,2) ... (N-2,N-1).
func GeneratePairs(athletes []int) ([]Pair, error) {
	if len(athletes) < 2 {
		return nil, fmt.Errorf("%w: got %d, min 2 required", ErrNotEnoughAthletes, len(athletes))
	}
	if err := checkDistinct(athletes); err != nil {
		return nil, err
	}

	n := len(athletes)
	pairs := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{AthleteA: athletes[i], AthleteB: athletes[j]})
		}
	}
	return pairs, nil
}

// Rounds partitions all pairs with the circle method: slot 0 stays fixed and
// the remaining slots rotate one step per round. Odd rosters get a bye slot;
// pairs against the bye are dropped, so every round of an odd roster has one
// athlete sitting out.
func Rounds(athletes []int) ([][]Pair, error) {
	if len(athletes) < 2 {
		return nil, fmt.Errorf("%w: got %d, min 2 required", ErrNotEnoughAthletes, len(athletes))
	}
	if err := checkDistinct(athletes); err != nil {
		return nil, err
	}

	n := len(athletes)
	bye := -1
	if n%2 == 1 {
		bye = n
		n++
	}

	// slots hold indices into athletes; index == bye is the synthetic slot
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}

	rounds := make([][]Pair, 0, n-1)
	for r := 0; r < n-1; r++ {
		round := make([]Pair, 0, n/2)
		for i := 0; i < n/2; i++ {
			a, b := slots[i], slots[n-1-i]
			if a == bye || b == bye {
				continue
			}
			if a > b {
				a, b = b, a
			}
			round = append(round, Pair{AthleteA: athletes[a], AthleteB: athletes[b]})
		}
		rounds = append(rounds, round)

		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}
	return rounds, nil
}

// RoundSlot is one scheduled pairing with the stored match for it, if any.
type RoundSlot struct {
	Pair  Pair          `json:"pair"`
	Match *models.Match `json:"match,omitempty"`
}

type Round struct {
	Number int         `json:"number"`
	Slots  []RoundSlot `json:"slots"`
}

// RoundsFromMatches lays the current matches onto the rotation schedule. It is
// recomputed from live state on every call. Self-paired matches never match a
// slot; when both orientations of a pair are stored the approved one wins.
func RoundsFromMatches(athletes []int, matches []*models.Match) ([]Round, error) {
	schedule, err := Rounds(athletes)
	if err != nil {
		return nil, err
	}

	byPair := IndexMatches(matches)

	out := make([]Round, 0, len(schedule))
	for i, pairs := range schedule {
		round := Round{Number: i + 1, Slots: make([]RoundSlot, 0, len(pairs))}
		for _, p := range pairs {
			round.Slots = append(round.Slots, RoundSlot{Pair: p, Match: byPair[p.Key()]})
		}
		out = append(out, round)
	}
	return out, nil
}

// IndexMatches maps matches by normalized pair, skipping self pairs. An
// approved match takes precedence over any other stored orientation.
func IndexMatches(matches []*models.Match) map[PairKey]*models.Match {
	byPair := make(map[PairKey]*models.Match, len(matches))
	for _, m := range matches {
		if m == nil || m.IsSelfPair() {
			continue
		}
		key := NewPairKey(m.AthleteAID, m.AthleteBID)
		if prev, ok := byPair[key]; ok && (prev.Status == models.MatchApproved || m.Status != models.MatchApproved) {
			continue
		}
		byPair[key] = m
	}
	return byPair
}
