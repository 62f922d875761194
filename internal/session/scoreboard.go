package session

import (
	"fmt"
	"strings"
	"sync"
)

// Scoreboard holds one running point total per team. Totals only ever
// increase. AddPoints is safe for concurrent callers: individual-round
// scoring runs inside each player's own response path.
type Scoreboard struct {
	mu     sync.Mutex
	totals []int
}

// NewScoreboard creates a scoreboard with teams zeroed totals.
func NewScoreboard(teams int) *Scoreboard {
	return &Scoreboard{totals: make([]int, teams)}
}

// AddPoints adds points to a team's total. A team index outside the
// configured range or a negative award is rejected so a bad round can be
// skipped without corrupting the board.
func (s *Scoreboard) AddPoints(team, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if team < 0 || team >= len(s.totals) {
		return fmt.Errorf("team index %d out of range 0..%d", team, len(s.totals)-1)
	}
	if points < 0 {
		return fmt.Errorf("negative award %d for team %d", points, team)
	}
	s.totals[team] += points
	return nil
}

// Totals returns a copy of the current standings, indexed by team.
func (s *Scoreboard) Totals() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.totals))
	copy(out, s.totals)
	return out
}

// RenderStandings formats standings as client-renderable text, one team
// per line.
func RenderStandings(totals []int) string {
	var b strings.Builder
	for i, pts := range totals {
		fmt.Fprintf(&b, "Team %d: %d points\n", i+1, pts)
	}
	return b.String()
}
