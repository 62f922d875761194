package session

import (
	"sync"

	"github.com/pequito193/PCD-Projeto/internal/protocol"
)

// Sender is the outbound side of a player's connection. The gateway's
// websocket connection implements it; tests substitute fakes.
type Sender interface {
	// Send queues an envelope for delivery. It must not block the caller.
	Send(env protocol.Envelope)
	// Close tears the connection down. Safe to call more than once.
	Close()
}

// Player is one admitted roster member.
//
// Multiple goroutines may invoke methods on a Player simultaneously.
type Player struct {
	name string
	conn Sender

	mu          sync.Mutex
	team        int
	answered    bool
	lastCorrect bool
}

func newPlayer(name string, team int, conn Sender) *Player {
	return &Player{name: name, team: team, conn: conn}
}

// Name is the registry-unique display name.
func (p *Player) Name() string { return p.name }

// Team is the 0-based team index assigned by roster position.
func (p *Player) Team() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.team
}

// setTeam reassigns the team index. Only happens while the session is
// still filling, when a departure shifts roster positions.
func (p *Player) setTeam(team int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.team = team
}

// beginRound resets the per-round state before a question is broadcast.
func (p *Player) beginRound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answered = false
	p.lastCorrect = false
}

// recordAnswer stores the correctness of this round's answer. It reports
// false if the player already answered this round, so a double submission
// is dropped instead of counting down the synchronizer twice.
func (p *Player) recordAnswer(correct bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answered {
		return false
	}
	p.answered = true
	p.lastCorrect = correct
	return true
}

// answeredCorrectly reads the flag written by recordAnswer. Only the
// round's scoring step calls it.
func (p *Player) answeredCorrectly() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCorrect
}
