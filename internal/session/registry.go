package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pequito193/PCD-Projeto/internal/quiz"
)

// Pacing is the registry-wide round pacing applied to every session it
// creates.
type Pacing struct {
	AnswerWindow    time.Duration
	RoundPause      time.Duration
	BonusSlots      int
	BonusMultiplier int
	Welcome         string
}

// DefaultPacing mirrors the classic contest settings: a 10 second answer
// window, 3 seconds between rounds and double points for the fastest
// correct answer.
func DefaultPacing() Pacing {
	return Pacing{
		AnswerWindow:    10 * time.Second,
		RoundPause:      3 * time.Second,
		BonusSlots:      1,
		BonusMultiplier: 2,
		Welcome:         "Welcome!",
	}
}

// Registry is the process-wide table of active sessions. It owns the
// code→session mapping and serializes login admission, which is what makes
// display names unique across every active session.
type Registry struct {
	clock  clockwork.Clock
	pacing Pacing

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(clock clockwork.Clock, pacing Pacing) *Registry {
	return &Registry{
		clock:    clock,
		pacing:   pacing,
		sessions: make(map[string]*Session),
	}
}

// CreateSession allocates a filling session playing qz and returns it with
// a code unique among active sessions. Codes of finished sessions may be
// reused.
func (r *Registry) CreateSession(teams, playersPerTeam int, qz quiz.Quiz) (*Session, error) {
	if teams < 1 {
		return nil, fmt.Errorf("team count must be at least 1, got %d", teams)
	}
	if playersPerTeam < 1 {
		return nil, fmt.Errorf("players per team must be at least 1, got %d", playersPerTeam)
	}
	if len(qz.Questions) == 0 {
		return nil, fmt.Errorf("quiz %q has no questions", qz.Name)
	}

	cfg := Config{
		Teams:           teams,
		PlayersPerTeam:  playersPerTeam,
		AnswerWindow:    r.pacing.AnswerWindow,
		RoundPause:      r.pacing.RoundPause,
		BonusSlots:      r.pacing.BonusSlots,
		BonusMultiplier: r.pacing.BonusMultiplier,
		Welcome:         r.pacing.Welcome,
	}

	r.mu.Lock()
	code := r.newCodeLocked()
	sess := newSession(code, cfg, qz, r.clock, r.Remove)
	r.sessions[code] = sess
	r.mu.Unlock()

	log.Info().
		Str("session_code", code).
		Str("quiz", qz.Name).
		Int("teams", teams).
		Int("players_per_team", playersPerTeam).
		Msg("session created")
	return sess, nil
}

// newCodeLocked generates a short join code not held by any active
// session. Caller holds r.mu.
func (r *Registry) newCodeLocked() string {
	for {
		code := strings.ToUpper(uuid.New().String()[:6])
		if _, taken := r.sessions[code]; !taken {
			return code
		}
	}
}

// Resolve looks a session up by code.
func (r *Registry) Resolve(code string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[code]
	return sess, ok
}

// Remove drops a session from the table. Sessions call it once on
// finishing; calling it for an absent code is a no-op.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	_, present := r.sessions[code]
	delete(r.sessions, code)
	r.mu.Unlock()

	if present {
		log.Info().Str("session_code", code).Msg("session removed from registry")
	}
}

// IsNameTaken scans every active session's roster for name.
func (r *Registry) IsNameTaken(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nameTakenLocked(name)
}

func (r *Registry) nameTakenLocked(name string) bool {
	for _, sess := range r.sessions {
		if sess.hasPlayerNamed(name) {
			return true
		}
	}
	return false
}

// Login validates and admits one player in a single serialized step, so
// two concurrent logins with the same display name resolve to exactly one
// success regardless of arrival order.
func (r *Registry) Login(ctx context.Context, code, name string, conn Sender) (*Session, *Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTakenLocked(name) {
		return nil, nil, ErrNameTaken
	}
	sess, ok := r.sessions[code]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSession, code)
	}

	p, err := sess.Join(ctx, name, conn)
	if err != nil {
		return nil, nil, err
	}
	return sess, p, nil
}

// SessionInfo is an administrative snapshot of one active session.
type SessionInfo struct {
	Code     string `json:"code"`
	Quiz     string `json:"quiz"`
	State    State  `json:"state"`
	Joined   int    `json:"joined"`
	Capacity int    `json:"capacity"`
}

// List snapshots every active session for the administrative surface.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			Code:     sess.Code(),
			Quiz:     sess.QuizName(),
			State:    sess.State(),
			Joined:   sess.RosterSize(),
			Capacity: sess.Config().Capacity(),
		})
	}
	return infos
}
