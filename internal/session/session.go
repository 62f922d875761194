package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pequito193/PCD-Projeto/internal/protocol"
	"github.com/pequito193/PCD-Projeto/internal/quiz"
)

// State is a session's lifecycle phase.
type State string

const (
	StateFilling  State = "filling"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

// RoundKind selects the synchronizer and scoring discipline for a round.
// Kind alternates by question index parity: even rounds are individual,
// odd rounds are team rounds.
type RoundKind string

const (
	RoundIndividual RoundKind = "individual"
	RoundTeam       RoundKind = "team"
)

// Config fixes a session's shape and pacing at creation time.
type Config struct {
	Teams          int
	PlayersPerTeam int

	AnswerWindow time.Duration
	RoundPause   time.Duration

	BonusSlots      int
	BonusMultiplier int

	Welcome string
}

// Capacity is the roster size that moves the session from filling to
// running.
func (c Config) Capacity() int { return c.Teams * c.PlayersPerTeam }

// Session is one running game: a roster, a question track, a scoreboard
// and at most one live round synchronizer. The round loop it spawns is the
// only goroutine that constructs synchronizers and advances the track;
// connection goroutines only enter through Join, Leave and HandleAnswer.
type Session struct {
	code     string
	cfg      Config
	quizName string
	clock    clockwork.Clock
	board    *Scoreboard
	track    *Track

	// onFinished detaches the session from the registry exactly once.
	onFinished func(code string)

	mu     sync.Mutex
	state  State
	roster []*Player

	// Live round state, nil between rounds.
	question quiz.Question
	kind     RoundKind
	latch    *AnswerLatch
	barrier  *TeamBarrier
}

func newSession(code string, cfg Config, qz quiz.Quiz, clock clockwork.Clock, onFinished func(code string)) *Session {
	return &Session{
		code:       code,
		cfg:        cfg,
		quizName:   qz.Name,
		clock:      clock,
		board:      NewScoreboard(cfg.Teams),
		track:      NewTrack(qz.Questions),
		onFinished: onFinished,
		state:      StateFilling,
	}
}

// Code is the registry-assigned join code.
func (s *Session) Code() string { return s.code }

// QuizName names the quiz this session plays.
func (s *Session) QuizName() string { return s.quizName }

// Config returns the session's immutable configuration.
func (s *Session) Config() Config { return s.cfg }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RosterSize is the number of currently admitted players.
func (s *Session) RosterSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roster)
}

// hasPlayerNamed reports whether name is on the roster. Callers hold no
// session lock; the registry uses it under its own lock for global name
// uniqueness.
func (s *Session) hasPlayerNamed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.roster {
		if p.name == name {
			return true
		}
	}
	return false
}

// Join admits a player while the session is filling. Team membership is
// assigned by roster position modulo the team count. The join that fills
// the last slot transitions the session to running and spawns the round
// loop.
func (s *Session) Join(ctx context.Context, name string, conn Sender) (*Player, error) {
	s.mu.Lock()
	if s.state != StateFilling {
		s.mu.Unlock()
		return nil, ErrSessionStarted
	}
	if len(s.roster) >= s.cfg.Capacity() {
		s.mu.Unlock()
		return nil, ErrSessionFull
	}

	p := newPlayer(name, len(s.roster)%s.cfg.Teams, conn)
	s.roster = append(s.roster, p)
	full := len(s.roster) == s.cfg.Capacity()
	if full {
		s.state = StateRunning
	}
	s.mu.Unlock()

	log.Info().
		Str("session_code", s.code).
		Str("player", name).
		Int("team", p.Team()).
		Int("joined", s.RosterSize()).
		Int("capacity", s.cfg.Capacity()).
		Msg("player joined session")

	if full {
		go s.run(ctx)
	}
	return p, nil
}

// Leave removes a player from the roster. It is idempotent and safe after
// the session has finished. A departure mid-round never blocks the round
// loop: the player simply stops signalling and the answer window settles
// the synchronizer.
func (s *Session) Leave(p *Player) {
	s.mu.Lock()
	for i, member := range s.roster {
		if member == p {
			s.roster = append(s.roster[:i], s.roster[i+1:]...)
			break
		}
	}
	state := s.state
	if state == StateFilling {
		// Positions shifted, so position-based team membership shifts too.
		for i, member := range s.roster {
			member.setTeam(i % s.cfg.Teams)
		}
	}
	s.mu.Unlock()

	log.Info().
		Str("session_code", s.code).
		Str("player", p.name).
		Str("state", string(state)).
		Msg("player left session")
}

// HandleAnswer processes one SEND_ANSWER for the round in flight. Answers
// between rounds, after release, or repeated within a round are dropped.
// An out-of-range option index still counts as a response, just an
// incorrect one.
func (s *Session) HandleAnswer(p *Player, option int) {
	s.mu.Lock()
	q := s.question
	kind := s.kind
	latch := s.latch
	barrier := s.barrier
	s.mu.Unlock()

	if latch == nil && barrier == nil {
		log.Debug().
			Str("session_code", s.code).
			Str("player", p.name).
			Msg("answer arrived with no round in flight, dropping")
		return
	}

	correct := q.IsCorrect(option)
	if !p.recordAnswer(correct) {
		log.Debug().
			Str("session_code", s.code).
			Str("player", p.name).
			Msg("duplicate answer this round, dropping")
		return
	}

	switch kind {
	case RoundIndividual:
		mult, ok := latch.CountDown()
		if !ok {
			return
		}
		if correct {
			if err := s.board.AddPoints(p.Team(), q.Points*mult); err != nil {
				log.Error().
					Err(err).
					Str("session_code", s.code).
					Str("player", p.name).
					Msg("skipping individual award")
			}
		}
	case RoundTeam:
		barrier.Arrive()
	}
}

// run is the round loop. Exactly one instance per session, spawned by the
// join that fills the roster.
func (s *Session) run(ctx context.Context) {
	log.Info().
		Str("session_code", s.code).
		Str("quiz", s.quizName).
		Int("questions", s.track.Total()).
		Msg("roster full, starting round loop")

	// Give clients a beat between the join ack and the first question.
	if !s.pause(ctx, s.cfg.RoundPause) {
		s.finish()
		return
	}

	for {
		q, ok := s.track.Current()
		if !ok {
			break
		}

		kind := RoundIndividual
		if s.track.Index()%2 == 1 {
			kind = RoundTeam
		}

		roster := s.rosterSnapshot()
		if len(roster) == 0 {
			log.Info().
				Str("session_code", s.code).
				Int("round", s.track.Index()).
				Msg("no players left, ending session early")
			break
		}
		s.openRound(q, kind, roster)

		prompt := q.Prompt
		if kind == RoundTeam {
			prompt = "[TEAM] " + prompt
		}
		s.broadcast(protocol.MustEnvelope(protocol.MsgTypeNewQuestion, protocol.NewQuestionPayload{
			Prompt:  prompt,
			Options: q.Options,
			Points:  q.Points,
		}))

		log.Info().
			Str("session_code", s.code).
			Int("round", s.track.Index()).
			Str("kind", string(kind)).
			Int("participants", len(roster)).
			Msg("round open, awaiting answers")

		quorum := s.awaitRound(ctx)

		// Stop accepting answers before scoring reads the flags.
		s.closeRound()

		if kind == RoundTeam {
			s.scoreTeamRound(q, roster)
		}

		log.Info().
			Str("session_code", s.code).
			Int("round", s.track.Index()).
			Bool("quorum", quorum).
			Ints("totals", s.board.Totals()).
			Msg("round closed and scored")

		if !s.track.Advance() {
			break
		}

		totals := s.board.Totals()
		s.broadcast(protocol.MustEnvelope(protocol.MsgTypeUpdateScore, protocol.ScorePayload{
			Scores:  totals,
			Summary: RenderStandings(totals),
		}))

		if !s.pause(ctx, s.cfg.RoundPause) {
			break
		}
	}

	s.finish()
}

// openRound installs the round's synchronizer and resets every
// participant's per-round flags.
func (s *Session) openRound(q quiz.Question, kind RoundKind, roster []*Player) {
	for _, p := range roster {
		p.beginRound()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = q
	s.kind = kind
	if kind == RoundIndividual {
		s.latch = NewAnswerLatch(s.clock, len(roster), s.cfg.BonusSlots, s.cfg.BonusMultiplier, s.cfg.AnswerWindow)
		s.barrier = nil
	} else {
		s.barrier = NewTeamBarrier(s.clock, len(roster), s.cfg.AnswerWindow)
		s.latch = nil
	}
}

// awaitRound blocks on the live synchronizer and reports whether the full
// quorum answered before the window closed.
func (s *Session) awaitRound(ctx context.Context) bool {
	s.mu.Lock()
	latch := s.latch
	barrier := s.barrier
	s.mu.Unlock()

	if latch != nil {
		return latch.Await(ctx)
	}
	if barrier != nil {
		return barrier.Await(ctx)
	}
	return false
}

// closeRound discards the round's synchronizer so late answers are dropped.
func (s *Session) closeRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latch = nil
	s.barrier = nil
}

// scoreTeamRound applies the team-consensus rule once per team: a team
// with every member correct earns double points, a team with at least one
// correct earns the base points, a team with none earns nothing.
func (s *Session) scoreTeamRound(q quiz.Question, roster []*Player) {
	type tally struct{ members, correct int }
	teams := make([]tally, s.cfg.Teams)

	for _, p := range roster {
		team := p.Team()
		if team < 0 || team >= s.cfg.Teams {
			log.Error().
				Str("session_code", s.code).
				Str("player", p.name).
				Int("team", team).
				Msg("team index out of range, skipping player in team scoring")
			continue
		}
		teams[team].members++
		if p.answeredCorrectly() {
			teams[team].correct++
		}
	}

	for team, t := range teams {
		var award int
		switch {
		case t.members == 0 || t.correct == 0:
			continue
		case t.correct == t.members:
			award = q.Points * 2
		default:
			award = q.Points
		}
		if err := s.board.AddPoints(team, award); err != nil {
			log.Error().
				Err(err).
				Str("session_code", s.code).
				Int("team", team).
				Msg("skipping team award")
		}
	}
}

// finish broadcasts the final standings, closes every roster connection
// and detaches the session from the registry. Terminal.
func (s *Session) finish() {
	s.mu.Lock()
	s.state = StateFinished
	roster := make([]*Player, len(s.roster))
	copy(roster, s.roster)
	s.mu.Unlock()

	totals := s.board.Totals()
	s.broadcast(protocol.MustEnvelope(protocol.MsgTypeGameOver, protocol.ScorePayload{
		Scores:  totals,
		Summary: "Game over!\n" + RenderStandings(totals),
	}))

	for _, p := range roster {
		p.conn.Close()
	}

	if s.onFinished != nil {
		s.onFinished(s.code)
	}

	log.Info().
		Str("session_code", s.code).
		Ints("totals", totals).
		Msg("session finished")
}

// pause sleeps for d, returning false if ctx was cancelled first.
func (s *Session) pause(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) rosterSnapshot() []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Player, len(s.roster))
	copy(out, s.roster)
	return out
}

// broadcast sends an envelope to every current roster member.
func (s *Session) broadcast(env protocol.Envelope) {
	for _, p := range s.rosterSnapshot() {
		p.conn.Send(env)
	}
}
