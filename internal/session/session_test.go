package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pequito193/PCD-Projeto/internal/protocol"
	"github.com/pequito193/PCD-Projeto/internal/quiz"
)

// fakeConn is a Sender that records everything sent to it and exposes the
// frames a driving test cares about on channels.
type fakeConn struct {
	mu     sync.Mutex
	msgs   []protocol.Envelope
	closed bool

	questions chan protocol.NewQuestionPayload
	gameOver  chan protocol.ScorePayload
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		questions: make(chan protocol.NewQuestionPayload, 8),
		gameOver:  make(chan protocol.ScorePayload, 1),
	}
}

func (f *fakeConn) Send(env protocol.Envelope) {
	f.mu.Lock()
	f.msgs = append(f.msgs, env)
	f.mu.Unlock()

	switch env.Type {
	case protocol.MsgTypeNewQuestion:
		var p protocol.NewQuestionPayload
		if json.Unmarshal(env.Data, &p) == nil {
			select {
			case f.questions <- p:
			default:
			}
		}
	case protocol.MsgTypeGameOver:
		var p protocol.ScorePayload
		if json.Unmarshal(env.Data, &p) == nil {
			select {
			case f.gameOver <- p:
			default:
			}
		}
	}
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func twoOptionQuestion(points int) quiz.Question {
	return quiz.Question{
		Prompt:  "prompt",
		Points:  points,
		Correct: 1,
		Options: []string{"right", "wrong"},
	}
}

func testConfig(teams, perTeam int) Config {
	return Config{
		Teams:           teams,
		PlayersPerTeam:  perTeam,
		AnswerWindow:    5 * time.Second,
		RoundPause:      10 * time.Millisecond,
		BonusSlots:      1,
		BonusMultiplier: 2,
		Welcome:         "hi",
	}
}

func TestSession_TeamRoundScoring(t *testing.T) {
	tests := []struct {
		name  string
		flags []bool
		want  int
	}{
		{"all correct doubles the points", []bool{true, true, true}, 200},
		{"mixed team earns base points once", []bool{true, true, false}, 100},
		{"no correct answers earns nothing", []bool{false, false, false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := twoOptionQuestion(100)
			qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{q}}
			s := newSession("TEST01", testConfig(1, 3), qz, clockwork.NewRealClock(), nil)

			roster := make([]*Player, len(tt.flags))
			for i, correct := range tt.flags {
				roster[i] = newPlayer("p", 0, newFakeConn())
				roster[i].recordAnswer(correct)
			}

			s.scoreTeamRound(q, roster)

			if got := s.board.Totals()[0]; got != tt.want {
				t.Errorf("team total = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSession_IndividualRoundScoring(t *testing.T) {
	q := twoOptionQuestion(50)
	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{q}}
	// Capacity 4 so two joins leave the session filling and no round loop
	// starts underneath the test.
	s := newSession("TEST02", testConfig(2, 2), qz, clockwork.NewRealClock(), nil)

	p0, err := s.Join(context.Background(), "alice", newFakeConn())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	p1, err := s.Join(context.Background(), "bob", newFakeConn())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p0.Team() == p1.Team() {
		t.Fatalf("first two joins must land on different teams, both got %d", p0.Team())
	}

	s.openRound(q, RoundIndividual, []*Player{p0, p1})

	// First correct answer takes the bonus slot: 50 x 2.
	s.HandleAnswer(p0, 1)
	// Wrong answer scores nothing.
	s.HandleAnswer(p1, 2)

	totals := s.board.Totals()
	if totals[p0.Team()] != 100 {
		t.Errorf("bonus responder's team total = %d, want 100", totals[p0.Team()])
	}
	if totals[p1.Team()] != 0 {
		t.Errorf("incorrect responder's team total = %d, want 0", totals[p1.Team()])
	}
}

func TestSession_DuplicateAnswerDropped(t *testing.T) {
	q := twoOptionQuestion(50)
	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{q}}
	s := newSession("TEST03", testConfig(2, 2), qz, clockwork.NewRealClock(), nil)

	p0, _ := s.Join(context.Background(), "alice", newFakeConn())
	p1, _ := s.Join(context.Background(), "bob", newFakeConn())

	s.openRound(q, RoundIndividual, []*Player{p0, p1})

	s.HandleAnswer(p0, 1)
	s.HandleAnswer(p0, 1)

	if got := s.board.Totals()[p0.Team()]; got != 100 {
		t.Errorf("duplicate answer must not score twice, total = %d, want 100", got)
	}
}

func TestSession_AnswerBetweenRoundsDropped(t *testing.T) {
	q := twoOptionQuestion(50)
	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{q}}
	s := newSession("TEST04", testConfig(2, 2), qz, clockwork.NewRealClock(), nil)

	p0, _ := s.Join(context.Background(), "alice", newFakeConn())

	// No round open: nothing to score, nothing to crash.
	s.HandleAnswer(p0, 1)

	if got := s.board.Totals()[p0.Team()]; got != 0 {
		t.Errorf("answer with no round in flight must not score, total = %d", got)
	}
}

func TestSession_OutOfRangeOptionCountsAsIncorrect(t *testing.T) {
	q := twoOptionQuestion(50)
	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{q}}
	s := newSession("TEST05", testConfig(2, 2), qz, clockwork.NewRealClock(), nil)

	p0, _ := s.Join(context.Background(), "alice", newFakeConn())
	p1, _ := s.Join(context.Background(), "bob", newFakeConn())

	s.openRound(q, RoundIndividual, []*Player{p0, p1})
	s.HandleAnswer(p0, 99)

	if got := s.board.Totals()[p0.Team()]; got != 0 {
		t.Errorf("out-of-range option must score nothing, total = %d", got)
	}
	// It still counted as a response: the second answer releases the latch.
	s.HandleAnswer(p1, 1)
	s.mu.Lock()
	latch := s.latch
	s.mu.Unlock()
	if !latch.Await(context.Background()) {
		t.Error("latch should have released after both responses")
	}
}

func TestSession_Leave_IsIdempotent(t *testing.T) {
	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{twoOptionQuestion(50)}}
	s := newSession("TEST06", testConfig(2, 2), qz, clockwork.NewRealClock(), nil)

	p0, _ := s.Join(context.Background(), "alice", newFakeConn())

	s.Leave(p0)
	s.Leave(p0)

	if s.RosterSize() != 0 {
		t.Errorf("roster size = %d after leave, want 0", s.RosterSize())
	}
}

func TestSession_LeaveWhileFilling_ReassignsTeamsByPosition(t *testing.T) {
	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{twoOptionQuestion(50)}}
	s := newSession("TEST07", testConfig(2, 2), qz, clockwork.NewRealClock(), nil)

	p0, _ := s.Join(context.Background(), "alice", newFakeConn())
	p1, _ := s.Join(context.Background(), "bob", newFakeConn())
	p2, _ := s.Join(context.Background(), "carol", newFakeConn())

	s.Leave(p0)

	// Remaining players shift down one position: bob and carol must still
	// cover both teams, not pile onto one.
	if p1.Team() != 0 || p2.Team() != 1 {
		t.Errorf("teams after mid-fill leave = %d,%d, want 0,1", p1.Team(), p2.Team())
	}
}

// TestSession_EndsEarlyWhenAllPlayersLeave checks the round loop tears the
// session down as soon as the roster empties instead of playing the
// remaining questions' answer windows out against nobody.
func TestSession_EndsEarlyWhenAllPlayersLeave(t *testing.T) {
	reg := NewRegistry(clockwork.NewRealClock(), Pacing{
		// A window far longer than the test's own deadline: finishing in
		// time is only possible through the early-out.
		AnswerWindow:    time.Minute,
		RoundPause:      50 * time.Millisecond,
		BonusSlots:      1,
		BonusMultiplier: 2,
		Welcome:         "hi",
	})

	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{
		twoOptionQuestion(100),
		twoOptionQuestion(100),
		twoOptionQuestion(100),
	}}
	sess, err := reg.CreateSession(2, 1, qz)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	code := sess.Code()

	c1, c2 := newFakeConn(), newFakeConn()
	_, p1, err := reg.Login(context.Background(), code, "alice", c1)
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	_, p2, err := reg.Login(context.Background(), code, "bob", c2)
	if err != nil {
		t.Fatalf("login bob: %v", err)
	}

	// Answer the first question so its round releases on quorum, then
	// disconnect everyone during the pause before round 1.
	for _, pc := range []struct {
		p *Player
		c *fakeConn
	}{{p1, c1}, {p2, c2}} {
		select {
		case <-pc.c.questions:
		case <-time.After(5 * time.Second):
			t.Fatal("first question never arrived")
		}
		sess.HandleAnswer(pc.p, 1)
	}
	sess.Leave(p1)
	sess.Leave(p2)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, resolvable := reg.Resolve(code); !resolvable {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("round loop kept running with an empty roster")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestSession_FullGame drives a 2-teams-by-1-player session through a two
// question quiz: round 0 individual, round 1 team, everyone answering
// correctly and quickly.
func TestSession_FullGame(t *testing.T) {
	reg := NewRegistry(clockwork.NewRealClock(), Pacing{
		AnswerWindow:    2 * time.Second,
		RoundPause:      10 * time.Millisecond,
		BonusSlots:      1,
		BonusMultiplier: 2,
		Welcome:         "hi",
	})

	qz := quiz.Quiz{Name: "t", Questions: []quiz.Question{
		twoOptionQuestion(100),
		twoOptionQuestion(100),
	}}
	sess, err := reg.CreateSession(2, 1, qz)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	code := sess.Code()

	c1, c2 := newFakeConn(), newFakeConn()
	_, p1, err := reg.Login(context.Background(), code, "alice", c1)
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	_, p2, err := reg.Login(context.Background(), code, "bob", c2)
	if err != nil {
		t.Fatalf("login bob: %v", err)
	}

	// Each player answers option 1 (correct) to every question.
	for _, pc := range []struct {
		p *Player
		c *fakeConn
	}{{p1, c1}, {p2, c2}} {
		go func(p *Player, c *fakeConn) {
			for i := 0; i < len(qz.Questions); i++ {
				select {
				case <-c.questions:
					sess.HandleAnswer(p, 1)
				case <-time.After(5 * time.Second):
					return
				}
			}
		}(pc.p, pc.c)
	}

	var finals [][]int
	for _, c := range []*fakeConn{c1, c2} {
		select {
		case payload := <-c.gameOver:
			finals = append(finals, payload.Scores)
		case <-time.After(10 * time.Second):
			t.Fatal("game did not finish")
		}
	}

	// Round 0 (individual): one player takes the bonus slot (200), the
	// other scores base points (100). Round 1 (team): each single-member
	// team is fully correct, doubling the 100 points.
	got := append([]int(nil), finals[0]...)
	sort.Ints(got)
	want := []int{300, 400}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("final scores = %v, want %v in some order", finals[0], want)
	}

	// Teardown closes every connection and removes the session from the
	// registry; both happen just after the GAME_OVER broadcast.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, resolvable := reg.Resolve(code)
		if !resolvable && c1.isClosed() && c2.isClosed() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("teardown incomplete: resolvable=%v closed=%v/%v",
				resolvable, c1.isClosed(), c2.isClosed())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
