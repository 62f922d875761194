package protocol

import (
	"encoding/json"
	"fmt"
)

// MsgType identifies a wire message kind.
type MsgType string

const (
	MsgTypeLogin       MsgType = "LOGIN"
	MsgTypeLoginOK     MsgType = "LOGIN_OK"
	MsgTypeLoginError  MsgType = "LOGIN_ERROR"
	MsgTypeNewQuestion MsgType = "NEW_QUESTION"
	MsgTypeSendAnswer  MsgType = "SEND_ANSWER"
	MsgTypeUpdateScore MsgType = "UPDATE_SCORE"
	MsgTypeGameOver    MsgType = "GAME_OVER"
)

// Envelope is the frame exchanged on every connection: a message kind plus
// a kind-specific payload.
type Envelope struct {
	Type MsgType         `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LoginPayload is the first (and only) message a client may open with.
// TeamID is advisory: team membership is assigned by join order.
type LoginPayload struct {
	SessionCode string `json:"session_code"`
	TeamID      string `json:"team_id"`
	DisplayName string `json:"display_name"`
}

// LoginOKPayload acknowledges a successful login.
type LoginOKPayload struct {
	Welcome string `json:"welcome"`
	Team    int    `json:"team"`
}

// LoginErrorPayload carries the human-readable rejection reason.
type LoginErrorPayload struct {
	Reason string `json:"reason"`
}

// NewQuestionPayload broadcasts a question. The answer key is withheld.
type NewQuestionPayload struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// SendAnswerPayload carries a 1-based option index against the most
// recently broadcast question.
type SendAnswerPayload struct {
	Option int `json:"option"`
}

// ScorePayload carries team standings, used by both UPDATE_SCORE and
// GAME_OVER. Scores is indexed by team, Summary is renderable text.
type ScorePayload struct {
	Scores  []int  `json:"scores"`
	Summary string `json:"summary"`
}

// NewEnvelope wraps a payload into an envelope of the given kind.
func NewEnvelope(t MsgType, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Data: data}, nil
}

// MustEnvelope is NewEnvelope for payloads that cannot fail to marshal.
func MustEnvelope(t MsgType, payload interface{}) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// ParsePayload decodes an envelope's payload into the struct matching its
// kind. Unknown kinds return nil with no error so callers can ignore them.
func ParsePayload(env Envelope) (interface{}, error) {
	switch env.Type {
	case MsgTypeLogin:
		var p LoginPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgTypeLoginOK:
		var p LoginOKPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgTypeLoginError:
		var p LoginErrorPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgTypeNewQuestion:
		var p NewQuestionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgTypeSendAnswer:
		var p SendAnswerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MsgTypeUpdateScore, MsgTypeGameOver:
		var p ScorePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, nil
	}
}
