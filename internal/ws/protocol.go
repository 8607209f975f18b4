package ws

import (
	"encoding/json"

	"github.com/ranne1/guitar-codes/internal/game"
)

// Client -> server: start, answer, bonus, set_name, complete, reset.
// Server -> client: session_state, round_resolved, round_timeout,
// bonus_applied, completed, error.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type AnswerPayload struct {
	Correct bool `json:"correct"`
}

type NamePayload struct {
	PlayerName string `json:"playerName"`
}

type CompletePayload struct {
	PlayerName *string `json:"playerName,omitempty"`
}

type RoundResolvedPayload struct {
	Correct bool                 `json:"correct"`
	Points  int                  `json:"points"`
	Session game.SessionSnapshot `json:"session"`
}

type clientMsg struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
