package game

import "errors"

var (
	ErrBadState     = errors.New("bad state")
	ErrTimedOut     = errors.New("round timed out")
	ErrBonusApplied = errors.New("completion bonus already applied")
	ErrNoRecorder   = errors.New("no score recorder")
)
