package game

type State string

const (
	StateIdle      State = "idle"
	StateTiming    State = "timing"
	StateResolved  State = "resolved"
	StateCompleted State = "completed"
)

// Known game modes. Any non-empty identifier is accepted as a ledger key.
const (
	ModeFretboardMatch = "fretboard-match"
	ModeChordInput     = "chord-input"
	ModeNoteMatch      = "note-match"
)
