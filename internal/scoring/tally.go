package scoring

// Tally accumulates the points of one play. The zero value is ready to use.
type Tally struct {
	total        int
	last         int
	bonusApplied bool
}

func (t *Tally) Correct(points int) int {
	t.last = points
	t.total += points
	return points
}

// Miss covers wrong answers and time-outs: the round shows zero, the total stays.
func (t *Tally) Miss() {
	t.last = 0
}

// Bonus adds CompletionBonus once and reports whether it did.
func (t *Tally) Bonus() bool {
	if t.bonusApplied {
		return false
	}
	t.bonusApplied = true
	t.total += CompletionBonus
	return true
}

func (t *Tally) Total() int {
	return t.total
}

func (t *Tally) Last() int {
	return t.last
}

func (t *Tally) BonusApplied() bool {
	return t.bonusApplied
}

func (t *Tally) Reset() {
	*t = Tally{}
}
