package chat

// Transcript is the ordered, append-only history of a session. It always starts with the
// greeting turn.
type Transcript struct {
	greeting string
	turns    []Turn
}

// NewTranscript returns a transcript holding only the greeting.
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{greeting: greeting}
	t.Reset()
	return t
}

// Append adds a committed turn at the end of the history.
func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Turns returns a copy of the history in chronological order.
func (t *Transcript) Turns() []Turn {
	copied := make([]Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Len reports the number of committed turns, greeting included.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Reset drops every turn and starts over from the greeting.
func (t *Transcript) Reset() {
	t.turns = make([]Turn, 0, 16)
	t.turns = append(t.turns, AssistantTurn(t.greeting))
}
