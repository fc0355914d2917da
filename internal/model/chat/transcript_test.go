package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscriptStartsWithGreeting(t *testing.T) {
	tr := NewTranscript("Hi")

	turns := tr.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleAssistant, turns[0].Role)
	assert.Equal(t, "Hi", turns[0].Content)
	assert.NotEmpty(t, turns[0].ID)
}

func TestTranscriptResetDropsHistory(t *testing.T) {
	tr := NewTranscript("Hi")
	for i := 0; i < 5; i++ {
		tr.Append(UserTurn("question"))
		tr.Append(AssistantTurn("answer"))
	}
	require.Equal(t, 11, tr.Len())

	tr.Reset()

	turns := tr.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleAssistant, turns[0].Role)
	assert.Equal(t, "Hi", turns[0].Content)
}

func TestTranscriptTurnsIsACopy(t *testing.T) {
	tr := NewTranscript("Hi")
	tr.Append(UserTurn("A"))

	turns := tr.Turns()
	turns[1].Content = "mutated"

	assert.Equal(t, "A", tr.Turns()[1].Content)
}
