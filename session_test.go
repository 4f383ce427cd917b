package contextkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/contextkit/message"
)

func TestSessionRegistry(t *testing.T) {
	t.Run("GetOrCreate returns the same manager per session", func(t *testing.T) {
		r := NewSessionRegistry(testConfig())

		a := r.GetOrCreate("session-a")
		b := r.GetOrCreate("session-a")
		assert.Same(t, a, b)
	})

	t.Run("Sessions do not share history", func(t *testing.T) {
		r := NewSessionRegistry(testConfig())

		r.GetOrCreate("session-a").AddMessage(message.User("only in a"))
		other := r.GetOrCreate("session-b")
		assert.Empty(t, other.History())
	})

	t.Run("NewSession generates unique ids", func(t *testing.T) {
		r := NewSessionRegistry(testConfig())

		idA, mgrA := r.NewSession()
		idB, mgrB := r.NewSession()

		require.NotEmpty(t, idA)
		assert.NotEqual(t, idA, idB)
		assert.NotSame(t, mgrA, mgrB)
		assert.Equal(t, 2, r.Len())
	})

	t.Run("Remove drops the session", func(t *testing.T) {
		r := NewSessionRegistry(testConfig())

		r.GetOrCreate("session-a").AddMessage(message.User("kept around"))
		r.Remove("session-a")
		assert.Equal(t, 0, r.Len())

		// A new manager comes back empty.
		assert.Empty(t, r.GetOrCreate("session-a").History())
	})
}
