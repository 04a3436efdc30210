package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocks(t *testing.T) {
	t.Run("Second holder waits for the first", func(t *testing.T) {
		// Given: a session locked by one caller
		var locks sessionLocks
		unlock := locks.lock("s1")

		// When: another caller asks for the same session
		acquired := make(chan func())
		go func() {
			acquired <- locks.lock("s1")
		}()

		// Then: it only gets the lock after the first one lets go
		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(50 * time.Millisecond):
		}

		assert.Equal(t, 1, locks.count())

		unlock()
		second := <-acquired
		second()

		assert.Equal(t, 0, locks.count())
	})

	t.Run("Different sessions do not block each other", func(t *testing.T) {
		var locks sessionLocks

		unlockA := locks.lock("a")
		unlockB := locks.lock("b")

		assert.Equal(t, 2, locks.count())

		unlockA()
		unlockB()

		assert.Equal(t, 0, locks.count())
	})
}
