package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Serializes_Same_Key(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	const goroutines = 50
	const increments = 100
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				locks.Lock("message-1")
				counter++
				locks.Unlock("message-1")
			}
		}()
	}
	wg.Wait()

	// Mutual exclusion per key: no increment was lost
	req.Equal(goroutines*increments, counter)
}

func TestKeyedMutex_Entries_Are_Cleaned_Up(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%5))
			locks.Lock(key)
			locks.Unlock(key)
		}(i)
	}
	wg.Wait()

	// Then the internal map holds nothing once all holders released
	locks.mu.Lock()
	defer locks.mu.Unlock()
	req.Empty(locks.locks)
}

func TestKeyedMutex_Unlock_Unheld_Key_Panics(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	req.Panics(func() {
		locks.Unlock("never-locked")
	})
}
