package skillet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecutionLog(t *testing.T) {
	log := NewExecutionLog()
	log.Append("one")
	log.sink("echo")("two")

	require.Equal(t, []string{"one", "two"}, log.Lines())
	require.Equal(t, 2, log.Len())
	entries := log.Entries()
	require.Empty(t, entries[0].Skill)
	require.Equal(t, "echo", entries[1].Skill)

	log.Clear()
	require.Zero(t, log.Len())
}

func TestExecutionLogConcurrentAppends(t *testing.T) {
	log := NewExecutionLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append("x")
		}()
	}
	wg.Wait()
	require.Equal(t, 50, log.Len())
}
