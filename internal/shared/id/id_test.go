package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1.String(), id2.String())
}

func TestGenerateMonotonic(t *testing.T) {
	gen := NewGenerator()

	prev := gen.GenerateString()
	for i := 0; i < 500; i++ {
		next := gen.GenerateString()
		require.Less(t, prev, next, "ULIDs from one generator must sort in creation order")
		prev = next
	}
}

func TestTypedIDs(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"packet", NewPacketID().String(), PacketPrefix},
		{"request", NewRequestID().String(), RequestPrefix},
		{"client", NewClientID().String(), ClientPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.id, tt.prefix+"_"))

			prefix, parsed, err := Split(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, prefix)
			assert.Len(t, parsed.String(), 26)
		})
	}
}

func TestIsValid(t *testing.T) {
	gen := NewGenerator()
	assert.True(t, IsValid(gen.GenerateString()))

	for _, bad := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		assert.False(t, IsValid(bad), bad)
	}
}

func TestSplitRejectsMalformed(t *testing.T) {
	_, _, err := Split("noprefix")
	assert.Error(t, err)

	_, _, err = Split("pkt_notaulid")
	assert.Error(t, err)
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	packet := NewPacketID()
	after := time.Now()

	ts, err := Timestamp(packet.String())
	require.NoError(t, err)

	// millisecond precision
	assert.GreaterOrEqual(t, ts.UnixMilli(), before.UnixMilli())
	assert.LessOrEqual(t, ts.UnixMilli(), after.UnixMilli())
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	ids := make(chan string, goroutines*perGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- gen.GenerateWithPrefix(PacketPrefix)
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}
