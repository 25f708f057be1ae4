//go:build linux

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestEpollRoundTrip exercises the real Linux backend against a connected
// socketpair: one side is registered for In, the write end primed with data.
func TestEpollRoundTrip(t *testing.T) {
	mux, err := New()
	require.NoError(t, err)
	defer mux.Close()

	fds, err := newSocketpair()
	require.NoError(t, err)
	defer closeFDs(fds)

	require.NoError(t, mux.Add(fds[0], In))

	_, err = writeFD(fds[1], []byte("hi"))
	require.NoError(t, err)

	events := make([]Event, 4)
	n, err := mux.Wait(events, 2*time.Second)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)
	require.Equal(t, fds[0], events[0].FD)
	require.NotZero(t, events[0].Flags&In)
}
