package updater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackerExpectAndClear(t *testing.T) {
	tr := NewTracker(time.Minute)
	now := time.Now()

	tr.Expect("peerA", CategoryPollContent, 1, now)
	require.Equal(t, 1, tr.Count("peerA", CategoryPollContent))

	tr.Clear("peerA", CategoryPollContent)
	require.Equal(t, 0, tr.Count("peerA", CategoryPollContent))
}

func TestTrackerDecrementClampsAtZero(t *testing.T) {
	tr := NewTracker(time.Minute)
	now := time.Now()

	tr.Expect("peerA", CategoryContent, 2, now)

	require.Equal(t, 1, tr.Decrement("peerA", CategoryContent))
	require.Equal(t, 0, tr.Decrement("peerA", CategoryContent))

	// A late, unexpected reply must not go negative.
	require.Equal(t, 0, tr.Decrement("peerA", CategoryContent))
}

func TestTrackerDropPeerClearsAllCategories(t *testing.T) {
	tr := NewTracker(time.Minute)
	now := time.Now()

	tr.Expect("peerA", CategoryPollContent, 1, now)
	tr.Expect("peerA", CategoryIBLT, 1, now)

	tr.DropPeer("peerA")

	require.Equal(t, 0, tr.Count("peerA", CategoryPollContent))
	require.Equal(t, 0, tr.Count("peerA", CategoryIBLT))
}

func TestTrackerCheckExpired(t *testing.T) {
	tr := NewTracker(time.Second)
	now := time.Now()

	tr.Expect("peerA", CategoryPollContent, 1, now)
	tr.Expect("peerB", CategoryIBLT, 1, now)

	// Not yet expired.
	expired := tr.CheckExpired(now.Add(500 * time.Millisecond))
	require.Empty(t, expired)

	expired = tr.CheckExpired(now.Add(2 * time.Second))
	require.Len(t, expired, 2)

	// Expired entries are cleared, including the peer maps.
	require.Equal(t, 0, tr.Count("peerA", CategoryPollContent))
	require.Equal(t, 0, tr.Count("peerB", CategoryIBLT))
}

func TestTrackerCheckExpiredLeavesFreshEntries(t *testing.T) {
	tr := NewTracker(time.Second)
	now := time.Now()

	tr.Expect("peerA", CategoryPollContent, 1, now)
	tr.Expect("peerA", CategoryIBLT, 1, now.Add(2*time.Second))

	expired := tr.CheckExpired(now.Add(1500 * time.Millisecond))
	require.Len(t, expired, 1)
	require.Equal(t, CategoryPollContent, expired[0].Category)

	// The later expectation is untouched.
	require.Equal(t, 1, tr.Count("peerA", CategoryIBLT))
}
