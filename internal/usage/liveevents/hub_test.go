package liveevents

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	hub := NewHub()
	hub.Publish("42", LiveEvent{KeyID: "1"})

	sub, backlog, err := hub.Subscribe("42")
	require.NoError(t, err)
	defer sub.Close()
	require.Empty(t, backlog)
}

func TestSubscribeReceivesBacklogAndLiveEvents(t *testing.T) {
	hub := NewHub()

	first, _, err := hub.Subscribe("42")
	require.NoError(t, err)
	defer first.Close()

	hub.Publish("42", LiveEvent{KeyID: "1", StatusCode: 200})
	hub.Publish("7", LiveEvent{KeyID: "9", StatusCode: 200})

	select {
	case event := <-first.Events():
		require.Equal(t, "1", event.KeyID)
	case <-time.After(time.Second):
		t.Fatalf("expected live event")
	}

	second, backlog, err := hub.Subscribe("42")
	require.NoError(t, err)
	defer second.Close()
	require.Len(t, backlog, 1)
	require.Equal(t, 200, backlog[0].StatusCode)
}

func TestBacklogIsBounded(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("42")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < DefaultBufferSize+10; i++ {
		hub.Publish("42", LiveEvent{StatusCode: i})
	}

	_, backlog, err := hub.Subscribe("42")
	require.NoError(t, err)
	require.Len(t, backlog, DefaultBufferSize)
	require.Equal(t, 10, backlog[0].StatusCode)
}

func TestCloseRemovesStream(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("42")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	require.Empty(t, hub.streams)
}

func TestSubscribeValidation(t *testing.T) {
	var nilHub *Hub
	_, _, err := nilHub.Subscribe("42")
	require.ErrorIs(t, err, ErrUnavailable)

	_, _, err = NewHub().Subscribe("  ")
	require.ErrorIs(t, err, ErrInvalidOwner)
}

func TestSubscribeDuringConcurrentCloseStaysRegistered(t *testing.T) {
	hub := NewHub()

	for i := 0; i < 200; i++ {
		churn, _, err := hub.Subscribe("42")
		require.NoError(t, err)

		var (
			wg     sync.WaitGroup
			sub    *Subscription
			subErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			churn.Close()
		}()
		go func() {
			defer wg.Done()
			sub, _, subErr = hub.Subscribe("42")
		}()
		wg.Wait()
		require.NoError(t, subErr)

		hub.Publish("42", LiveEvent{StatusCode: i})
		select {
		case event := <-sub.Events():
			require.Equal(t, i, event.StatusCode)
		case <-time.After(time.Second):
			t.Fatalf("iteration %d: subscriber missed event", i)
		}
		sub.Close()
	}
}
