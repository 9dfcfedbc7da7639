package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/trustlayer/internal/models"
)

func TestFixturesSeededPerProvider(t *testing.T) {
	s := NewStore()
	for _, p := range Providers {
		e, ok, err := s.GetThread(p, "thread-scam")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "partner@angel-syndicate.test", e.From)

		_, ok, err = s.GetThread(p, "thread-clean")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, []string{"thread-clean", "thread-scam"}, s.ThreadIDs("google"))
}

func TestGetThreadUnknown(t *testing.T) {
	s := NewStore()
	_, ok, err := s.GetThread("google", "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.GetThread("yahoo", "thread-clean")
	assert.Error(t, err)
}

func TestPutThreadFillsIdentifiers(t *testing.T) {
	s := NewStore()
	id, err := s.PutThread("microsoft", models.StoredEmail{From: "a@b.test", Body: "hi"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	e, ok, err := s.GetThread("microsoft", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, e.MessageID)
	assert.False(t, e.ReceivedAt.IsZero())

	// not visible to the other provider
	_, ok, _ = s.GetThread("google", id)
	assert.False(t, ok)

	_, err = s.PutThread("microsoft", models.StoredEmail{Body: "no sender"})
	assert.Error(t, err)
}

func TestAddThreads(t *testing.T) {
	s := NewStore()
	ids, err := s.AddThreads("google", 4)
	require.NoError(t, err)
	require.Len(t, ids, 4)
	assert.Equal(t, "thread-1", ids[0])

	for _, id := range ids {
		e, ok, err := s.GetThread("google", id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEmpty(t, e.Headers["Authentication-Results"])
		assert.GreaterOrEqual(t, e.MessageCount, 1)
	}
	assert.Len(t, s.ThreadIDs("google"), 6)

	_, err = s.AddThreads("google", 0)
	assert.Error(t, err)
}
