package address

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	saved []Saved
}

func (m *memRepo) key(userID, line1, city, state, postalCode string) string {
	return userID + "|" + line1 + "|" + city + "|" + state + "|" + postalCode
}

func (m *memRepo) Exists(_ context.Context, userID, line1, city, state, postalCode string) (bool, error) {
	want := m.key(userID, line1, city, state, postalCode)
	for _, a := range m.saved {
		if m.key(a.UserID, a.Line1, a.City, a.State, a.PostalCode) == want {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, a := range m.saved {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Create(_ context.Context, a *Saved) error {
	m.saved = append(m.saved, *a)
	return nil
}

func addr(n int) Saved {
	return Saved{
		Line1:      fmt.Sprintf("Villa %d, Palm Street", n),
		City:       "Dubai",
		State:      "Dubai",
		PostalCode: fmt.Sprintf("%05d", n),
	}
}

func TestSyncSavesNewAddress(t *testing.T) {
	repo := &memRepo{}
	s := NewSynchronizer(repo)

	require.NoError(t, s.Sync(context.Background(), "cust-1", addr(1)))
	require.Len(t, repo.saved, 1)

	got := repo.saved[0]
	assert.Equal(t, "cust-1", got.UserID)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.IsDefault, "opportunistic saves never become default")
}

func TestSyncDeduplicates(t *testing.T) {
	repo := &memRepo{}
	s := NewSynchronizer(repo)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Sync(context.Background(), "cust-1", addr(1)))
	}
	assert.Len(t, repo.saved, 1)
}

func TestSyncCap(t *testing.T) {
	repo := &memRepo{}
	s := NewSynchronizer(repo)

	for i := 0; i < MaxSaved+3; i++ {
		require.NoError(t, s.Sync(context.Background(), "cust-1", addr(i)))
	}
	assert.Len(t, repo.saved, MaxSaved)

	// A repeat of an already-saved address is still a silent no-op at the cap.
	require.NoError(t, s.Sync(context.Background(), "cust-1", addr(0)))
	assert.Len(t, repo.saved, MaxSaved)

	// The cap is per customer.
	require.NoError(t, s.Sync(context.Background(), "cust-2", addr(0)))
	assert.Len(t, repo.saved, MaxSaved+1)
}
