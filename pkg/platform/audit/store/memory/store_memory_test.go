package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("query returns newest first", func(t *testing.T) {
		store := NewInMemoryStore()
		for _, action := range []audit.Action{audit.ActionLogin, audit.ActionAddPatient, audit.ActionEditPatient} {
			require.NoError(t, store.Append(ctx, &audit.Entry{Action: action, Timestamp: time.Now()}))
		}

		entries, err := store.Query(ctx, audit.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, audit.ActionEditPatient, entries[0].Action)
		assert.Equal(t, audit.ActionLogin, entries[2].Action)
		assert.Greater(t, entries[0].ID, entries[1].ID)
		assert.Greater(t, entries[1].ID, entries[2].ID)
	})

	t.Run("filters by role and action", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Append(ctx, &audit.Entry{ActorRole: domain.RoleAdmin, Action: audit.ActionAddPatient}))
		require.NoError(t, store.Append(ctx, &audit.Entry{ActorRole: domain.RoleReceptionist, Action: audit.ActionAddPatient}))
		require.NoError(t, store.Append(ctx, &audit.Entry{ActorRole: domain.RoleReceptionist, Action: audit.ActionLogin}))

		role := domain.RoleReceptionist
		entries, err := store.Query(ctx, audit.Filter{Role: &role, ActionContains: "ADD"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.LogID(2), entries[0].ID)
	})

	t.Run("concurrent appends get unique increasing ids", func(t *testing.T) {
		store := NewInMemoryStore()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Append(ctx, &audit.Entry{Action: audit.ActionLogin}))
			}()
		}
		wg.Wait()

		entries, err := store.Query(ctx, audit.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 50)
		seen := make(map[domain.LogID]bool)
		for i, e := range entries {
			assert.False(t, seen[e.ID])
			seen[e.ID] = true
			if i > 0 {
				assert.Less(t, e.ID, entries[i-1].ID)
			}
		}
	})

	t.Run("appended entries cannot be changed through the caller's pointer", func(t *testing.T) {
		store := NewInMemoryStore()
		e := &audit.Entry{Action: audit.ActionLogin, Details: "original"}
		require.NoError(t, store.Append(ctx, e))
		e.Details = "tampered"

		entries, err := store.Query(ctx, audit.Filter{})
		require.NoError(t, err)
		assert.Equal(t, "original", entries[0].Details)
	})
}
