// Package storetest holds the behaviour every ProfileStore driver must share.
package storetest

import (
	"context"
	"testing"

	"github.com/edulytics/portal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProfileStoreContract exercises a fresh, empty store
func RunProfileStoreContract(t *testing.T, store repositories.ProfileStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		v, ok, err := store.Get(ctx, "p-missing", repositories.KeyUserSession)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "p1", repositories.KeyAdminToken, "tok-1"))
		v, ok, err := store.Get(ctx, "p1", repositories.KeyAdminToken)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok-1", v)

		require.NoError(t, store.Set(ctx, "p1", repositories.KeyAdminToken, "tok-2"))
		v, _, err = store.Get(ctx, "p1", repositories.KeyAdminToken)
		require.NoError(t, err)
		assert.Equal(t, "tok-2", v)
	})

	t.Run("profiles are isolated", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "p2", repositories.KeyLanguage, "hindi"))
		_, ok, err := store.Get(ctx, "p3", repositories.KeyLanguage)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set many and delete", func(t *testing.T) {
		require.NoError(t, store.SetMany(ctx, "p4", map[string]string{
			repositories.KeyAdminUser:  `{"id":"1"}`,
			repositories.KeyAdminToken: "tok",
			repositories.KeyRegion:     "Kenya",
		}))

		require.NoError(t, store.Delete(ctx, "p4", repositories.AdminSessionKeys()...))
		for _, k := range repositories.AdminSessionKeys() {
			_, ok, err := store.Get(ctx, "p4", k)
			require.NoError(t, err)
			assert.False(t, ok, k)
		}

		v, ok, err := store.Get(ctx, "p4", repositories.KeyRegion)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Kenya", v)
	})

	t.Run("delete missing is a no-op", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "p-none", repositories.UserSessionKeys()...))
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, store.HealthCheck(ctx))
	})
}
