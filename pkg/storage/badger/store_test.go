package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchdav/perch/pkg/dav/acl"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestPropertySet_RoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	props := store.ForResource("/cal")
	name := acl.PropACL

	_, err := props.Get(ctx, name)
	assert.ErrorIs(t, err, acl.ErrPropertyNotFound)

	require.NoError(t, props.Set(ctx, name, []byte(`{"aces":[]}`)))

	got, err := props.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, `{"aces":[]}`, string(got))

	exists, err := props.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, props.Delete(ctx, name))
	_, err = props.Get(ctx, name)
	assert.ErrorIs(t, err, acl.ErrPropertyNotFound)
}

func TestPropertySet_ResourceIsolation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	name := acl.PropACL

	require.NoError(t, store.ForResource("/a").Set(ctx, name, []byte("a")))
	require.NoError(t, store.ForResource("/b").Set(ctx, name, []byte("b")))

	got, err := store.ForResource("/a").Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	// Similar urls and property names must not collide in the key space.
	other := acl.PropertyName{Namespace: acl.PerchPrivateNamespace, Local: "ac"}
	_, err = store.ForResource("/a").Get(ctx, other)
	assert.ErrorIs(t, err, acl.ErrPropertyNotFound)
}

func TestPropertySet_DeleteAbsent(t *testing.T) {
	store := openStore(t)
	assert.NoError(t, store.ForResource("/a").Delete(context.Background(), acl.PropACL))
}

func TestPropertySet_ContextCancelled(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ForResource("/a").Get(ctx, acl.PropACL)
	assert.ErrorIs(t, err, context.Canceled)
}
