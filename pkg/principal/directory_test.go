package principal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchdav/perch/pkg/dav/acl"
	"github.com/perchdav/perch/pkg/storage/memory"
)

func newDirectory(t *testing.T) (*Directory, *memory.Tree) {
	t.Helper()
	tree := memory.NewTree()
	dir, err := NewDirectory(tree)
	require.NoError(t, err)
	return dir, tree
}

func TestDirectory_AddUserAndAuthenticate(t *testing.T) {
	dir, tree := newDirectory(t)

	url, err := dir.AddUser("alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "/principals/users/alice", url)

	// The user is a resolvable principal resource.
	res, err := tree.Resolve(context.Background(), url)
	require.NoError(t, err)
	pr, ok := res.(acl.PrincipalResource)
	require.True(t, ok)
	assert.Equal(t, url, pr.PrincipalURL())

	got, ok := dir.Authenticate("alice", "correct horse battery")
	assert.True(t, ok)
	assert.Equal(t, url, got)

	_, ok = dir.Authenticate("alice", "wrong")
	assert.False(t, ok)

	_, ok = dir.Authenticate("nobody", "correct horse battery")
	assert.False(t, ok)
}

func TestDirectory_DuplicateUser(t *testing.T) {
	dir, _ := newDirectory(t)

	_, err := dir.AddUser("alice", "password one")
	require.NoError(t, err)

	_, err = dir.AddUser("alice", "password two")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestDirectory_Groups(t *testing.T) {
	dir, tree := newDirectory(t)
	ctx := context.Background()

	aliceURL, err := dir.AddUser("alice", "password one")
	require.NoError(t, err)

	groupURL, err := dir.AddGroup("staff", aliceURL)
	require.NoError(t, err)
	assert.Equal(t, "/principals/groups/staff", groupURL)

	res, err := tree.Resolve(ctx, groupURL)
	require.NoError(t, err)
	group := res.(acl.PrincipalResource)

	member, err := group.ContainsPrincipal(ctx, aliceURL)
	require.NoError(t, err)
	assert.True(t, member)

	require.NoError(t, dir.SetMembers("staff"))
	member, err = group.ContainsPrincipal(ctx, aliceURL)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens, err := NewTokenService("0123456789abcdef0123456789abcdef", "perch", time.Minute)
	require.NoError(t, err)

	raw, err := tokens.Issue("/principals/users/alice")
	require.NoError(t, err)

	subject, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "/principals/users/alice", subject)
}

func TestTokenService_RejectsTampering(t *testing.T) {
	tokens, err := NewTokenService("0123456789abcdef0123456789abcdef", "perch", time.Minute)
	require.NoError(t, err)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A token signed with a different secret fails verification.
	other, err := NewTokenService("fedcba9876543210fedcba9876543210", "perch", time.Minute)
	require.NoError(t, err)
	raw, err := other.Issue("/principals/users/alice")
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_SecretLength(t *testing.T) {
	_, err := NewTokenService("short", "perch", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidSecretLength)
}
