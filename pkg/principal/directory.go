// Package principal manages the server's principal directory: the users
// and groups exposed as principal resources, and the credentials used to
// map an authenticated request onto a principal URL.
package principal

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/perchdav/perch/pkg/dav/acl"
	"github.com/perchdav/perch/pkg/storage/memory"
)

// bcryptCost balances hashing time against login latency.
const bcryptCost = 10

// Collection is the principal collection root advertised by resources.
const Collection = "/principals"

var (
	// ErrUserExists is returned when adding a user whose name is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrGroupExists is returned when adding a group whose name is taken.
	ErrGroupExists = errors.New("group already exists")

	// ErrPasswordTooLong rejects passwords beyond bcrypt's 72-byte input
	// limit, which it would otherwise silently truncate.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

// Directory is the principal directory. Principals live in the resource
// tree under /principals/users and /principals/groups, so the engine can
// resolve and traverse them like any other resource; the directory adds
// the credential store on top.
type Directory struct {
	mu    sync.RWMutex
	tree  *memory.Tree
	users map[string]*user
}

type user struct {
	name         string
	passwordHash string
	principalURL string
}

// NewDirectory builds a directory rooted in tree, creating the principal
// collections if they are absent.
func NewDirectory(tree *memory.Tree) (*Directory, error) {
	for _, url := range []string{Collection, Collection + "/users", Collection + "/groups"} {
		if err := tree.AddCollection(url, acl.ClassGeneric); err != nil {
			return nil, fmt.Errorf("create principal collection %s: %w", url, err)
		}
	}
	return &Directory{tree: tree, users: make(map[string]*user)}, nil
}

// UserURL returns the principal URL a user resource would occupy.
func UserURL(username string) string {
	return Collection + "/users/" + username
}

// GroupURL returns the principal URL a group resource would occupy.
func GroupURL(name string) string {
	return Collection + "/groups/" + name
}

// AddUser creates a user principal and stores its credential. The
// principal URL of the new user is returned.
func (d *Directory) AddUser(username, password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password for %s: %w", username, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.users[username]; taken {
		return "", ErrUserExists
	}

	url := UserURL(username)
	if err := d.tree.AddPrincipal(url); err != nil {
		return "", fmt.Errorf("create principal resource for %s: %w", username, err)
	}
	d.users[username] = &user{name: username, passwordHash: string(hash), principalURL: url}
	return url, nil
}

// AddGroup creates a group principal whose direct members are the given
// principal URLs. The principal URL of the new group is returned.
func (d *Directory) AddGroup(name string, memberURLs ...string) (string, error) {
	url := GroupURL(name)
	if err := d.tree.AddPrincipal(url, memberURLs...); err != nil {
		return "", fmt.Errorf("create group principal %s: %w", name, ErrGroupExists)
	}
	return url, nil
}

// SetMembers replaces the direct members of a group.
func (d *Directory) SetMembers(name string, memberURLs ...string) error {
	return d.tree.SetMembers(GroupURL(name), memberURLs...)
}

// Authenticate verifies a username and password pair. On success it
// returns the principal URL the credential maps to. Unknown users cost a
// hash comparison too, so response timing does not reveal which names
// exist.
func (d *Directory) Authenticate(username, password string) (string, bool) {
	d.mu.RLock()
	u, ok := d.users[username]
	d.mu.RUnlock()

	if !ok {
		bcrypt.CompareHashAndPassword(unknownUserHash, []byte(password))
		return "", false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return "", false
	}
	return u.principalURL, true
}

// unknownUserHash is compared against when the username does not exist.
var unknownUserHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("perch-no-such-user"), bcryptCost)
	if err != nil {
		panic(err)
	}
	return hash
}()
