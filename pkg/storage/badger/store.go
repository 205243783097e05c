// Package badger persists resource dead properties in a BadgerDB
// key-value store. Keys are namespaced by resource URL and property
// name, so one database serves the whole hierarchy.
package badger

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// Store is a badger-backed dead-property store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the property database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty for our output

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open property store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ForResource returns the property set of one resource. The returned set
// shares the store's database; transactions scope each operation.
func (s *Store) ForResource(url string) acl.PropertySet {
	return &propertySet{db: s.db, url: url}
}

// propKey builds the storage key for one property of one resource. URL
// and name components are joined with NUL, which cannot occur in either.
func propKey(url string, name acl.PropertyName) []byte {
	key := make([]byte, 0, len("prop")+len(url)+len(name.Namespace)+len(name.Local)+4)
	key = append(key, "prop\x00"...)
	key = append(key, url...)
	key = append(key, 0)
	key = append(key, name.Namespace...)
	key = append(key, 0)
	key = append(key, name.Local...)
	return key
}
