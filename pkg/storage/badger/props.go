package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// propertySet implements acl.PropertySet on one resource's key range.
type propertySet struct {
	db  *badger.DB
	url string
}

// Get implements acl.PropertySet.
func (p *propertySet) Get(ctx context.Context, name acl.PropertyName) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(propKey(p.url, name))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, acl.ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get property %s on %s: %w", name.Local, p.url, err)
	}
	return value, nil
}

// Set implements acl.PropertySet.
func (p *propertySet) Set(ctx context.Context, name acl.PropertyName, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(propKey(p.url, name), value)
	})
	if err != nil {
		return fmt.Errorf("set property %s on %s: %w", name.Local, p.url, err)
	}
	return nil
}

// Delete implements acl.PropertySet. Deleting an absent key is not an error.
func (p *propertySet) Delete(ctx context.Context, name acl.PropertyName) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(propKey(p.url, name))
	})
	if err != nil {
		return fmt.Errorf("delete property %s on %s: %w", name.Local, p.url, err)
	}
	return nil
}

// Exists implements acl.PropertySet.
func (p *propertySet) Exists(ctx context.Context, name acl.PropertyName) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := p.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(propKey(p.url, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err == nil {
			found = true
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check property %s on %s: %w", name.Local, p.url, err)
	}
	return found, nil
}
