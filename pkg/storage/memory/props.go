package memory

import (
	"context"
	"sync"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// PropertySet is an in-memory acl.PropertySet.
type PropertySet struct {
	mu    sync.RWMutex
	props map[acl.PropertyName][]byte
}

// NewPropertySet returns an empty in-memory property set.
func NewPropertySet() *PropertySet {
	return &PropertySet{props: make(map[acl.PropertyName][]byte)}
}

// Get implements acl.PropertySet.
func (s *PropertySet) Get(ctx context.Context, name acl.PropertyName) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.props[name]
	if !ok {
		return nil, acl.ErrPropertyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set implements acl.PropertySet.
func (s *PropertySet) Set(ctx context.Context, name acl.PropertyName, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[name] = append([]byte(nil), value...)
	return nil
}

// Delete implements acl.PropertySet.
func (s *PropertySet) Delete(ctx context.Context, name acl.PropertyName) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.props, name)
	return nil
}

// Exists implements acl.PropertySet.
func (s *PropertySet) Exists(ctx context.Context, name acl.PropertyName) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.props[name]
	return ok, nil
}
