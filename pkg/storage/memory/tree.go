// Package memory provides an in-memory resource tree and dead-property
// store. It backs tests and the development server; durable deployments
// pair the tree with the badger property backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// PropertyFactory supplies the dead-property store for a resource URL.
// The default factory keeps properties in process memory.
type PropertyFactory func(url string) acl.PropertySet

// Tree is an in-memory resource hierarchy implementing acl.Resolver.
//
// Structure mutations (Add*, SetAccessDisabled) are guarded by a mutex
// and safe for concurrent use with resolution.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*node
	props PropertyFactory
}

// Option configures a Tree.
type Option func(*Tree)

// WithPropertyFactory stores dead properties through an external backend
// instead of process memory.
func WithPropertyFactory(f PropertyFactory) Option {
	return func(t *Tree) { t.props = f }
}

// NewTree returns a tree containing only the root collection "/".
func NewTree(opts ...Option) *Tree {
	t := &Tree{nodes: make(map[string]*node)}
	for _, opt := range opts {
		opt(t)
	}
	if t.props == nil {
		t.props = func(string) acl.PropertySet { return NewPropertySet() }
	}
	t.nodes["/"] = &node{
		tree:       t,
		url:        "/",
		collection: true,
		props:      t.props("/"),
	}
	return t
}

type node struct {
	tree       *Tree
	url        string
	collection bool
	class      acl.PrivilegeClass
	disabled   bool
	props      acl.PropertySet

	// principal state; empty principalURL means not a principal
	principalURL string
	members      []string
}

// AddCollection adds a collection resource at url.
func (t *Tree) AddCollection(url string, class acl.PrivilegeClass) error {
	return t.add(&node{url: url, collection: true, class: class})
}

// AddResource adds a non-collection resource at url.
func (t *Tree) AddResource(url string, class acl.PrivilegeClass) error {
	return t.add(&node{url: url, class: class})
}

// AddPrincipal adds a principal resource at url. members, if any, are the
// principal URLs of the group's direct members.
func (t *Tree) AddPrincipal(url string, members ...string) error {
	return t.add(&node{
		url:          url,
		principalURL: url,
		members:      append([]string(nil), members...),
	})
}

// SetAccessDisabled marks access control disabled for the resource.
func (t *Tree) SetAccessDisabled(url string, disabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[url]
	if !ok {
		return fmt.Errorf("memory: no resource at %s", url)
	}
	n.disabled = disabled
	return nil
}

// SetMembers replaces the direct members of a principal resource.
func (t *Tree) SetMembers(url string, members ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[url]
	if !ok || n.principalURL == "" {
		return fmt.Errorf("memory: no principal at %s", url)
	}
	n.members = append([]string(nil), members...)
	return nil
}

func (t *Tree) add(n *node) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.nodes[n.url]; exists {
		return fmt.Errorf("memory: resource already exists at %s", n.url)
	}
	n.tree = t
	n.props = t.props(n.url)
	t.nodes[n.url] = n
	return nil
}

// Resolve implements acl.Resolver. Unknown URLs resolve to (nil, nil).
func (t *Tree) Resolve(ctx context.Context, url string) (acl.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[url]
	if !ok {
		return nil, nil
	}
	return n.resource(), nil
}

// Children implements acl.Resolver. Members are returned in URL order so
// walks are deterministic.
func (t *Tree) Children(ctx context.Context, res acl.Resource) ([]acl.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []acl.Resource
	for url, n := range t.nodes {
		if url != "/" && parentOf(url) == res.URL() {
			out = append(out, n.resource())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL() < out[j].URL() })
	return out, nil
}

func parentOf(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			if i == 0 {
				return "/"
			}
			return url[:i]
		}
	}
	return ""
}

// resource returns the node under its public interface type: principal
// nodes expose the acl.PrincipalResource extension, plain nodes do not.
func (n *node) resource() acl.Resource {
	if n.principalURL != "" {
		return (*principalNode)(n)
	}
	return n
}

func (n *node) URL() string                        { return n.url }
func (n *node) IsCollection() bool                 { return n.collection }
func (n *node) PrivilegeClass() acl.PrivilegeClass { return n.class }
func (n *node) Properties() acl.PropertySet        { return n.props }
func (n *node) AccessDisabled() bool               { return n.disabled }
func (n *node) PrincipalCollections() []string     { return []string{"/principals"} }

// principalNode is a node exposed as a principal resource.
type principalNode node

func (p *principalNode) URL() string                        { return p.url }
func (p *principalNode) IsCollection() bool                 { return p.collection }
func (p *principalNode) PrivilegeClass() acl.PrivilegeClass { return p.class }
func (p *principalNode) Properties() acl.PropertySet        { return p.props }
func (p *principalNode) AccessDisabled() bool               { return p.disabled }
func (p *principalNode) PrincipalCollections() []string     { return []string{"/principals"} }

func (p *principalNode) PrincipalURL() string { return p.principalURL }

// ContainsPrincipal reports whether principalURL is a direct or
// transitive member of this principal. Membership cycles terminate.
func (p *principalNode) ContainsPrincipal(ctx context.Context, principalURL string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.tree.mu.RLock()
	defer p.tree.mu.RUnlock()

	visited := make(map[string]bool)
	queue := append([]string(nil), p.members...)
	for len(queue) > 0 {
		member := queue[0]
		queue = queue[1:]
		if visited[member] {
			continue
		}
		visited[member] = true

		if member == principalURL {
			return true, nil
		}
		if n, ok := p.tree.nodes[member]; ok && n.principalURL != "" {
			queue = append(queue, n.members...)
		}
	}
	return false, nil
}
