package acl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/perchdav/perch/internal/logger"
)

// defaultRootACL is the fallback for a root resource with no stored ACL:
// everyone may read, nothing may write. The entry is protected and
// propagates down the tree.
func defaultRootACL() *ACL {
	return &ACL{ACEs: []ACE{{
		Principal:   All(),
		Privileges:  []Privilege{PrivRead},
		Allow:       true,
		Protected:   true,
		Inheritable: true,
	}}}
}

// defaultACL is the fallback for a non-root resource with no stored ACL:
// no entries of its own, pure inheritance from the parent.
func defaultACL() *ACL {
	return &ACL{}
}

// StoredACL reads the ACL persisted on the resource itself, without
// defaults or inheritance. The second return is false when no ACL has
// been stored yet.
func (e *Engine) StoredACL(ctx context.Context, res Resource) (*ACL, bool, error) {
	raw, err := res.Properties().Get(ctx, PropACL)
	if err == ErrPropertyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read stored acl for %s: %w", res.URL(), err)
	}
	var acl ACL
	if err := json.Unmarshal(raw, &acl); err != nil {
		return nil, false, fmt.Errorf("decode stored acl for %s: %w", res.URL(), err)
	}
	return &acl, true, nil
}

// SetACL unconditionally replaces the resource's stored ACL. It bypasses
// the ACL method preconditions and is intended for provisioning and other
// internal callers; client writes go through MergeACL.
func (e *Engine) SetACL(ctx context.Context, res Resource, acl *ACL) error {
	raw, err := json.Marshal(acl)
	if err != nil {
		return fmt.Errorf("encode acl for %s: %w", res.URL(), err)
	}
	if err := res.Properties().Set(ctx, PropACL, raw); err != nil {
		return fmt.Errorf("store acl for %s: %w", res.URL(), err)
	}
	return nil
}

// EffectiveACL computes the resource's effective ACL: its stored ACL (or
// class default), followed by the entries inherited from its ancestors.
// Own entries precede inherited ones, so they take precedence in
// evaluation order.
//
// Returns nil with no error when access control is disabled for the
// resource; callers must treat a nil ACL as "no computable policy" and
// deny.
func (e *Engine) EffectiveACL(ctx context.Context, res Resource) (*ACL, error) {
	return e.effectiveACL(ctx, res, true, false, nil)
}

// EffectiveACLWithInherited is EffectiveACL with the inherited entries
// precomputed by InheritedACEsForChildren, avoiding one ancestor walk per
// child when a whole collection is being checked.
func (e *Engine) EffectiveACLWithInherited(ctx context.Context, res Resource, inherited []ACE) (*ACL, error) {
	return e.effectiveACL(ctx, res, true, false, inherited)
}

// effectiveACL is the inheritance expansion. When expanding is true the
// result keeps the private Inheritable markers so that a parent's result
// can seed its children's; a non-expanding read strips them before
// returning.
func (e *Engine) effectiveACL(
	ctx context.Context,
	res Resource,
	inheritance bool,
	expanding bool,
	inherited []ACE,
) (*ACL, error) {
	if res.AccessDisabled() {
		return nil, nil
	}

	acl, ok, err := e.StoredACL(ctx, res)
	if err != nil {
		return nil, err
	}
	if !ok {
		if res.URL() == "/" {
			acl = defaultRootACL()
		} else {
			acl = defaultACL()
		}
	}

	aces := append([]ACE(nil), acl.ACEs...)

	if inheritance {
		switch {
		case inherited != nil:
			aces = append(aces, inherited...)

		case parentURL(res.URL()) != "":
			parentAces, disabled, err := e.inheritedACEs(ctx, res.URL(), parentURL(res.URL()))
			if err != nil {
				return nil, err
			}
			if disabled {
				// Disabled anywhere up the chain disables the whole branch.
				return nil, nil
			}
			aces = append(aces, parentAces...)
		}

		if !expanding {
			for i := range aces {
				aces[i].Inheritable = false
			}
		}
	}

	return &ACL{ACEs: aces}, nil
}

// inheritedACEs resolves the parent resource and derives the entries a
// child at childURL inherits from it. The parent's own effective ACL is
// computed in expanding mode so inheritable markers survive the recursion.
func (e *Engine) inheritedACEs(ctx context.Context, childURL, parent string) (aces []ACE, disabled bool, err error) {
	parentRes, err := e.resolver.Resolve(ctx, parent)
	if err != nil {
		return nil, false, fmt.Errorf("resolve parent %s of %s: %w", parent, childURL, err)
	}
	if parentRes == nil {
		return nil, false, nil
	}

	parentACL, err := e.effectiveACL(ctx, parentRes, true, true, nil)
	if err != nil {
		return nil, false, err
	}
	if parentACL == nil {
		return nil, true, nil
	}

	return deriveInherited(parentACL.ACEs, parent), false, nil
}

// deriveInherited transforms a parent's expanded ACEs into the form a
// child inherits: already-inherited entries pass through unchanged, and
// inheritable entries become inherited copies naming their source.
// The result is always non-nil so callers can distinguish "no inherited
// entries" from "not precomputed".
func deriveInherited(parentAces []ACE, parent string) []ACE {
	out := make([]ACE, 0, len(parentAces))
	for _, ace := range parentAces {
		switch {
		case ace.Inherited != "":
			out = append(out, ace)
		case ace.Inheritable:
			derived := ace
			derived.Privileges = append([]Privilege(nil), ace.Privileges...)
			derived.Inheritable = false
			derived.Inherited = parent
			out = append(out, derived)
		}
	}
	return out
}

// InheritedACEsForChildren precomputes the entries that children of res
// will inherit, so a directory listing can share one ancestor walk across
// every child instead of resolving the chain per child.
//
// Returns (nil, true, nil) when access control is disabled on res or an
// ancestor.
func (e *Engine) InheritedACEsForChildren(ctx context.Context, res Resource) (aces []ACE, disabled bool, err error) {
	acl, err := e.effectiveACL(ctx, res, true, true, nil)
	if err != nil {
		return nil, false, err
	}
	if acl == nil {
		return nil, true, nil
	}
	return deriveInherited(acl.ACEs, res.URL()), false, nil
}

// InheritedACLSet returns the distinct ancestor URLs from which entries
// in the resource's effective ACL were inherited, in first-appearance
// order. This backs the DAV:inherited-acl-set protocol property.
func (e *Engine) InheritedACLSet(ctx context.Context, res Resource) ([]string, error) {
	acl, err := e.EffectiveACL(ctx, res)
	if err != nil {
		return nil, err
	}
	if acl == nil {
		return nil, nil
	}

	var urls []string
	seen := make(map[string]bool)
	for _, ace := range acl.ACEs {
		if ace.Inherited == "" || seen[ace.Inherited] {
			continue
		}
		seen[ace.Inherited] = true
		urls = append(urls, ace.Inherited)
	}
	return urls, nil
}

func logACLDisabled(url string) {
	logger.Debug("access control disabled, denying", "resource", url)
}
