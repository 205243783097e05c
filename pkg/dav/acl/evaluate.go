package acl

import (
	"context"
	"time"
)

// matchPrivilege reports whether requested is satisfied by an ACE naming
// acePrivileges: either literally present, or aggregated under one of
// them in the resource's privilege graph.
func matchPrivilege(requested Privilege, acePrivileges []Privilege, set *PrivilegeSet) bool {
	for _, ap := range acePrivileges {
		if requested == ap || set.IsAggregateOf(ap, requested) {
			return true
		}
	}
	return false
}

// CheckPrivileges checks that the request's actor holds every requested
// privilege on the resource (RFC 3744 section 5.5). With recurse it also
// checks every descendant reachable through the resolver.
//
// Evaluation is first-match-per-privilege: ACEs are scanned in order and
// the first entry matching both a pending privilege and the actor decides
// that privilege. Anything never matched is implicitly denied.
//
// On failure it returns an *AccessDeniedError carrying every resource
// with a nonempty denial, not just the first. Success returns nil and has
// no side effect.
func (e *Engine) CheckPrivileges(
	ctx context.Context,
	rctx *RequestContext,
	res Resource,
	requested []Privilege,
	recurse bool,
) error {
	return e.checkPrivileges(ctx, rctx, res, requested, recurse, nil)
}

// CheckPrivilegesFast is CheckPrivileges for callers that already hold
// the inherited-ACE prefix for res (from InheritedACEsForChildren on its
// parent), sparing the ancestor walk.
func (e *Engine) CheckPrivilegesFast(
	ctx context.Context,
	rctx *RequestContext,
	res Resource,
	requested []Privilege,
	inherited []ACE,
) error {
	return e.checkPrivileges(ctx, rctx, res, requested, false, inherited)
}

func (e *Engine) checkPrivileges(
	ctx context.Context,
	rctx *RequestContext,
	res Resource,
	requested []Privilege,
	recurse bool,
	inherited []ACE,
) error {
	start := time.Now()

	var denials []ResourceDenial
	if err := e.checkResource(ctx, rctx, res, requested, recurse, inherited, &denials); err != nil {
		return err
	}

	e.metrics.ObserveEvaluation(time.Since(start), len(denials) == 0)

	if len(denials) > 0 {
		return &AccessDeniedError{Denials: denials}
	}
	return nil
}

// checkResource evaluates one resource and, when recursing, its
// descendants. inherited, when non-nil, is the precomputed inherited-ACE
// prefix for res; each collection level derives the prefix for its
// children once and shares it across them instead of walking the
// ancestor chain per descendant.
func (e *Engine) checkResource(
	ctx context.Context,
	rctx *RequestContext,
	res Resource,
	requested []Privilege,
	recurse bool,
	inherited []ACE,
	denials *[]ResourceDenial,
) error {
	var acl *ACL
	var err error
	if inherited != nil {
		acl, err = e.EffectiveACLWithInherited(ctx, res, inherited)
	} else {
		acl, err = e.EffectiveACL(ctx, res)
	}
	if err != nil {
		return err
	}

	if acl == nil {
		// No computable policy: every requested privilege is denied.
		logACLDisabled(res.URL())
		*denials = append(*denials, ResourceDenial{
			URL:        res.URL(),
			Privileges: append([]Privilege(nil), requested...),
		})
	} else {
		denied, err := e.evaluate(ctx, rctx, res, acl, requested)
		if err != nil {
			return err
		}
		if len(denied) > 0 {
			*denials = append(*denials, ResourceDenial{URL: res.URL(), Privileges: denied})
		}
	}

	if !recurse || !res.IsCollection() {
		return nil
	}

	childInherited, disabled, err := e.InheritedACEsForChildren(ctx, res)
	if err != nil {
		return err
	}
	if disabled {
		// A disabled branch has no shared prefix; each child falls back
		// to its own walk, finds the disabled ancestor, and is denied.
		childInherited = nil
	}

	children, err := e.resolver.Children(ctx, res)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := e.checkResource(ctx, rctx, child, requested, true, childInherited, denials); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs the first-match-per-privilege scan of one effective ACL
// and returns the denied subset of requested.
func (e *Engine) evaluate(
	ctx context.Context,
	rctx *RequestContext,
	res Resource,
	acl *ACL,
	requested []Privilege,
) ([]Privilege, error) {
	set := SupportedPrivileges(res)

	pending := append([]Privilege(nil), requested...)
	var denied []Privilege

	for i := range acl.ACEs {
		if len(pending) == 0 {
			break
		}
		ace := &acl.ACEs[i]

		// Snapshot pending so removals don't disturb the scan.
		for _, priv := range append([]Privilege(nil), pending...) {
			if !matchPrivilege(priv, ace.Privileges, set) {
				continue
			}

			match, err := e.MatchPrincipal(ctx, rctx, res, ace.Principal)
			if err != nil {
				return nil, err
			}
			// Invert flips the polarity of the principal match.
			if match == ace.Invert {
				continue
			}

			pending = removePrivilege(pending, priv)
			if !ace.Allow {
				denied = append(denied, priv)
			}
		}
	}

	// Anything never matched by an ACE is implicitly denied.
	denied = append(denied, pending...)
	return denied, nil
}

func removePrivilege(privs []Privilege, p Privilege) []Privilege {
	out := privs[:0]
	for _, candidate := range privs {
		if candidate != p {
			out = append(out, candidate)
		}
	}
	return out
}
