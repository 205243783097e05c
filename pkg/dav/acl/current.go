package acl

import "context"

// PrivilegesForPrincipal computes the displayed privilege set for an
// actor on a resource, backing DAV:current-user-privilege-set.
//
// Unlike CheckPrivileges this does not stop at the first matching entry
// per privilege: it expands every matching ACE's privileges to their
// aggregate closure, accumulates granted and denied sets across all
// matching entries, and returns granted minus denied. The two algorithms
// intentionally disagree on some ACLs; this one is a "show everything the
// principal might hold" view, the other is the enforcement rule.
//
// The Invert flag is disregarded in this view: an inverted entry
// contributes with plain polarity for the principal it names and
// nothing for anyone else.
//
// A disabled resource yields an empty set.
func (e *Engine) PrivilegesForPrincipal(ctx context.Context, rctx *RequestContext, res Resource) ([]Privilege, error) {
	acl, err := e.EffectiveACL(ctx, res)
	if err != nil {
		return nil, err
	}
	if acl == nil {
		return nil, nil
	}

	set := SupportedPrivileges(res)

	var granted, denied []Privilege
	for i := range acl.ACEs {
		ace := &acl.ACEs[i]

		match, err := e.MatchPrincipal(ctx, rctx, res, ace.Principal)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}

		var expanded []Privilege
		for _, p := range ace.Privileges {
			expanded = append(expanded, set.Expand(p)...)
		}

		if ace.Allow {
			granted = mergePrivileges(granted, expanded)
		} else {
			denied = mergePrivileges(denied, expanded)
		}
	}

	return subtractPrivileges(granted, denied), nil
}

// CurrentPrivileges is PrivilegesForPrincipal for the request's actor.
func (e *Engine) CurrentPrivileges(ctx context.Context, rctx *RequestContext, res Resource) ([]Privilege, error) {
	return e.PrivilegesForPrincipal(ctx, rctx, res)
}

func mergePrivileges(into, add []Privilege) []Privilege {
	for _, p := range add {
		if !containsPrivilege(into, p) {
			into = append(into, p)
		}
	}
	return into
}

func subtractPrivileges(from, remove []Privilege) []Privilege {
	out := make([]Privilege, 0, len(from))
	for _, p := range from {
		if !containsPrivilege(remove, p) {
			out = append(out, p)
		}
	}
	return out
}

func containsPrivilege(privs []Privilege, p Privilege) bool {
	for _, candidate := range privs {
		if candidate == p {
			return true
		}
	}
	return false
}
