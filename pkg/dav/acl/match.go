package acl

import (
	"context"

	"github.com/perchdav/perch/internal/logger"
)

// MatchPrincipal reports whether the request's actor is in the set
// defined by principal on the given resource (RFC 3744 section 5.5.1).
//
// Every unresolved or ambiguous case folds into "no match" rather than an
// error, so authorization degrades to deny, never to allow. Results are
// memoized in the RequestContext for the lifetime of the request.
func (e *Engine) MatchPrincipal(ctx context.Context, rctx *RequestContext, res Resource, principal Principal) (bool, error) {
	actor := rctx.Actor

	if match, ok := rctx.cachedMatch(actor, principal); ok {
		e.metrics.ObserveMatchCache(true)
		return match, nil
	}
	e.metrics.ObserveMatchCache(false)

	match, err := e.matchPrincipal(ctx, rctx, res, actor, principal)
	if err != nil {
		return false, err
	}

	rctx.storeMatch(actor, principal, match)
	return match, nil
}

func (e *Engine) matchPrincipal(ctx context.Context, rctx *RequestContext, res Resource, actor Actor, principal Principal) (bool, error) {
	switch principal.Kind {
	case PrincipalAll:
		return true, nil

	case PrincipalAuthenticated:
		return actor.Authenticated(), nil

	case PrincipalUnauthenticated:
		return !actor.Authenticated(), nil

	case PrincipalSelf, PrincipalHref, PrincipalProperty:
		// Identity-based matchers can never match the anonymous actor.
		if !actor.Authenticated() {
			return false, nil
		}

		target, ok := e.resolvePrincipalURL(res, principal)
		if !ok {
			return false, nil
		}
		if actor.Href == target {
			return true, nil
		}
		return e.principalIsGroupMember(ctx, actor.Href, target)

	default:
		logger.Warn("unknown principal kind in ACE, denying", "kind", principal.Kind.String())
		return false, nil
	}
}

// resolvePrincipalURL reduces an identity-based principal matcher to a
// principal URL. A false return means the matcher cannot resolve and the
// match fails closed.
func (e *Engine) resolvePrincipalURL(res Resource, principal Principal) (string, bool) {
	switch principal.Kind {
	case PrincipalHref:
		return principal.Href, true

	case PrincipalSelf:
		pr, ok := res.(PrincipalResource)
		if !ok {
			logger.Error("DAV:self ACE on non-principal resource", "resource", res.URL())
			return "", false
		}
		return pr.PrincipalURL(), true

	case PrincipalProperty:
		// Property principals are accepted syntactically but resolution is
		// unimplemented by policy; refusing the match here keeps a bad ACE
		// from crippling the resource in a way a client could not repair.
		logger.Error("property principal encountered, handling not implemented",
			"namespace", principal.PropertyNamespace,
			"name", principal.PropertyName)
		return "", false

	default:
		return "", false
	}
}

// principalIsGroupMember reports whether the principal at actorURL is a
// transitively expanded member of the principal at groupURL. Resolution
// failures and non-principal targets are "not a member", not errors.
func (e *Engine) principalIsGroupMember(ctx context.Context, actorURL, groupURL string) (bool, error) {
	target, err := e.resolver.Resolve(ctx, groupURL)
	if err != nil {
		logger.Warn("group membership resolve failed, denying",
			"group", groupURL, "error", err)
		return false, nil
	}
	group, ok := target.(PrincipalResource)
	if !ok || group == nil {
		return false, nil
	}

	contained, err := group.ContainsPrincipal(ctx, actorURL)
	if err != nil {
		logger.Warn("group membership test failed, denying",
			"group", groupURL, "principal", actorURL, "error", err)
		return false, nil
	}
	return contained, nil
}

// validPrincipal reports whether an ACE principal submitted through the
// ACL method is recognized: a meta-principal, self, or an href that
// resolves to a principal resource whose canonical URL matches.
func (e *Engine) validPrincipal(ctx context.Context, principal Principal) (bool, error) {
	switch principal.Kind {
	case PrincipalAll, PrincipalAuthenticated, PrincipalUnauthenticated, PrincipalSelf:
		return true, nil

	case PrincipalProperty:
		// See resolvePrincipalURL: no property principal support.
		return false, nil

	case PrincipalHref:
		res, err := e.resolver.Resolve(ctx, principal.Href)
		if err != nil {
			return false, err
		}
		pr, ok := res.(PrincipalResource)
		if !ok || pr == nil {
			return false, nil
		}
		return pr.PrincipalURL() == principal.Href, nil

	default:
		return false, nil
	}
}
