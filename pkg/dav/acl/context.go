package acl

// RequestContext carries the per-request state the engine needs: the
// acting principal and the principal-match memoization cache.
//
// A RequestContext must be allocated fresh for each inbound request and
// discarded when the request completes. It is never shared across
// requests, so no locking is required; request processing inside the
// engine is sequential.
type RequestContext struct {
	// Actor is the authenticated identity of the request, or
	// AnonymousActor when authentication did not establish one.
	Actor Actor

	matchCache map[matchKey]bool
}

type matchKey struct {
	actor     string
	principal string
}

// NewRequestContext returns a request context for the given actor.
func NewRequestContext(actor Actor) *RequestContext {
	return &RequestContext{
		Actor:      actor,
		matchCache: make(map[matchKey]bool),
	}
}

func (rc *RequestContext) cachedMatch(actor Actor, principal Principal) (match, ok bool) {
	match, ok = rc.matchCache[matchKey{actor.Key(), principal.Key()}]
	return match, ok
}

func (rc *RequestContext) storeMatch(actor Actor, principal Principal, match bool) {
	rc.matchCache[matchKey{actor.Key(), principal.Key()}] = match
}
