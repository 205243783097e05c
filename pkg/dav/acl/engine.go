package acl

// Engine is the authorization engine. It is stateless across requests:
// all per-request state lives in the RequestContext, so a single Engine
// is safe for concurrent use by any number of requests.
type Engine struct {
	resolver Resolver
	metrics  *Metrics
}

// NewEngine returns an engine backed by the given resource resolver.
// metrics may be nil to disable instrumentation.
func NewEngine(resolver Resolver, metrics *Metrics) *Engine {
	return &Engine{
		resolver: resolver,
		metrics:  metrics,
	}
}
