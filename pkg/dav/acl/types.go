// Package acl implements the WebDAV access control model of RFC 3744:
// access control entries and lists, privilege aggregation, principal
// matching, hierarchical ACL inheritance, privilege evaluation, and the
// validated merge performed by the ACL method.
//
// This package is protocol-agnostic: it has no dependency on the HTTP or
// XML layers. All types use Go primitives and are JSON-serializable for
// storage in property backends. Resource resolution, authentication, and
// property persistence are supplied by the caller through the interfaces
// in resource.go.
package acl

import "fmt"

// PrincipalKind discriminates the closed set of principal variants an ACE
// may name. Matching code switches exhaustively on this tag; adding a
// variant is a compile-visible obligation across every switch site.
type PrincipalKind int

const (
	// PrincipalAll matches every actor, authenticated or not.
	PrincipalAll PrincipalKind = iota

	// PrincipalAuthenticated matches any actor that is not unauthenticated.
	PrincipalAuthenticated

	// PrincipalUnauthenticated matches only the unauthenticated actor.
	PrincipalUnauthenticated

	// PrincipalSelf matches the principal that the target resource itself
	// represents. It resolves to no match on non-principal resources.
	PrincipalSelf

	// PrincipalHref names a principal resource by URL.
	PrincipalHref

	// PrincipalProperty names a principal indirectly through a property of
	// the target resource. Accepted syntactically, but resolution is not
	// implemented and always fails closed to "no match".
	PrincipalProperty
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalAll:
		return "all"
	case PrincipalAuthenticated:
		return "authenticated"
	case PrincipalUnauthenticated:
		return "unauthenticated"
	case PrincipalSelf:
		return "self"
	case PrincipalHref:
		return "href"
	case PrincipalProperty:
		return "property"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Principal identifies the actor or actor class an ACE applies to.
type Principal struct {
	Kind PrincipalKind `json:"kind"`

	// Href is the principal URL. Set only for PrincipalHref.
	Href string `json:"href,omitempty"`

	// PropertyNamespace and PropertyName identify the referenced property.
	// Set only for PrincipalProperty.
	PropertyNamespace string `json:"property_namespace,omitempty"`
	PropertyName      string `json:"property_name,omitempty"`
}

// All returns the DAV:all principal.
func All() Principal { return Principal{Kind: PrincipalAll} }

// Authenticated returns the DAV:authenticated principal.
func Authenticated() Principal { return Principal{Kind: PrincipalAuthenticated} }

// Unauthenticated returns the DAV:unauthenticated principal.
func Unauthenticated() Principal { return Principal{Kind: PrincipalUnauthenticated} }

// Self returns the DAV:self principal.
func Self() Principal { return Principal{Kind: PrincipalSelf} }

// Href returns a DAV:href principal naming the given principal URL.
func Href(url string) Principal { return Principal{Kind: PrincipalHref, Href: url} }

// PropertyPrincipal returns a DAV:property principal referencing the named
// property of the target resource.
func PropertyPrincipal(namespace, name string) Principal {
	return Principal{
		Kind:              PrincipalProperty,
		PropertyNamespace: namespace,
		PropertyName:      name,
	}
}

// Key returns a stable string form used as a match-cache key component.
func (p Principal) Key() string {
	switch p.Kind {
	case PrincipalHref:
		return "href:" + p.Href
	case PrincipalProperty:
		return "property:" + p.PropertyNamespace + " " + p.PropertyName
	default:
		return p.Kind.String()
	}
}

// Same reports whether two principals are the same matcher in the sense
// used by the ACL merge: identical kind, and for href principals an
// identical URL. Property principals compare by referenced property.
func (p Principal) Same(other Principal) bool {
	if p.Kind != other.Kind {
		return false
	}
	switch p.Kind {
	case PrincipalHref:
		return p.Href == other.Href
	case PrincipalProperty:
		return p.PropertyNamespace == other.PropertyNamespace &&
			p.PropertyName == other.PropertyName
	default:
		return true
	}
}

// Actor is the authenticated identity a request executes as. The zero
// value is the unauthenticated actor. Only unauthenticated and href
// identities occur as actors; the matcher-only principal classes never do.
type Actor struct {
	// Href is the actor's principal URL, or empty when unauthenticated.
	Href string
}

// AnonymousActor is the unauthenticated actor.
var AnonymousActor = Actor{}

// Authenticated reports whether the actor carries a principal identity.
func (a Actor) Authenticated() bool { return a.Href != "" }

// Key returns a stable string form used as a match-cache key component.
func (a Actor) Key() string {
	if a.Href == "" {
		return "unauthenticated"
	}
	return "href:" + a.Href
}

// Principal returns the matcher form of the actor, for display surfaces
// that report ACLs in terms of principals.
func (a Actor) Principal() Principal {
	if a.Href == "" {
		return Unauthenticated()
	}
	return Href(a.Href)
}

// ACE is a single access control entry: one principal matcher, a grant or
// deny, and the privileges it covers.
//
// Protected and Inherited are server-assigned and never accepted from a
// client write. Inheritable is private to the ACE as stored on its owning
// resource: when the entry propagates to a descendant, the derived copy
// has Inheritable cleared and Inherited set to the ancestor URL instead.
// A non-expanding read never exposes Inheritable.
type ACE struct {
	Principal  Principal   `json:"principal"`
	Invert     bool        `json:"invert,omitempty"`
	Privileges []Privilege `json:"privileges"`
	Allow      bool        `json:"allow"`

	// Protected marks a server-assigned entry that clients cannot replace.
	Protected bool `json:"protected,omitempty"`

	// Inherited holds the URL of the ancestor resource this entry was
	// derived from, or empty for an entry stored on the resource itself.
	Inherited string `json:"inherited,omitempty"`

	// Inheritable marks a stored entry that propagates to descendants.
	Inheritable bool `json:"inheritable,omitempty"`
}

// ACL is an ordered list of ACEs. Order is significant: evaluation is
// first-match-per-privilege, and the order is preserved on read.
type ACL struct {
	ACEs []ACE `json:"aces"`
}

// Clone returns a deep copy of the ACL.
func (a *ACL) Clone() *ACL {
	if a == nil {
		return nil
	}
	out := &ACL{ACEs: make([]ACE, len(a.ACEs))}
	for i, ace := range a.ACEs {
		ace.Privileges = append([]Privilege(nil), ace.Privileges...)
		out.ACEs[i] = ace
	}
	return out
}
