package acl

import (
	"context"
	"errors"
)

// PropertyName identifies a dead property by namespace and local name.
type PropertyName struct {
	Namespace string
	Local     string
}

// PerchPrivateNamespace is the server-private property namespace. The
// engine uses exactly one slot in it, PropACL, to persist a resource's
// stored ACL. Private properties are never exposed over the protocol.
const PerchPrivateNamespace = "http://perchdav.org/ns/private/"

// PropACL is the private property slot holding the stored ACL.
var PropACL = PropertyName{PerchPrivateNamespace, "acl"}

// ErrPropertyNotFound is returned by PropertySet.Get for an absent slot.
var ErrPropertyNotFound = errors.New("property not found")

// PropertySet is the dead-property storage of a single resource. The
// engine reads and writes only the PropACL slot; write serialization
// across concurrent merges is the storage layer's responsibility.
type PropertySet interface {
	// Get returns the raw value of a property, or ErrPropertyNotFound.
	Get(ctx context.Context, name PropertyName) ([]byte, error)

	// Set stores a property value, replacing any existing one.
	Set(ctx context.Context, name PropertyName, value []byte) error

	// Delete removes a property. Deleting an absent property is not an error.
	Delete(ctx context.Context, name PropertyName) error

	// Exists reports whether the property is present.
	Exists(ctx context.Context, name PropertyName) (bool, error)
}

// Resource is the engine's view of one node in the resource tree. The
// tree itself is owned by the storage layer; the engine only reads
// resource identity, class, and the stored-ACL property slot.
type Resource interface {
	// URL returns the resource's path within the hierarchy. The root is "/".
	URL() string

	// IsCollection reports whether the resource can contain children.
	IsCollection() bool

	// PrivilegeClass selects the privilege graph variant for the resource.
	PrivilegeClass() PrivilegeClass

	// Properties returns the resource's dead-property store.
	Properties() PropertySet

	// AccessDisabled reports whether access control is disabled for the
	// resource. A disabled resource has no computable policy and every
	// privilege check against it denies.
	AccessDisabled() bool

	// PrincipalCollections returns the URLs of the principal collections
	// in which ACE principals for this resource are looked up.
	PrincipalCollections() []string
}

// PrincipalResource is a resource that represents a principal: a user,
// group, or other actor identity.
type PrincipalResource interface {
	Resource

	// PrincipalURL returns the canonical URL of the principal.
	PrincipalURL() string

	// ContainsPrincipal reports whether the principal identified by
	// principalURL is this principal or a transitively expanded member
	// of it.
	ContainsPrincipal(ctx context.Context, principalURL string) (bool, error)
}

// Resolver resolves URLs to resources and enumerates collection members.
// It is supplied by the server's resource-tree layer; the engine holds no
// knowledge of URL semantics beyond parent-path derivation.
type Resolver interface {
	// Resolve returns the resource at url, or (nil, nil) if none exists.
	Resolve(ctx context.Context, url string) (Resource, error)

	// Children returns the direct members of a collection resource.
	// Non-collections return an empty slice.
	Children(ctx context.Context, res Resource) ([]Resource, error)
}

// parentURL returns the URL of the resource's parent, or "" for the root.
func parentURL(url string) string {
	if url == "" || url == "/" {
		return ""
	}
	// Strip a trailing slash so collection URLs resolve like leaf URLs.
	end := len(url)
	if url[end-1] == '/' {
		end--
	}
	for i := end - 1; i >= 0; i-- {
		if url[i] == '/' {
			if i == 0 {
				return "/"
			}
			return url[:i]
		}
	}
	return ""
}
