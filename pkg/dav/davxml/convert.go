package davxml

import (
	"encoding/xml"
	"fmt"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// FromPrivilege converts an engine privilege to its wire element.
func FromPrivilege(p acl.Privilege) Privilege {
	return Privilege{Name: xml.Name{Space: p.Namespace, Local: p.Local}}
}

// ToPrivilege converts a wire privilege to the engine form.
func ToPrivilege(p Privilege) acl.Privilege {
	return acl.Privilege{Namespace: p.Name.Space, Local: p.Name.Local}
}

// FromPrincipal converts an engine principal to its wire element.
func FromPrincipal(p acl.Principal) Principal {
	empty := &struct{}{}
	switch p.Kind {
	case acl.PrincipalAll:
		return Principal{All: empty}
	case acl.PrincipalAuthenticated:
		return Principal{Authenticated: empty}
	case acl.PrincipalUnauthenticated:
		return Principal{Unauthenticated: empty}
	case acl.PrincipalSelf:
		return Principal{Self: empty}
	case acl.PrincipalProperty:
		return Principal{Property: &Property{
			Name: xml.Name{Space: p.PropertyNamespace, Local: p.PropertyName},
		}}
	default:
		return Principal{Href: p.Href}
	}
}

// ToPrincipal converts a wire principal to the engine form. Exactly one
// variant must be present.
func ToPrincipal(p Principal) (acl.Principal, error) {
	switch {
	case p.All != nil:
		return acl.All(), nil
	case p.Authenticated != nil:
		return acl.Authenticated(), nil
	case p.Unauthenticated != nil:
		return acl.Unauthenticated(), nil
	case p.Self != nil:
		return acl.Self(), nil
	case p.Property != nil:
		return acl.PropertyPrincipal(p.Property.Name.Space, p.Property.Name.Local), nil
	case p.Href != "":
		return acl.Href(p.Href), nil
	default:
		return acl.Principal{}, fmt.Errorf("davxml: principal element has no variant")
	}
}

// FromACL converts an effective or stored ACL to its wire element.
func FromACL(a *acl.ACL) *ACLElement {
	out := &ACLElement{}
	for _, ace := range a.ACEs {
		out.ACEs = append(out.ACEs, fromACE(ace))
	}
	return out
}

func fromACE(ace acl.ACE) ACE {
	wire := ACE{}

	principal := FromPrincipal(ace.Principal)
	if ace.Invert {
		wire.Invert = &Invert{Principal: principal}
	} else {
		wire.Principal = &principal
	}

	privileges := make([]Privilege, len(ace.Privileges))
	for i, p := range ace.Privileges {
		privileges[i] = FromPrivilege(p)
	}
	if ace.Allow {
		wire.Grant = &Grant{Privileges: privileges}
	} else {
		wire.Deny = &Deny{Privileges: privileges}
	}

	if ace.Protected {
		wire.Protected = &struct{}{}
	}
	if ace.Inherited != "" {
		wire.Inherited = &Inherited{Href: ace.Inherited}
	}
	return wire
}

// ToACL converts a client-submitted acl element to the engine form. Wire
// flags map directly; the engine's merge validation decides whether they
// are acceptable.
func ToACL(e *ACLElement) (*acl.ACL, error) {
	out := &acl.ACL{}
	for i, wire := range e.ACEs {
		ace, err := toACE(wire)
		if err != nil {
			return nil, fmt.Errorf("davxml: ace %d: %w", i, err)
		}
		out.ACEs = append(out.ACEs, ace)
	}
	return out, nil
}

func toACE(wire ACE) (acl.ACE, error) {
	var ace acl.ACE

	switch {
	case wire.Principal != nil && wire.Invert != nil:
		return ace, fmt.Errorf("both principal and invert present")
	case wire.Invert != nil:
		principal, err := ToPrincipal(wire.Invert.Principal)
		if err != nil {
			return ace, err
		}
		ace.Principal = principal
		ace.Invert = true
	case wire.Principal != nil:
		principal, err := ToPrincipal(*wire.Principal)
		if err != nil {
			return ace, err
		}
		ace.Principal = principal
	default:
		return ace, fmt.Errorf("no principal")
	}

	switch {
	case wire.Grant != nil && wire.Deny != nil:
		return ace, fmt.Errorf("both grant and deny present")
	case wire.Grant != nil:
		ace.Allow = true
		for _, p := range wire.Grant.Privileges {
			ace.Privileges = append(ace.Privileges, ToPrivilege(p))
		}
	case wire.Deny != nil:
		for _, p := range wire.Deny.Privileges {
			ace.Privileges = append(ace.Privileges, ToPrivilege(p))
		}
	default:
		return ace, fmt.Errorf("neither grant nor deny present")
	}

	ace.Protected = wire.Protected != nil
	if wire.Inherited != nil {
		ace.Inherited = wire.Inherited.Href
	}
	return ace, nil
}
