package davxml

import (
	"encoding/xml"

	"github.com/perchdav/perch/pkg/dav/acl"
)

// SupportedPrivilege is one node of a <DAV:supported-privilege-set> tree.
type SupportedPrivilege struct {
	XMLName     xml.Name             `xml:"DAV: supported-privilege"`
	Privilege   Privilege            `xml:"DAV: privilege"`
	Abstract    *struct{}            `xml:"DAV: abstract,omitempty"`
	Description Description          `xml:"DAV: description"`
	Children    []SupportedPrivilege `xml:"DAV: supported-privilege,omitempty"`
}

// Description carries the human-readable privilege description with its
// required xml:lang attribute.
type Description struct {
	Lang string `xml:"xml:lang,attr"`
	Text string `xml:",chardata"`
}

// SupportedPrivilegeSet is the <DAV:supported-privilege-set> property.
type SupportedPrivilegeSet struct {
	XMLName xml.Name             `xml:"DAV: supported-privilege-set"`
	Root    []SupportedPrivilege `xml:"DAV: supported-privilege"`
}

// FromPrivilegeSet renders a privilege aggregation tree as the
// supported-privilege-set property.
func FromPrivilegeSet(set *acl.PrivilegeSet) *SupportedPrivilegeSet {
	return &SupportedPrivilegeSet{
		Root: []SupportedPrivilege{fromSupportedPrivilege(&set.Root)},
	}
}

func fromSupportedPrivilege(node *acl.SupportedPrivilege) SupportedPrivilege {
	out := SupportedPrivilege{
		Privilege:   FromPrivilege(node.Privilege),
		Description: Description{Lang: "en", Text: node.Description},
	}
	for i := range node.Children {
		out.Children = append(out.Children, fromSupportedPrivilege(&node.Children[i]))
	}
	return out
}

// CurrentUserPrivilegeSet is the <DAV:current-user-privilege-set>
// property.
type CurrentUserPrivilegeSet struct {
	XMLName    xml.Name    `xml:"DAV: current-user-privilege-set"`
	Privileges []Privilege `xml:"DAV: privilege"`
}

// FromPrivileges renders the privileges in effect for the current actor.
func FromPrivileges(privileges []acl.Privilege) *CurrentUserPrivilegeSet {
	out := &CurrentUserPrivilegeSet{}
	for _, p := range privileges {
		out.Privileges = append(out.Privileges, FromPrivilege(p))
	}
	return out
}

// ACLRestrictions is the <DAV:acl-restrictions> property. This server
// enforces exactly one restriction: denies precede grants.
type ACLRestrictions struct {
	XMLName         xml.Name  `xml:"DAV: acl-restrictions"`
	DenyBeforeGrant *struct{} `xml:"DAV: deny-before-grant,omitempty"`
}

// Restrictions returns the restrictions this server advertises.
func Restrictions() *ACLRestrictions {
	return &ACLRestrictions{DenyBeforeGrant: &struct{}{}}
}

// InheritedACLSet is the <DAV:inherited-acl-set> property, listing the
// ancestors whose access lists contribute entries here.
type InheritedACLSet struct {
	XMLName xml.Name `xml:"DAV: inherited-acl-set"`
	Hrefs   []string `xml:"DAV: href"`
}

// PrincipalCollectionSet is the <DAV:principal-collection-set> property.
type PrincipalCollectionSet struct {
	XMLName xml.Name `xml:"DAV: principal-collection-set"`
	Hrefs   []string `xml:"DAV: href"`
}

// ErrorElement is a <DAV:error> response body naming the failed
// precondition.
type ErrorElement struct {
	XMLName xml.Name `xml:"DAV: error"`
	Inner   any
}

// Condition wraps a bare precondition element such as
// <DAV:recognized-principal/>.
type Condition struct {
	Name xml.Name
}

// MarshalXML implements xml.Marshaler.
func (c Condition) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = c.Name
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// NeedPrivileges is the <DAV:need-privileges> error body of a failed
// privilege check, one <DAV:resource> per denial.
type NeedPrivileges struct {
	XMLName   xml.Name         `xml:"DAV: need-privileges"`
	Resources []DeniedResource `xml:"DAV: resource"`
}

// DeniedResource pairs a resource with the privileges denied on it.
type DeniedResource struct {
	Href       string      `xml:"DAV: href"`
	Privileges []Privilege `xml:"DAV: privilege"`
}

// PreconditionBody builds the DAV:error body for a failed ACL method
// precondition.
func PreconditionBody(err *acl.PreconditionError) *ErrorElement {
	return &ErrorElement{
		Inner: Condition{Name: xml.Name{Space: err.Namespace, Local: err.Condition}},
	}
}

// NeedPrivilegesBody builds the DAV:error body for a failed privilege
// check.
func NeedPrivilegesBody(err *acl.AccessDeniedError) *ErrorElement {
	body := NeedPrivileges{}
	for _, denial := range err.Denials {
		res := DeniedResource{Href: denial.URL}
		for _, p := range denial.Privileges {
			res.Privileges = append(res.Privileges, FromPrivilege(p))
		}
		body.Resources = append(body.Resources, res)
	}
	return &ErrorElement{Inner: body}
}
