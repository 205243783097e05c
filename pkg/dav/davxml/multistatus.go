package davxml

import (
	"encoding/xml"
	"fmt"
)

// Multistatus is a <DAV:multistatus> response body.
type Multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []Response `xml:"DAV: response"`
}

// Response reports the property results for one resource.
type Response struct {
	Href      string     `xml:"DAV: href"`
	Propstats []Propstat `xml:"DAV: propstat"`
}

// Propstat groups the properties of a response sharing one status.
type Propstat struct {
	Prop   Prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

// Prop holds the access control properties this server serves. Nil
// fields are omitted from the output; Unknown carries names of requested
// properties the server does not have, rendered as empty elements.
type Prop struct {
	ACL                     *ACLElement              `xml:",omitempty"`
	SupportedPrivilegeSet   *SupportedPrivilegeSet   `xml:",omitempty"`
	CurrentUserPrivilegeSet *CurrentUserPrivilegeSet `xml:",omitempty"`
	ACLRestrictions         *ACLRestrictions         `xml:",omitempty"`
	InheritedACLSet         *InheritedACLSet         `xml:",omitempty"`
	PrincipalCollectionSet  *PrincipalCollectionSet  `xml:",omitempty"`
	Unknown                 []EmptyElement           `xml:",omitempty"`
}

// EmptyElement renders a property name as an empty element, used in 404
// and 403 propstats where only the name is echoed back.
type EmptyElement struct {
	Name xml.Name
}

// MarshalXML implements xml.Marshaler.
func (p EmptyElement) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = p.Name
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// StatusText formats an HTTP status for a propstat element.
func StatusText(code int, text string) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, text)
}
