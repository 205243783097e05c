// Package davxml encodes and decodes the RFC 3744 access control
// elements exchanged over the protocol: the DAV:acl property and the
// read-only computed properties derived from it. It converts between the
// wire form and the acl package's model; it performs no validation
// beyond well-formedness, which belongs to the engine.
package davxml

import (
	"encoding/xml"
	"fmt"
)

// Namespace is the WebDAV XML namespace.
const Namespace = "DAV:"

// Privilege is a <DAV:privilege> element wrapping one capability name.
type Privilege struct {
	Name xml.Name
}

// MarshalXML implements xml.Marshaler.
func (p Privilege) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Space: Namespace, Local: "privilege"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	inner := xml.StartElement{Name: p.Name}
	if err := e.EncodeToken(inner); err != nil {
		return err
	}
	if err := e.EncodeToken(inner.End()); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML implements xml.Unmarshaler. The first child element names
// the privilege; anything else is ignored.
func (p *Privilege) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if p.Name == (xml.Name{}) {
				p.Name = t.Name
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if p.Name == (xml.Name{}) {
				return fmt.Errorf("davxml: empty privilege element")
			}
			return nil
		}
	}
}

// Principal is a <DAV:principal> element.
type Principal struct {
	Href            string    `xml:"DAV: href,omitempty"`
	All             *struct{} `xml:"DAV: all,omitempty"`
	Authenticated   *struct{} `xml:"DAV: authenticated,omitempty"`
	Unauthenticated *struct{} `xml:"DAV: unauthenticated,omitempty"`
	Self            *struct{} `xml:"DAV: self,omitempty"`
	Property        *Property `xml:"DAV: property,omitempty"`
}

// Property is the <DAV:property> child of a property principal. The
// first child element names the referenced property.
type Property struct {
	Name xml.Name
}

// MarshalXML implements xml.Marshaler.
func (p Property) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Space: Namespace, Local: "property"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	inner := xml.StartElement{Name: p.Name}
	if err := e.EncodeToken(inner); err != nil {
		return err
	}
	if err := e.EncodeToken(inner.End()); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML implements xml.Unmarshaler.
func (p *Property) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if p.Name == (xml.Name{}) {
				p.Name = t.Name
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if p.Name == (xml.Name{}) {
				return fmt.Errorf("davxml: empty property element")
			}
			return nil
		}
	}
}

// Invert wraps a principal to flip its match polarity.
type Invert struct {
	Principal Principal `xml:"DAV: principal"`
}

// Grant lists privileges an ACE allows.
type Grant struct {
	Privileges []Privilege `xml:"DAV: privilege"`
}

// Deny lists privileges an ACE denies.
type Deny struct {
	Privileges []Privilege `xml:"DAV: privilege"`
}

// Inherited names the ancestor an ACE was inherited from.
type Inherited struct {
	Href string `xml:"DAV: href"`
}

// ACE is a <DAV:ace> element.
type ACE struct {
	XMLName   xml.Name   `xml:"DAV: ace"`
	Principal *Principal `xml:"DAV: principal,omitempty"`
	Invert    *Invert    `xml:"DAV: invert,omitempty"`
	Grant     *Grant     `xml:"DAV: grant,omitempty"`
	Deny      *Deny      `xml:"DAV: deny,omitempty"`
	Protected *struct{}  `xml:"DAV: protected,omitempty"`
	Inherited *Inherited `xml:"DAV: inherited,omitempty"`
}

// ACLElement is the <DAV:acl> property element.
type ACLElement struct {
	XMLName xml.Name `xml:"DAV: acl"`
	ACEs    []ACE    `xml:"DAV: ace"`
}
