package davxml

import "encoding/xml"

// Propfind is a parsed <DAV:propfind> request body.
type Propfind struct {
	XMLName  xml.Name   `xml:"DAV: propfind"`
	Prop     *PropNames `xml:"DAV: prop"`
	AllProp  *struct{}  `xml:"DAV: allprop"`
	PropName *struct{}  `xml:"DAV: propname"`
}

// PropNames collects the names of the properties a propfind requests.
type PropNames struct {
	Names []xml.Name
}

// UnmarshalXML implements xml.Unmarshaler. Each child element contributes
// its name; content is ignored.
func (p *PropNames) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.Names = append(p.Names, t.Name)
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}
