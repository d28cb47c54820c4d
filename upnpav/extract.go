package upnpav

import (
	"encoding/xml"
	"strings"

	"github.com/moviesite/dmc/dlna"
)

// Node is one DIDL-Lite element parsed without schema assumptions.
// ContentDirectory implementations stray from the schema often enough that
// extraction has to work on raw elements.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

// Attr matches an attribute name case-insensitively, as noncompliant
// devices vary the casing.
func (me Node) Attr(name string) (string, bool) {
	for _, a := range me.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// ParseDIDL parses the DIDL-Lite document embedded in a Browse response's
// Result argument and returns its top-level elements.
func ParseDIDL(result string) ([]Node, error) {
	var doc Node
	if err := xml.Unmarshal([]byte(result), &doc); err != nil {
		return nil, err
	}
	return doc.Children, nil
}

const (
	KindItem      = "item"
	KindContainer = "container"
)

// ContentNode is the flat record extracted from one item/container element.
type ContentNode struct {
	ID           string
	Kind         string
	Class        string
	URI          string
	Title        string
	Album        string
	Track        string
	Artist       string
	ProtocolInfo string
}

func (me ContentNode) IsItem() bool      { return me.Kind == KindItem }
func (me ContentNode) IsContainer() bool { return me.Kind == KindContainer }

// Extract converts a DIDL-Lite element into a ContentNode. It reports
// absence instead of failing: a malformed entry from a noncompliant device
// must not abort the directory listing it arrived in. Among multiple res
// children the first non-transcoded resource wins, the first seen is the
// fallback.
func Extract(node Node) (ret ContentNode, ok bool) {
	id, ok := node.Attr("id")
	if !ok || id == "" {
		return ContentNode{}, false
	}
	ret.ID = id
	ret.Kind = node.XMLName.Local
	sawPlain := false
	for _, ch := range node.Children {
		text := strings.TrimSpace(ch.Text)
		switch strings.ToLower(ch.XMLName.Local) {
		case "class":
			ret.Class = truncateClass(text)
		case "title":
			ret.Title = text
		case "album":
			ret.Album = text
		case "creator":
			ret.Artist = text
		case "originaltracknumber":
			ret.Track = text
		case "res":
			protocolInfo, _ := ch.Attr("protocolInfo")
			if protocolInfo != "" {
				ret.ProtocolInfo = protocolInfo
			}
			if ret.URI == "" {
				ret.URI = text
			}
			if !sawPlain && !dlna.Transcoded(protocolInfo) {
				ret.URI = text
				sawPlain = true
			}
		}
	}
	return ret, true
}

// truncateClass collapses over-specific subclasses, e.g.
// object.item.videoItem.movie to object.item.videoItem.
func truncateClass(class string) string {
	parts := strings.Split(class, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".")
}
