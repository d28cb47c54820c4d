package upnpav

import (
	"encoding/xml"
)

const (
	NamespaceDIDL = "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"
	NamespaceDC   = "http://purl.org/dc/elements/1.1/"
	NamespaceUPnP = "urn:schemas-upnp-org:metadata-1-0/upnp/"
)

type Resource struct {
	XMLName      xml.Name `xml:"res"`
	ProtocolInfo string   `xml:"protocolInfo,attr"`
	URL          string   `xml:",chardata"`
	Size         uint64   `xml:"size,attr,omitempty"`
	Bitrate      uint     `xml:"bitrate,attr,omitempty"`
	Duration     string   `xml:"duration,attr,omitempty"`
	Resolution   string   `xml:"resolution,attr,omitempty"`
}

type Object struct {
	ID          string `xml:"id,attr"`
	ParentID    string `xml:"parentID,attr"`
	Restricted  int    `xml:"restricted,attr"` // indicates whether the object is modifiable
	Class       string `xml:"upnp:class"`
	Title       string `xml:"dc:title"`
	Creator     string `xml:"dc:creator,omitempty"`
	Album       string `xml:"upnp:album,omitempty"`
	TrackNumber string `xml:"upnp:originalTrackNumber,omitempty"`
}

type Container struct {
	Object
	XMLName    xml.Name `xml:"container"`
	ChildCount int      `xml:"childCount,attr"`
}

type Item struct {
	Object
	XMLName xml.Name `xml:"item"`
	Res     []Resource
}

// DIDLLite is the envelope for metadata sent to devices, namespaces
// included so renderers can resolve the dc/upnp prefixes.
type DIDLLite struct {
	XMLName    xml.Name `xml:"DIDL-Lite"`
	NS         string   `xml:"xmlns,attr"`
	NSDC       string   `xml:"xmlns:dc,attr"`
	NSUPnP     string   `xml:"xmlns:upnp,attr"`
	Containers []Container
	Items      []Item
}

func WrapItems(items ...Item) DIDLLite {
	return DIDLLite{
		NS:     NamespaceDIDL,
		NSDC:   NamespaceDC,
		NSUPnP: NamespaceUPnP,
		Items:  items,
	}
}
