package upnp

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var serviceURNRegexp *regexp.Regexp = regexp.MustCompile(`^urn:([^:]+):service:(\w+):(\d+)$`)

type ServiceURN struct {
	Domain  string
	Type    string
	Version uint64
}

func (me ServiceURN) String() string {
	return fmt.Sprintf("urn:%s:service:%s:%d", me.Domain, me.Type, me.Version)
}

func ParseServiceType(s string) (ret ServiceURN, err error) {
	matches := serviceURNRegexp.FindStringSubmatch(s)
	if matches == nil {
		err = errors.New(s)
		return
	}
	ret.Domain = matches[1]
	ret.Type = matches[2]
	ret.Version, err = strconv.ParseUint(matches[3], 0, 0)
	return
}

// Kind classifies a device-type URN for discovery filtering.
type Kind int

const (
	KindOther Kind = iota
	KindMediaServer
	KindMediaRenderer
)

func (me Kind) String() string {
	switch me {
	case KindMediaServer:
		return "MediaServer"
	case KindMediaRenderer:
		return "MediaRenderer"
	}
	return "Other"
}

// Classify reads the segment preceding the version number of a device-type
// URN, e.g. urn:schemas-upnp-org:device:MediaRenderer:1.
func Classify(deviceType string) Kind {
	parts := strings.Split(deviceType, ":")
	if len(parts) < 2 {
		return KindOther
	}
	switch parts[len(parts)-2] {
	case "MediaServer":
		return KindMediaServer
	case "MediaRenderer":
		return KindMediaRenderer
	}
	return KindOther
}

type SpecVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

type ServiceDesc struct {
	XMLName     xml.Name `xml:"service"`
	ServiceType string   `xml:"serviceType"`
	ServiceId   string   `xml:"serviceId"`
	SCPDURL     string
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
}

type DeviceFields struct {
	DeviceType       string        `xml:"deviceType"`
	FriendlyName     string        `xml:"friendlyName"`
	Manufacturer     string        `xml:"manufacturer"`
	ModelDescription string        `xml:"modelDescription"`
	ModelName        string        `xml:"modelName"`
	ModelNumber      string        `xml:"modelNumber"`
	SerialNumber     string        `xml:"serialNumber"`
	UDN              string        `xml:"UDN"`
	ServiceList      []ServiceDesc `xml:"serviceList>service"`
}

type DeviceDesc struct {
	XMLName     xml.Name     `xml:"urn:schemas-upnp-org:device-1-0 root"`
	SpecVersion SpecVersion  `xml:"specVersion"`
	URLBase     string       `xml:"URLBase"`
	Device      DeviceFields `xml:"device"`
}

type Error struct {
	XMLName xml.Name `xml:"urn:schemas-upnp-org:control-1-0 UPnPError"`
	Code    uint     `xml:"errorCode"`
	Desc    string   `xml:"errorDescription"`
}

type Action struct {
	Name      string     `xml:"name"`
	Arguments []Argument `xml:"argumentList>argument"`
}

type Argument struct {
	Name            string `xml:"name"`
	Direction       string `xml:"direction"`
	RelatedStateVar string `xml:"relatedStateVariable"`
}

type SCPD struct {
	XMLName           xml.Name        `xml:"urn:schemas-upnp-org:service-1-0 scpd"`
	SpecVersion       SpecVersion     `xml:"specVersion"`
	ActionList        []Action        `xml:"actionList>action"`
	ServiceStateTable []StateVariable `xml:"serviceStateTable>stateVariable"`
}

type StateVariable struct {
	SendEvents    string   `xml:"sendEvents,attr"`
	Name          string   `xml:"name"`
	DataType      string   `xml:"dataType"`
	AllowedValues []string `xml:"allowedValueList>allowedValue"`
}

func FormatUUID(buf []byte) string {
	return fmt.Sprintf("uuid:%x-%x-%x-%x-%x", buf[:4], buf[4:6], buf[6:8], buf[8:10], buf[10:16])
}
