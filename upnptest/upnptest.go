// Package upnptest provides in-process fake UPnP devices for tests. The
// fakes speak the real wire format: XML descriptions, SCPDs, SOAP control
// and DIDL-Lite results.
package upnptest

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/moviesite/dmc/soap"
	"github.com/moviesite/dmc/upnpav"
)

const (
	contentDirectoryType = "urn:schemas-upnp-org:service:ContentDirectory:1"
	avTransportType      = "urn:schemas-upnp-org:service:AVTransport:1"
)

// Object is a node of a fake content tree. A nil Children with Container
// false makes it an item.
type Object struct {
	ID           string
	Title        string
	Class        string
	URI          string
	ProtocolInfo string
	Container    bool
	Children     []*Object
	// RawDIDL, when set, is served verbatim instead of a marshalled
	// object, for feeding malformed entries to the extractor.
	RawDIDL string
}

func (me *Object) find(id string) *Object {
	if me.ID == id {
		return me
	}
	for _, child := range me.Children {
		if found := child.find(id); found != nil {
			return found
		}
	}
	return nil
}

func (me *Object) didl() string {
	if me.RawDIDL != "" {
		return me.RawDIDL
	}
	var raw []byte
	if me.Container {
		raw, _ = xml.Marshal(upnpav.Container{
			Object: upnpav.Object{
				ID:         me.ID,
				Restricted: 1,
				Class:      orDefault(me.Class, "object.container.storageFolder"),
				Title:      me.Title,
			},
			ChildCount: len(me.Children),
		})
	} else {
		raw, _ = xml.Marshal(upnpav.Item{
			Object: upnpav.Object{
				ID:         me.ID,
				Restricted: 1,
				Class:      orDefault(me.Class, "object.item.videoItem"),
				Title:      me.Title,
			},
			Res: []upnpav.Resource{{
				ProtocolInfo: me.ProtocolInfo,
				URL:          me.URI,
			}},
		})
	}
	return string(raw)
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func didlDocument(objects ...*Object) string {
	body := ""
	for _, object := range objects {
		body += object.didl()
	}
	return `<DIDL-Lite xmlns="` + upnpav.NamespaceDIDL +
		`" xmlns:dc="` + upnpav.NamespaceDC +
		`" xmlns:upnp="` + upnpav.NamespaceUPnP + `">` + body + `</DIDL-Lite>`
}

// MediaServer is a fake ContentDirectory device.
type MediaServer struct {
	FriendlyName string
	Manufacturer string
	Root         *Object
	srv          *httptest.Server
}

func NewMediaServer(root *Object) *MediaServer {
	me := &MediaServer{
		FriendlyName: "Fake Media Server",
		Manufacturer: "ACME",
		Root:         root,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/desc.xml", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, descriptionXML(me.FriendlyName, me.Manufacturer,
			"urn:schemas-upnp-org:device:MediaServer:1", contentDirectoryType, "ContentDirectory"))
	})
	mux.HandleFunc("/scpd.xml", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, contentDirectorySCPD)
	})
	mux.HandleFunc("/ctl", me.control)
	me.srv = httptest.NewServer(mux)
	return me
}

func (me *MediaServer) DescURL() string { return me.srv.URL + "/desc.xml" }
func (me *MediaServer) Close()          { me.srv.Close() }

func (me *MediaServer) control(w http.ResponseWriter, r *http.Request) {
	msg, err := readMessage(r)
	if err != nil || msg.Action != "Browse" {
		writeFault(w, 401, "Invalid Action")
		return
	}
	args := msg.ArgMap()
	object := me.Root.find(args["ObjectID"])
	if object == nil {
		writeFault(w, 701, "No such object")
		return
	}
	var result string
	switch args["BrowseFlag"] {
	case "BrowseMetadata":
		result = didlDocument(object)
	default:
		result = didlDocument(object.Children...)
	}
	writeResponse(w, contentDirectoryType, "BrowseResponse", []soap.Arg{
		soap.NewArg("Result", result),
		soap.NewArg("NumberReturned", strconv.Itoa(len(object.Children))),
		soap.NewArg("TotalMatches", strconv.Itoa(len(object.Children))),
		soap.NewArg("UpdateID", "0"),
	})
}

// Call is one recorded control invocation on a fake renderer.
type Call struct {
	Action string
	Args   map[string]string
}

// Renderer is a fake AVTransport device that records what it is told.
type Renderer struct {
	FriendlyName string
	Manufacturer string
	// FailStop makes Stop answer with a SOAP fault, as idle renderers do.
	FailStop bool

	mu    sync.Mutex
	calls []Call
	srv   *httptest.Server
}

func NewRenderer(manufacturer string) *Renderer {
	me := &Renderer{
		FriendlyName: "Fake Renderer",
		Manufacturer: manufacturer,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/desc.xml", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, descriptionXML(me.FriendlyName, me.Manufacturer,
			"urn:schemas-upnp-org:device:MediaRenderer:1", avTransportType, "AVTransport"))
	})
	mux.HandleFunc("/scpd.xml", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, avTransportSCPD)
	})
	mux.HandleFunc("/ctl", me.control)
	me.srv = httptest.NewServer(mux)
	return me
}

func (me *Renderer) DescURL() string { return me.srv.URL + "/desc.xml" }
func (me *Renderer) Close()          { me.srv.Close() }

func (me *Renderer) Calls() []Call {
	me.mu.Lock()
	defer me.mu.Unlock()
	return append([]Call(nil), me.calls...)
}

func (me *Renderer) control(w http.ResponseWriter, r *http.Request) {
	msg, err := readMessage(r)
	if err != nil {
		writeFault(w, 401, "Invalid Action")
		return
	}
	me.mu.Lock()
	me.calls = append(me.calls, Call{Action: msg.Action, Args: msg.ArgMap()})
	me.mu.Unlock()
	if msg.Action == "Stop" && me.FailStop {
		writeFault(w, 701, "Transition not available")
		return
	}
	writeResponse(w, avTransportType, msg.Action+"Response", nil)
}

func readMessage(r *http.Request) (*soap.Message, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var env soap.Envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Parse(), nil
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	fmt.Fprint(w, body)
}

func writeResponse(w http.ResponseWriter, serviceType, action string, args []soap.Arg) {
	msg := soap.Message{ServiceType: serviceType, Action: action, Args: args}
	raw, _ := xml.Marshal(msg.Wrap())
	writeXML(w, xml.Header+string(raw))
}

func writeFault(w http.ResponseWriter, code uint, desc string) {
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>%d</errorCode>
          <errorDescription>%s</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`, code, desc)
}

func descriptionXML(friendlyName, manufacturer, deviceType, serviceType, serviceName string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>%s</deviceType>
    <friendlyName>%s</friendlyName>
    <manufacturer>%s</manufacturer>
    <modelDescription>fake device for tests</modelDescription>
    <modelName>upnptest</modelName>
    <modelNumber>1.0</modelNumber>
    <serialNumber>00000001</serialNumber>
    <UDN>uuid:00000000-0000-0000-0000-000000000001</UDN>
    <serviceList>
      <service>
        <serviceType>%s</serviceType>
        <serviceId>urn:upnp-org:serviceId:%s</serviceId>
        <SCPDURL>/scpd.xml</SCPDURL>
        <controlURL>/ctl</controlURL>
        <eventSubURL>/evt</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`, deviceType, friendlyName, manufacturer, serviceType, serviceName)
}

const contentDirectorySCPD = `<?xml version="1.0" encoding="utf-8"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
    <action>
      <name>Browse</name>
      <argumentList>
        <argument><name>ObjectID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_ObjectID</relatedStateVariable></argument>
        <argument><name>BrowseFlag</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_BrowseFlag</relatedStateVariable></argument>
        <argument><name>Filter</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_Filter</relatedStateVariable></argument>
        <argument><name>StartingIndex</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_Index</relatedStateVariable></argument>
        <argument><name>RequestedCount</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_Count</relatedStateVariable></argument>
        <argument><name>SortCriteria</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_SortCriteria</relatedStateVariable></argument>
        <argument><name>Result</name><direction>out</direction><relatedStateVariable>A_ARG_TYPE_Result</relatedStateVariable></argument>
        <argument><name>NumberReturned</name><direction>out</direction><relatedStateVariable>A_ARG_TYPE_Count</relatedStateVariable></argument>
        <argument><name>TotalMatches</name><direction>out</direction><relatedStateVariable>A_ARG_TYPE_Count</relatedStateVariable></argument>
        <argument><name>UpdateID</name><direction>out</direction><relatedStateVariable>A_ARG_TYPE_UpdateID</relatedStateVariable></argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_ObjectID</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_BrowseFlag</name><dataType>string</dataType>
      <allowedValueList><allowedValue>BrowseMetadata</allowedValue><allowedValue>BrowseDirectChildren</allowedValue></allowedValueList>
    </stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_Filter</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_Index</name><dataType>ui4</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_Count</name><dataType>ui4</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_SortCriteria</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_Result</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_UpdateID</name><dataType>ui4</dataType></stateVariable>
  </serviceStateTable>
</scpd>`

const avTransportSCPD = `<?xml version="1.0" encoding="utf-8"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
    <action>
      <name>SetAVTransportURI</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
        <argument><name>CurrentURI</name><direction>in</direction><relatedStateVariable>AVTransportURI</relatedStateVariable></argument>
        <argument><name>CurrentURIMetaData</name><direction>in</direction><relatedStateVariable>AVTransportURIMetaData</relatedStateVariable></argument>
      </argumentList>
    </action>
    <action>
      <name>Play</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
        <argument><name>Speed</name><direction>in</direction><relatedStateVariable>TransportPlaySpeed</relatedStateVariable></argument>
      </argumentList>
    </action>
    <action>
      <name>Stop</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="yes"><name>TransportState</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>AVTransportURI</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>AVTransportURIMetaData</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>TransportPlaySpeed</name><dataType>string</dataType></stateVariable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_InstanceID</name><dataType>ui4</dataType></stateVariable>
  </serviceStateTable>
</scpd>`
