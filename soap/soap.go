package soap

import (
	"encoding/xml"
)

const (
	EncodingStyle = "http://schemas.xmlsoap.org/soap/encoding/"
)

type Arg struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// NewArg names an action argument without the xml.Name boilerplate.
func NewArg(name, value string) Arg {
	return Arg{XMLName: xml.Name{Local: name}, Value: value}
}

type Action struct {
	XMLName xml.Name
	Args    []Arg `xml:",any"`
}

type Body struct {
	Action Action `xml:",any"`
}

type Envelope struct {
	XMLName       xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	EncodingStyle string   `xml:"encodingStyle,attr"`
	Body          Body     `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

type Message struct {
	ServiceType string
	Action      string
	// Args keep their declaration order on the wire. Some devices check
	// arguments against the SCPD order.
	Args []Arg
}

func (me *Envelope) Parse() *Message {
	return &Message{
		ServiceType: me.Body.Action.XMLName.Space,
		Action:      me.Body.Action.XMLName.Local,
		Args:        me.Body.Action.Args,
	}
}

func (me *Message) Wrap() *Envelope {
	return &Envelope{
		EncodingStyle: EncodingStyle,
		Body: Body{
			Action{
				XMLName: xml.Name{
					Space: me.ServiceType,
					Local: me.Action,
				},
				Args: me.Args,
			},
		},
	}
}

// ArgMap flattens ordered args for response consumers.
func (me *Message) ArgMap() map[string]string {
	ret := make(map[string]string, len(me.Args))
	for _, arg := range me.Args {
		ret[arg.XMLName.Local] = arg.Value
	}
	return ret
}
