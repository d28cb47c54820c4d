package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

// Devices can return kilobytes of DIDL-Lite per Browse; anything past this
// is a device gone haywire.
const maxResponseBody = 4 << 20

// FaultError is a SOAP fault decoded from a control response. Faults are
// ordinary protocol outcomes for UPnP devices, not programming errors.
type FaultError struct {
	FaultString string
	Code        uint
	Desc        string
}

func (me *FaultError) Error() string {
	if me.Desc != "" {
		return fmt.Sprintf("UPnPError %d: %s", me.Code, me.Desc)
	}
	return fmt.Sprintf("soap fault: %s", me.FaultString)
}

type fault struct {
	XMLName     xml.Name `xml:"Fault"`
	FaultCode   string   `xml:"faultcode"`
	FaultString string   `xml:"faultstring"`
	Detail      struct {
		UPnPError struct {
			Code uint   `xml:"errorCode"`
			Desc string `xml:"errorDescription"`
		} `xml:"UPnPError"`
	} `xml:"detail"`
}

// respEnvelope defers body decoding so the same bytes can be retried as an
// action response or a fault.
type respEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Raw []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// Call performs one synchronous SOAP action round trip. The returned map
// holds the response's output arguments by name.
func Call(ctx context.Context, client *http.Client, controlURL, serviceType, action string, args []Arg) (map[string]string, error) {
	msg := Message{ServiceType: serviceType, Action: action, Args: args}
	body, err := xml.Marshal(msg.Wrap())
	if err != nil {
		return nil, err
	}
	payload := append([]byte(xml.Header), body...)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf(`"%s#%s"`, serviceType, action))
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s#%s: %w", serviceType, action, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%s#%s: reading response: %w", serviceType, action, err)
	}
	var env respEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s#%s: bad envelope: %w", serviceType, action, err)
	}
	var act Action
	if err := xml.Unmarshal(env.Body.Raw, &act); err != nil {
		return nil, fmt.Errorf("%s#%s: bad response body: %w", serviceType, action, err)
	}
	if resp.StatusCode != http.StatusOK || act.XMLName.Local == "Fault" {
		var f fault
		if err := xml.Unmarshal(env.Body.Raw, &f); err == nil && f.XMLName.Local == "Fault" {
			return nil, &FaultError{
				FaultString: f.FaultString,
				Code:        f.Detail.UPnPError.Code,
				Desc:        f.Detail.UPnPError.Desc,
			}
		}
		return nil, fmt.Errorf("%s#%s: %s", serviceType, action, resp.Status)
	}
	ret := make(map[string]string, len(act.Args))
	for _, arg := range act.Args {
		ret[arg.XMLName.Local] = arg.Value
	}
	return ret, nil
}
