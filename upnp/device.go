package upnp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anacrolix/log"

	"github.com/moviesite/dmc/soap"
)

// DefaultConnectTimeout bounds dialing only. SOAP calls themselves run with
// the transport defaults so long tree walks aren't cut short.
const DefaultConnectTimeout = 5 * time.Second

var (
	// ErrDeviceUnavailable covers unreachable or unresponsive devices.
	// Flaky home-network UPnP gear is the norm; callers report this, they
	// don't crash on it.
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrServiceMissing    = errors.New("service not available on device")
	ErrActionMissing     = errors.New("action not available on device")
)

// Device is an opened remote UPnP endpoint. It is rebuilt per invocation
// and never shared across concurrent operations.
type Device struct {
	Location         string
	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ModelDescription string
	ModelName        string
	ModelNumber      string
	SerialNumber     string
	UDN              string
	Services         []*Service

	client *http.Client
	logger log.Logger
}

// Service is one service exposed by a Device, with its SCPD action table.
type Service struct {
	Type       string
	ID         string
	ControlURL string
	SCPDURL    string
	Actions    []Action

	stateVars map[string]StateVariable
	dev       *Device
}

func defaultClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: DefaultConnectTimeout,
			}).DialContext,
		},
	}
}

// Open fetches and parses a device description document. An unreachable
// device yields ErrDeviceUnavailable.
func Open(ctx context.Context, location string) (*Device, error) {
	return OpenWith(ctx, location, nil, log.Default)
}

func OpenWith(ctx context.Context, location string, client *http.Client, logger log.Logger) (*Device, error) {
	if client == nil {
		client = defaultClient()
	}
	var desc DeviceDesc
	if err := fetchXML(ctx, client, location, &desc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, location, err)
	}
	base, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	if desc.URLBase != "" {
		if u, err := url.Parse(desc.URLBase); err == nil {
			base = u
		}
	}
	dev := &Device{
		Location:         location,
		DeviceType:       desc.Device.DeviceType,
		FriendlyName:     desc.Device.FriendlyName,
		Manufacturer:     desc.Device.Manufacturer,
		ModelDescription: desc.Device.ModelDescription,
		ModelName:        desc.Device.ModelName,
		ModelNumber:      desc.Device.ModelNumber,
		SerialNumber:     desc.Device.SerialNumber,
		UDN:              desc.Device.UDN,
		client:           client,
		logger:           logger.WithNames("upnp"),
	}
	for _, sd := range desc.Device.ServiceList {
		svc := &Service{
			Type:       sd.ServiceType,
			ID:         sd.ServiceId,
			ControlURL: resolveURL(base, sd.ControlURL),
			SCPDURL:    resolveURL(base, sd.SCPDURL),
			dev:        dev,
		}
		var scpd SCPD
		if err := fetchXML(ctx, client, svc.SCPDURL, &scpd); err != nil {
			// A broken SCPD leaves the service listed but uninvokable,
			// matching how a missing action is reported.
			dev.logger.Levelf(log.Debug, "scpd for %s on %s: %v", sd.ServiceType, dev.FriendlyName, err)
		} else {
			svc.Actions = scpd.ActionList
			svc.stateVars = make(map[string]StateVariable, len(scpd.ServiceStateTable))
			for _, sv := range scpd.ServiceStateTable {
				svc.stateVars[sv.Name] = sv
			}
		}
		dev.Services = append(dev.Services, svc)
	}
	return dev, nil
}

func fetchXML(ctx context.Context, client *http.Client, location string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: %s", location, resp.Status)
	}
	return xml.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v)
}

func resolveURL(base *url.URL, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// Service finds a service by its short type name, e.g. "ContentDirectory".
func (me *Device) Service(name string) (*Service, error) {
	for _, svc := range me.Services {
		if urn, err := ParseServiceType(svc.Type); err == nil && urn.Type == name {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceMissing, name)
}

func (me *Service) HasAction(name string) bool {
	for _, a := range me.Actions {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Call invokes an action declared by the service's SCPD. An undeclared
// action fails with ErrActionMissing rather than going to the wire.
func (me *Service) Call(ctx context.Context, action string, args []soap.Arg) (map[string]string, error) {
	if !me.HasAction(action) {
		return nil, fmt.Errorf("%w: %s", ErrActionMissing, action)
	}
	me.dev.logger.Levelf(log.Debug, "%s#%s on %q", me.Type, action, me.dev.FriendlyName)
	return soap.Call(ctx, me.dev.client, me.ControlURL, me.Type, action, args)
}

// Describe writes a human-readable dump of the device. Verbosity: 0
// identity only, 1 adds manufacturer/serial, 2 adds actions, 3 adds
// argument signatures.
func (me *Device) Describe(w io.Writer, verbosity int) {
	fmt.Fprintf(w, "Device Friendly Name: %s\n", me.FriendlyName)
	fmt.Fprintf(w, "  model description: %s\n", me.ModelDescription)
	fmt.Fprintf(w, "  model name: %s\n", me.ModelName)
	fmt.Fprintf(w, "  location: %s\n", me.Location)
	fmt.Fprintf(w, "  device name: %s\n", me.UDN)
	fmt.Fprintf(w, "  device type: %s\n", me.DeviceType)
	if verbosity < 1 {
		return
	}
	fmt.Fprintf(w, "  manufacturer: %s\n", me.Manufacturer)
	fmt.Fprintf(w, "  model number: %s\n", me.ModelNumber)
	fmt.Fprintf(w, "  serial number: %s\n", me.SerialNumber)
	fmt.Fprintf(w, "  services availables:\n")
	for _, svc := range me.Services {
		svc.describe(w, verbosity)
	}
}

func (me *Service) describe(w io.Writer, verbosity int) {
	fmt.Fprintf(w, "    type: '%s'  id: '%s'\n", me.Type, me.ID)
	if verbosity < 2 {
		return
	}
	for _, action := range me.Actions {
		fmt.Fprintf(w, "      action '%s'\n", action.Name)
		if verbosity < 3 {
			continue
		}
		for _, arg := range action.Arguments {
			sv := me.stateVars[arg.RelatedStateVar]
			allowed := strings.Join(sv.AllowedValues, ", ")
			if allowed == "" {
				allowed = "*"
			}
			switch arg.Direction {
			case "out":
				fmt.Fprintf(w, "        out: %s (%s): %s\n", arg.Name, sv.DataType, allowed)
			default:
				fmt.Fprintf(w, "         in: %s (%s): %s\n", arg.Name, sv.DataType, allowed)
			}
		}
	}
}
