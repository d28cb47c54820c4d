// Package avtransport drives playback on a renderer device: stop whatever
// is playing, set the content URI with renderer-appropriate metadata, play.
package avtransport

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anacrolix/log"

	"github.com/moviesite/dmc/dlna"
	"github.com/moviesite/dmc/soap"
	"github.com/moviesite/dmc/upnp"
	"github.com/moviesite/dmc/upnpav"
)

var ErrNotSupported = errors.New("device does not support required action")

// MediaInfo carries enough catalog metadata to synthesize DIDL-Lite for
// renderers that want it.
type MediaInfo struct {
	ID         int64
	Title      string
	Bitrate    uint
	Resolution string
	Size       uint64
	Duration   time.Duration
}

type Controller struct {
	Logger log.Logger
}

func (me *Controller) logger() log.Logger {
	if me.Logger.IsZero() {
		return log.Default.WithNames("avtransport")
	}
	return me.Logger
}

// Play stops the renderer's current transport (best effort), sets the
// content URI and starts playback at normal speed. Failures come back as
// errors whose text is fit for end users; SOAP faults surface their fault
// detail.
func (me *Controller) Play(ctx context.Context, renderer *upnp.Device, contentURI string, media MediaInfo) error {
	svc, err := renderer.Service("AVTransport")
	if err != nil {
		return fmt.Errorf("%w: AVTransport", ErrNotSupported)
	}
	// An idle renderer legitimately rejects Stop.
	if _, err := svc.Call(ctx, "Stop", []soap.Arg{
		soap.NewArg("InstanceID", "0"),
	}); err != nil {
		me.logger().Levelf(log.Debug, "stop before play on %q: %v", renderer.FriendlyName, err)
	}
	if _, err := svc.Call(ctx, "SetAVTransportURI", []soap.Arg{
		soap.NewArg("InstanceID", "0"),
		soap.NewArg("CurrentURI", contentURI),
		soap.NewArg("CurrentURIMetaData", buildMetadata(renderer, contentURI, media)),
	}); err != nil {
		return wrapCallError(err)
	}
	if _, err := svc.Call(ctx, "Play", []soap.Arg{
		soap.NewArg("InstanceID", "0"),
		soap.NewArg("Speed", "1"),
	}); err != nil {
		return wrapCallError(err)
	}
	return nil
}

func wrapCallError(err error) error {
	if errors.Is(err, upnp.ErrActionMissing) {
		return fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	return err
}

// metadataStrategies pairs a renderer predicate with a metadata builder.
// First match wins; the fallback is full DIDL-Lite.
var metadataStrategies = []struct {
	match func(*upnp.Device) bool
	build func(uri string, media MediaInfo) string
}{
	// Samsung renderers play more reliably with no embedded metadata.
	{matchManufacturer("samsung"), func(string, MediaInfo) string { return "" }},
}

func matchManufacturer(prefix string) func(*upnp.Device) bool {
	return func(dev *upnp.Device) bool {
		return strings.HasPrefix(strings.ToLower(dev.Manufacturer), prefix)
	}
}

func buildMetadata(renderer *upnp.Device, uri string, media MediaInfo) string {
	for _, strategy := range metadataStrategies {
		if strategy.match(renderer) {
			return strategy.build(uri, media)
		}
	}
	return didlMetadata(uri, media)
}

func didlMetadata(uri string, media MediaInfo) string {
	item := upnpav.Item{
		Object: upnpav.Object{
			ID:         strconv.FormatInt(media.ID, 10),
			ParentID:   "-1",
			Restricted: 1,
			Class:      "object.item.videoItem",
			Title:      media.Title,
		},
		Res: []upnpav.Resource{{
			ProtocolInfo: fmt.Sprintf("http-get:*:%s:%s", MimeTypeByURI(uri), dlna.ContentFeatures{
				SupportRange: true,
			}.String()),
			URL:        uri,
			Bitrate:    media.Bitrate,
			Resolution: media.Resolution,
			Size:       media.Size,
			Duration:   dlna.FormatDuration(media.Duration),
		}},
	}
	raw, err := xml.Marshal(upnpav.WrapItems(item))
	if err != nil {
		return ""
	}
	return string(raw)
}
