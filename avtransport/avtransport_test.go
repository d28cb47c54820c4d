package avtransport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviesite/dmc/avtransport"
	"github.com/moviesite/dmc/upnp"
	"github.com/moviesite/dmc/upnptest"
)

func openRenderer(t *testing.T, fake *upnptest.Renderer) *upnp.Device {
	t.Helper()
	t.Cleanup(fake.Close)
	dev, err := upnp.Open(context.Background(), fake.DescURL())
	require.NoError(t, err)
	return dev
}

func TestPlaySequence(t *testing.T) {
	fake := upnptest.NewRenderer("ACME")
	dev := openRenderer(t, fake)

	var ctrl avtransport.Controller
	err := ctrl.Play(context.Background(), dev, "http://media/12.mkv", avtransport.MediaInfo{
		ID:       12,
		Title:    "Blade Runner",
		Duration: 117 * time.Minute,
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Stop", calls[0].Action)
	assert.Equal(t, "SetAVTransportURI", calls[1].Action)
	assert.Equal(t, "http://media/12.mkv", calls[1].Args["CurrentURI"])
	metadata := calls[1].Args["CurrentURIMetaData"]
	assert.Contains(t, metadata, "Blade Runner")
	assert.Contains(t, metadata, "video/x-matroska")
	assert.Contains(t, metadata, "1:57:00")
	assert.Equal(t, "Play", calls[2].Action)
	assert.Equal(t, "1", calls[2].Args["Speed"])
}

func TestPlaySamsungSendsNoMetadata(t *testing.T) {
	fake := upnptest.NewRenderer("Samsung Electronics")
	dev := openRenderer(t, fake)

	var ctrl avtransport.Controller
	err := ctrl.Play(context.Background(), dev, "http://media/12.mkv", avtransport.MediaInfo{
		ID:    12,
		Title: "Blade Runner",
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "", calls[1].Args["CurrentURIMetaData"])
}

func TestPlaySurvivesStopFault(t *testing.T) {
	fake := upnptest.NewRenderer("ACME")
	fake.FailStop = true
	dev := openRenderer(t, fake)

	var ctrl avtransport.Controller
	err := ctrl.Play(context.Background(), dev, "http://media/12.mkv", avtransport.MediaInfo{ID: 12})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "SetAVTransportURI", calls[1].Action)
	assert.Equal(t, "Play", calls[2].Action)
}

func TestPlayWithoutAVTransport(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{ID: "0", Container: true})
	t.Cleanup(fake.Close)
	dev, err := upnp.Open(context.Background(), fake.DescURL())
	require.NoError(t, err)

	var ctrl avtransport.Controller
	err = ctrl.Play(context.Background(), dev, "http://media/12.mkv", avtransport.MediaInfo{ID: 12})
	assert.ErrorIs(t, err, avtransport.ErrNotSupported)
}

func TestMimeTypeByURI(t *testing.T) {
	assert.Equal(t, "video/x-matroska", avtransport.MimeTypeByURI("http://host/a.mkv"))
	assert.Equal(t, "video/mp4", avtransport.MimeTypeByURI("http://host/a.MP4?session=1"))
	assert.Equal(t, "video/x", avtransport.MimeTypeByURI("http://host/a.unknown"))
	assert.Equal(t, "video/x", avtransport.MimeTypeByURI("http://host/noext"))
}
