package upnp_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviesite/dmc/soap"
	"github.com/moviesite/dmc/upnp"
	"github.com/moviesite/dmc/upnptest"
)

func TestOpenMediaServer(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{ID: "0", Container: true})
	defer fake.Close()

	dev, err := upnp.Open(context.Background(), fake.DescURL())
	require.NoError(t, err)
	assert.Equal(t, "Fake Media Server", dev.FriendlyName)
	assert.Equal(t, "ACME", dev.Manufacturer)
	assert.Equal(t, upnp.KindMediaServer, upnp.Classify(dev.DeviceType))

	svc, err := dev.Service("ContentDirectory")
	require.NoError(t, err)
	assert.True(t, svc.HasAction("Browse"))
	assert.False(t, svc.HasAction("Search"))

	_, err = dev.Service("AVTransport")
	assert.ErrorIs(t, err, upnp.ErrServiceMissing)
}

func TestOpenUnreachable(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{ID: "0", Container: true})
	fake.Close()

	_, err := upnp.Open(context.Background(), fake.DescURL())
	assert.ErrorIs(t, err, upnp.ErrDeviceUnavailable)
}

func TestCallUndeclaredAction(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{ID: "0", Container: true})
	defer fake.Close()

	dev, err := upnp.Open(context.Background(), fake.DescURL())
	require.NoError(t, err)
	svc, err := dev.Service("ContentDirectory")
	require.NoError(t, err)

	_, err = svc.Call(context.Background(), "DestroyObject", []soap.Arg{
		soap.NewArg("ObjectID", "0"),
	})
	assert.ErrorIs(t, err, upnp.ErrActionMissing)
}

func TestDescribeVerbosity(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{ID: "0", Container: true})
	defer fake.Close()

	dev, err := upnp.Open(context.Background(), fake.DescURL())
	require.NoError(t, err)

	var identity bytes.Buffer
	dev.Describe(&identity, 0)
	assert.Contains(t, identity.String(), "Device Friendly Name: Fake Media Server")
	assert.NotContains(t, identity.String(), "services availables")

	var services bytes.Buffer
	dev.Describe(&services, 2)
	assert.Contains(t, services.String(), "services availables:")
	assert.Contains(t, services.String(), "action 'Browse'")
	assert.NotContains(t, services.String(), "in: ObjectID")

	var full bytes.Buffer
	dev.Describe(&full, 3)
	assert.Contains(t, full.String(), "in: ObjectID (string): *")
	assert.Contains(t, full.String(), "in: BrowseFlag (string): BrowseMetadata, BrowseDirectChildren")
	assert.Contains(t, full.String(), "out: Result (string): *")
}
