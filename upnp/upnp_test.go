package upnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceType(t *testing.T) {
	urn, err := ParseServiceType("urn:schemas-upnp-org:service:ContentDirectory:1")
	require.NoError(t, err)
	assert.Equal(t, "schemas-upnp-org", urn.Domain)
	assert.Equal(t, "ContentDirectory", urn.Type)
	assert.EqualValues(t, 1, urn.Version)
	assert.Equal(t, "urn:schemas-upnp-org:service:ContentDirectory:1", urn.String())
}

func TestParseServiceTypeRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"",
		"urn:schemas-upnp-org:device:MediaServer:1",
		"urn:schemas-upnp-org:service:ContentDirectory",
	} {
		_, err := ParseServiceType(s)
		assert.Error(t, err, s)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindMediaServer, Classify("urn:schemas-upnp-org:device:MediaServer:1"))
	assert.Equal(t, KindMediaRenderer, Classify("urn:schemas-upnp-org:device:MediaRenderer:2"))
	assert.Equal(t, KindOther, Classify("urn:schemas-upnp-org:device:InternetGatewayDevice:1"))
	assert.Equal(t, KindOther, Classify("bogus"))
}

func TestFormatUUID(t *testing.T) {
	assert.Equal(t,
		"uuid:00010203-0405-0607-0809-0a0b0c0d0e0f",
		FormatUUID([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}))
}
