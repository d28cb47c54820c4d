package upnpav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const didlHeader = `<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">`

func parseOne(t *testing.T, didl string) Node {
	t.Helper()
	nodes, err := ParseDIDL(didlHeader + didl + `</DIDL-Lite>`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	return nodes[0]
}

func TestExtractItem(t *testing.T) {
	node := parseOne(t, `<item id="12" parentID="3" restricted="1">`+
		`<dc:title>Alien</dc:title>`+
		`<upnp:class>object.item.videoItem</upnp:class>`+
		`<res protocolInfo="http-get:*:video/x-matroska:*">http://192.168.1.2/media/12.mkv</res>`+
		`</item>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.Equal(t, "12", content.ID)
	assert.True(t, content.IsItem())
	assert.Equal(t, "Alien", content.Title)
	assert.Equal(t, "object.item.videoItem", content.Class)
	assert.Equal(t, "http://192.168.1.2/media/12.mkv", content.URI)
	assert.Equal(t, "http-get:*:video/x-matroska:*", content.ProtocolInfo)
}

func TestExtractContainer(t *testing.T) {
	node := parseOne(t, `<container id="3" parentID="0" restricted="1" childCount="2">`+
		`<dc:title>Movies</dc:title>`+
		`<upnp:class>object.container.storageFolder</upnp:class>`+
		`</container>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.True(t, content.IsContainer())
	assert.Equal(t, "Movies", content.Title)
	assert.Empty(t, content.URI)
}

func TestExtractPrefersNonTranscodedRes(t *testing.T) {
	node := parseOne(t, `<item id="7">`+
		`<dc:title>Dune</dc:title>`+
		`<res protocolInfo="http-get:*:video/mpeg:DLNA.ORG_CI=1">http://host/transcoded.mpg</res>`+
		`<res protocolInfo="http-get:*:video/x-matroska:DLNA.ORG_CI=0">http://host/plain.mkv</res>`+
		`</item>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.Equal(t, "http://host/plain.mkv", content.URI)
}

func TestExtractAllTranscodedKeepsFirstRes(t *testing.T) {
	node := parseOne(t, `<item id="7">`+
		`<res protocolInfo="http-get:*:video/mpeg:DLNA.ORG_CI=1">http://host/a.mpg</res>`+
		`<res protocolInfo="http-get:*:video/mpeg:DLNA.ORG_CI=1">http://host/b.mpg</res>`+
		`</item>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.Equal(t, "http://host/a.mpg", content.URI)
}

func TestExtractMissingID(t *testing.T) {
	for _, didl := range []string{
		`<item><dc:title>nameless</dc:title></item>`,
		`<item id=""><dc:title>blank</dc:title></item>`,
	} {
		_, ok := Extract(parseOne(t, didl))
		assert.False(t, ok, didl)
	}
}

func TestExtractUnknownChildrenIgnored(t *testing.T) {
	node := parseOne(t, `<item id="9">`+
		`<dc:date>2024-01-01</dc:date>`+
		`<upnp:genre>Drama</upnp:genre>`+
		`</item>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.Equal(t, "9", content.ID)
	assert.Empty(t, content.Title)
	assert.Empty(t, content.URI)
}

func TestExtractMusicFields(t *testing.T) {
	node := parseOne(t, `<item id="41">`+
		`<dc:title>Track</dc:title>`+
		`<dc:creator>Artist</dc:creator>`+
		`<upnp:album>Album</upnp:album>`+
		`<upnp:originalTrackNumber>4</upnp:originalTrackNumber>`+
		`</item>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.Equal(t, "Artist", content.Artist)
	assert.Equal(t, "Album", content.Album)
	assert.Equal(t, "4", content.Track)
}

func TestTruncateClass(t *testing.T) {
	node := parseOne(t, `<item id="5"><upnp:class>object.item.videoItem.movie</upnp:class></item>`)
	content, ok := Extract(node)
	require.True(t, ok)
	assert.Equal(t, "object.item.videoItem", content.Class)
}

func TestParseDIDLMalformed(t *testing.T) {
	_, err := ParseDIDL(`<DIDL-Lite><item`)
	assert.Error(t, err)
}
