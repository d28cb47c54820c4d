// Package control is the surface the web/API layer consumes: play a
// catalog entry on a renderer, browse a media server's tree, run
// discovery, audit catalog files against server contents. All remote
// trouble comes back as short human-readable reasons, never as panics or
// stack traces.
package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/anacrolix/log"

	"github.com/moviesite/dmc/avtransport"
	"github.com/moviesite/dmc/cds"
	"github.com/moviesite/dmc/ssdp"
	"github.com/moviesite/dmc/upnp"
)

const (
	ProtocolDLNA    = "dlna"
	ProtocolVLC     = "vlc"
	ProtocolBrowser = "browser"
)

var (
	// ErrNotConfigured is a configuration gap, distinct from a device
	// being unreachable.
	ErrNotConfigured = errors.New("not configured")
	ErrNoMediaServer = errors.New("no media server")
)

type Controller struct {
	Config *Config
	Logger log.Logger

	av avtransport.Controller
}

func New(cfg *Config) *Controller {
	logger := log.Default.WithNames("control")
	return &Controller{
		Config: cfg,
		Logger: logger,
		av:     avtransport.Controller{Logger: logger},
	}
}

type PlayRequest struct {
	// File is the catalog path, e.g. `v:\films\The Movie.mkv`. Its volume
	// letter selects the media server; its base name (sans extension) is
	// the title searched for.
	File        string
	RendererURL string
	Media       avtransport.MediaInfo
}

// PlayResult is the tagless outcome the web layer forwards: Protocol is
// dlna/vlc/browser or empty on failure, Result the success token, content
// URI, or failure reason.
type PlayResult struct {
	Protocol string `json:"protocol"`
	Result   string `json:"result"`
}

func failure(reason string) PlayResult {
	return PlayResult{Protocol: "", Result: reason}
}

// PlayMovie locates a catalog entry on its volume's media server and
// plays it on the chosen renderer (or pseudo protocol).
func (me *Controller) PlayMovie(ctx context.Context, req PlayRequest) PlayResult {
	volume, basename := splitCatalogPath(req.File)
	renderer := req.RendererURL
	if renderer == "" {
		renderer = me.Config.DefaultRenderer()
	}
	target, ok := me.Config.Volume(volume)
	if !ok {
		return failure("volume not configured")
	}
	if target.DeviceURL == "" {
		if renderer == ProtocolVLC {
			// Hands the original file path to a local vlc-protocol handler.
			return PlayResult{ProtocolVLC, "vlc://" + req.File}
		}
		return failure("no media server configured for volume")
	}
	server, err := upnp.Open(ctx, target.DeviceURL)
	if err != nil {
		me.Logger.Printf("opening media server %s: %v", target.DeviceURL, err)
		return failure("no media server")
	}
	nav := cds.New(server)
	rootID, err := nav.RootObjectID(ctx)
	if err != nil {
		me.Logger.Printf("root of %s: %v", server.FriendlyName, err)
		return failure("no media server")
	}
	dirID, err := nav.ResolvePath(ctx, rootID, target.Path)
	if err != nil {
		return failure(browseReason(err))
	}
	content, err := nav.FindTitle(ctx, dirID, basename)
	if err != nil {
		return failure(browseReason(err))
	}
	switch renderer {
	case ProtocolVLC:
		return PlayResult{ProtocolVLC, "vlc://" + content.URI}
	case ProtocolBrowser:
		return PlayResult{ProtocolBrowser, content.URI}
	}
	rendererDev, err := upnp.Open(ctx, renderer)
	if err != nil {
		me.Logger.Printf("opening renderer %s: %v", renderer, err)
		return failure("no renderer")
	}
	media := req.Media
	if media.Title == "" {
		media.Title = basename
	}
	if err := me.av.Play(ctx, rendererDev, content.URI, media); err != nil {
		return failure(fmt.Sprintf("failed to play [%v]", err))
	}
	return PlayResult{ProtocolDLNA, "done"}
}

func browseReason(err error) string {
	switch {
	case errors.Is(err, cds.ErrNotFound):
		return "no content found"
	case errors.Is(err, cds.ErrDepthExceeded):
		return "content tree too deep"
	}
	return "no content found"
}

// splitCatalogPath takes a Windows-style catalog path apart: the volume
// letter before the colon and the base name without its extension.
func splitCatalogPath(file string) (volume, basename string) {
	if i := strings.IndexByte(file, ':'); i >= 0 {
		volume = file[:i]
	}
	base := file
	if i := strings.LastIndexAny(file, `\/`); i >= 0 {
		base = file[i+1:]
	}
	basename = strings.TrimSuffix(base, path.Ext(base))
	return
}

// BrowseTree walks a configured media server's content tree for a UI
// listing, sorted by directory path.
func (me *Controller) BrowseTree(ctx context.Context, serverKey, directory string, subdirs bool) ([]cds.DirEntry, error) {
	target, ok := me.Config.Volume(serverKey)
	if !ok {
		return nil, fmt.Errorf("%w: media server %q", ErrNotConfigured, serverKey)
	}
	server, err := upnp.Open(ctx, target.DeviceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMediaServer, err)
	}
	entries, err := cds.New(server).Walk(ctx, directory, subdirs)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// CatalogFile is one catalog entry to audit against server contents.
type CatalogFile struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	File  string `json:"file"`
}

// CheckEntry pairs a catalog file with the URI found on the media server,
// or NotFoundURI.
type CheckEntry struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	File  string `json:"file"`
	URI   string `json:"uri"`
}

const NotFoundURI = "NOT FOUND"

// CheckMedias verifies every catalog file has a matching title in the
// media server's content tree.
func (me *Controller) CheckMedias(ctx context.Context, serverKey string, files []CatalogFile) ([]CheckEntry, error) {
	target, ok := me.Config.Volume(serverKey)
	if !ok {
		return nil, fmt.Errorf("%w: media server %q", ErrNotConfigured, serverKey)
	}
	server, err := upnp.Open(ctx, target.DeviceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMediaServer, err)
	}
	entries, err := cds.New(server).Walk(ctx, target.Path, true)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string)
	for _, dir := range entries {
		for _, file := range dir.Files {
			titles[file.Title] = file.URI
		}
	}
	ret := make([]CheckEntry, 0, len(files))
	for _, mf := range files {
		_, basename := splitCatalogPath(mf.File)
		uri, ok := titles[basename]
		if !ok {
			uri = NotFoundURI
		}
		ret = append(ret, CheckEntry{ID: mf.ID, Title: mf.Title, File: mf.File, URI: uri})
	}
	return ret, nil
}

// DiscoverMode filters discovery results by declared device type.
type DiscoverMode string

const (
	ModeAll          DiscoverMode = "all"
	ModeSmart        DiscoverMode = "smart"
	ModeRenderers    DiscoverMode = "renderers"
	ModeMediaServers DiscoverMode = "mediaservers"
)

// Matches reports whether a device-type URN passes the filter.
func (me DiscoverMode) Matches(deviceType string) bool {
	kind := upnp.Classify(deviceType)
	switch me {
	case ModeSmart:
		return kind != upnp.KindOther
	case ModeRenderers:
		return kind == upnp.KindMediaRenderer
	case ModeMediaServers:
		return kind == upnp.KindMediaServer
	}
	return true
}

// DiscoverReport runs SSDP discovery and renders the matching devices'
// descriptions, sorted by friendly name, with a final count line.
func (me *Controller) DiscoverReport(ctx context.Context, mode DiscoverMode, timeout time.Duration, verbosity int) (string, error) {
	responses, err := ssdp.Discover(ctx, timeout, me.Logger)
	if err != nil {
		return "", err
	}
	var devices []*upnp.Device
	for _, resp := range responses {
		dev, err := upnp.Open(ctx, resp.Location)
		if err != nil {
			me.Logger.Levelf(log.Debug, "skipping %s: %v", resp.Location, err)
			continue
		}
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].FriendlyName < devices[j].FriendlyName
	})
	var buf bytes.Buffer
	listed := 0
	for _, dev := range devices {
		if !mode.Matches(dev.DeviceType) {
			continue
		}
		listed++
		dev.Describe(&buf, verbosity)
	}
	fmt.Fprintf(&buf, "Devices listed : %d on %d found\n", listed, len(devices))
	return buf.String(), nil
}
