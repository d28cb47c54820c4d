// Package cds navigates a device's ContentDirectory service: path
// resolution, title search and tree walks over the remote namespace. The
// namespace has no consistency guarantee between calls, so nothing here is
// cached.
package cds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anacrolix/log"

	"github.com/moviesite/dmc/soap"
	"github.com/moviesite/dmc/upnp"
	"github.com/moviesite/dmc/upnpav"
)

// DefaultMaxDepth bounds recursion over remote data. A hostile or broken
// device returning a self-referential container must run out of depth, not
// stack.
const DefaultMaxDepth = 64

var (
	ErrNotFound      = errors.New("not found")
	ErrDepthExceeded = errors.New("depth limit exceeded")
)

const (
	browseMetadata       = "BrowseMetadata"
	browseDirectChildren = "BrowseDirectChildren"
)

type Navigator struct {
	Device   *upnp.Device
	Logger   log.Logger
	MaxDepth int
}

func New(dev *upnp.Device) *Navigator {
	return &Navigator{
		Device:   dev,
		Logger:   log.Default.WithNames("cds"),
		MaxDepth: DefaultMaxDepth,
	}
}

func (me *Navigator) maxDepth() int {
	if me.MaxDepth > 0 {
		return me.MaxDepth
	}
	return DefaultMaxDepth
}

func (me *Navigator) browse(ctx context.Context, objectID, flag string) ([]upnpav.Node, error) {
	svc, err := me.Device.Service("ContentDirectory")
	if err != nil {
		return nil, err
	}
	out, err := svc.Call(ctx, "Browse", []soap.Arg{
		soap.NewArg("ObjectID", objectID),
		soap.NewArg("BrowseFlag", flag),
		soap.NewArg("Filter", "*"),
		soap.NewArg("StartingIndex", "0"),
		soap.NewArg("RequestedCount", "0"),
		soap.NewArg("SortCriteria", ""),
	})
	if err != nil {
		return nil, err
	}
	return upnpav.ParseDIDL(out["Result"])
}

// children browses one level and extracts every well-formed entry.
// Malformed entries degrade the listing, they don't abort it.
func (me *Navigator) children(ctx context.Context, objectID string) ([]upnpav.ContentNode, error) {
	nodes, err := me.browse(ctx, objectID, browseDirectChildren)
	if err != nil {
		return nil, err
	}
	ret := make([]upnpav.ContentNode, 0, len(nodes))
	for _, node := range nodes {
		content, ok := upnpav.Extract(node)
		if !ok {
			me.Logger.Levelf(log.Debug, "skipping malformed entry under %q", objectID)
			continue
		}
		ret = append(ret, content)
	}
	return ret, nil
}

// RootObjectID asks the device for the id of its content root.
func (me *Navigator) RootObjectID(ctx context.Context) (string, error) {
	nodes, err := me.browse(ctx, "0", browseMetadata)
	if err != nil {
		return "", err
	}
	for _, node := range nodes {
		if content, ok := upnpav.Extract(node); ok {
			return content.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no root metadata", ErrNotFound)
}

// ResolvePath maps a /-delimited container path to an object id. A leading
// slash is ignored; the empty path resolves to rootID itself.
func (me *Navigator) ResolvePath(ctx context.Context, rootID, path string) (string, error) {
	return me.ResolvePathSegments(ctx, rootID, strings.Split(strings.TrimPrefix(path, "/"), "/"))
}

// ResolvePathSegments resolves pre-split path segments. Resolution fails on
// the first segment with no matching container; later segments are never
// browsed from an unresolved id.
func (me *Navigator) ResolvePathSegments(ctx context.Context, rootID string, segments []string) (string, error) {
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return rootID, nil
	}
	objectID := rootID
	for _, segment := range segments {
		children, err := me.children(ctx, objectID)
		if err != nil {
			return "", err
		}
		next := ""
		for _, content := range children {
			if content.IsContainer() && content.Title == segment {
				next = content.ID
				break
			}
		}
		if next == "" {
			return "", fmt.Errorf("%w: directory %q", ErrNotFound, segment)
		}
		objectID = next
	}
	return objectID, nil
}

// FindTitle searches a subtree depth-first for an item whose title equals
// the given one, ignoring case. Containers are descended in listing order.
func (me *Navigator) FindTitle(ctx context.Context, containerID, title string) (upnpav.ContentNode, error) {
	return me.findTitle(ctx, containerID, strings.ToLower(title), me.maxDepth())
}

func (me *Navigator) findTitle(ctx context.Context, containerID, lowerTitle string, depth int) (upnpav.ContentNode, error) {
	if depth <= 0 {
		return upnpav.ContentNode{}, fmt.Errorf("%w: below container %q", ErrDepthExceeded, containerID)
	}
	children, err := me.children(ctx, containerID)
	if err != nil {
		return upnpav.ContentNode{}, err
	}
	for _, content := range children {
		if content.IsItem() && strings.ToLower(content.Title) == lowerTitle {
			return content, nil
		}
		if content.IsContainer() {
			found, err := me.findTitle(ctx, content.ID, lowerTitle, depth-1)
			if err == nil {
				return found, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return upnpav.ContentNode{}, err
			}
		}
	}
	return upnpav.ContentNode{}, fmt.Errorf("%w: title %q", ErrNotFound, lowerTitle)
}

type FileEntry struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// DirEntry is one visited container, in the manner of a filesystem walk.
type DirEntry struct {
	Path  string      `json:"path"`
	Dirs  []string    `json:"dirs"`
	Files []FileEntry `json:"files"`
}

// Walk collects a DirEntry per visited container starting at path. With
// recurse false only the immediate level is visited. Entries are appended
// post-order, children before their parent; callers needing path order
// sort. The snapshot is rebuilt per call.
func (me *Navigator) Walk(ctx context.Context, path string, recurse bool) ([]DirEntry, error) {
	rootID, err := me.RootObjectID(ctx)
	if err != nil {
		return nil, err
	}
	dirID, err := me.ResolvePath(ctx, rootID, path)
	if err != nil {
		return nil, err
	}
	var tree []DirEntry
	if err := me.walk(ctx, &tree, dirID, path, recurse, me.maxDepth()); err != nil {
		return nil, err
	}
	return tree, nil
}

func (me *Navigator) walk(ctx context.Context, tree *[]DirEntry, dirID, dirPath string, recurse bool, depth int) error {
	if depth <= 0 {
		return fmt.Errorf("%w: walking %q", ErrDepthExceeded, dirPath)
	}
	children, err := me.children(ctx, dirID)
	if err != nil {
		return err
	}
	entry := DirEntry{Path: dirPath}
	for _, content := range children {
		switch {
		case content.IsItem():
			entry.Files = append(entry.Files, FileEntry{Title: content.Title, URI: content.URI})
		case content.IsContainer():
			entry.Dirs = append(entry.Dirs, content.Title)
			if recurse {
				if err := me.walk(ctx, tree, content.ID, dirPath+"/"+content.Title, recurse, depth-1); err != nil {
					return err
				}
			}
		}
	}
	*tree = append(*tree, entry)
	return nil
}
