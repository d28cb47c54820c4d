package avtransport

import (
	"path"
	"strings"
)

// The catalog only tracks video files, so resolution is a fixed table
// keyed on extension; renderers get a generic video type for anything
// unrecognized.
var mimeByExt = map[string]string{
	".avi":  "video/avi",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ts":   "video/mp2t",
	".webm": "video/webm",
	".wmv":  "video/x-ms-wmv",
}

const defaultMimeType = "video/x"

// MimeTypeByURI resolves a MIME type from a content URI's file extension.
func MimeTypeByURI(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	if mt, ok := mimeByExt[strings.ToLower(path.Ext(uri))]; ok {
		return mt
	}
	return defaultMimeType
}
