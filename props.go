package webdavd

import (
	"crypto/sha256"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/webdavd/webdavd/internal"
)

// stdPropNames lists the standard properties, in the order they appear in
// multistatus responses. Names carry their namespace prefix: "D:" is DAV:,
// "Z:" is the Microsoft extension namespace.
var stdPropNames = []string{
	"D:name",
	"D:getcontenttype",
	"D:getcontentlength",
	"D:creationdate",
	"D:lastaccessed",
	"D:lastmodified",
	"D:getlastmodified",
	"D:resourcetype",
	"D:iscollection",
	"D:ishidden",
	"D:getetag",
	"D:displayname",
	"Z:Win32CreationTime",
	"Z:Win32LastAccessTime",
	"Z:Win32LastModifiedTime",
	"Z:Win32FileAttributes",
}

// PropKind selects how a property value is rendered into XML.
type PropKind int

const (
	// PropText is character data, escaped on output.
	PropText PropKind = iota
	// PropXML is a raw XML fragment, emitted verbatim.
	PropXML
	// PropFlag is a presence-only boolean, emitted as an empty element.
	PropFlag
)

// Property is a single WebDAV property. Name is the prefixed XML name,
// for example "D:getetag" or "Z:Win32FileAttributes".
type Property struct {
	Name  string
	Value string
	Kind  PropKind
}

// PropertyList is an ordered list of properties. Order is preserved from
// the backend through to the multistatus body.
type PropertyList []Property

// Get returns the value of the named property.
func (pl PropertyList) Get(name string) (string, bool) {
	for _, p := range pl {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether the named property is present.
func (pl PropertyList) Has(name string) bool {
	_, ok := pl.Get(name)
	return ok
}

// IsCollection reports whether the property list describes a collection.
func (pl PropertyList) IsCollection() bool {
	return pl.Has("D:iscollection")
}

// Without returns a copy of the list with the named properties removed.
func (pl PropertyList) Without(names ...string) PropertyList {
	out := make(PropertyList, 0, len(pl))
	for _, p := range pl {
		drop := false
		for _, name := range names {
			if p.Name == name {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, p)
		}
	}
	return out
}

func (pl PropertyList) encode() []internal.RawProperty {
	raw := make([]internal.RawProperty, 0, len(pl))
	for _, p := range pl {
		switch p.Kind {
		case PropXML:
			raw = append(raw, internal.XMLProperty(p.Name, p.Value))
		case PropFlag:
			raw = append(raw, internal.EmptyProperty(p.Name))
		default:
			raw = append(raw, internal.TextProperty(p.Name, p.Value))
		}
	}
	return raw
}

// httpDate formats t as an RFC 1123 HTTP date in GMT. All date-valued
// properties use this format, including D:creationdate.
func httpDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

const upperhex = "0123456789ABCDEF"

// encodePath percent-encodes a URL path for an href or property value.
// Slashes and the characters "~", "." and "$" stay literal so that hrefs
// remain byte-for-byte stable for the clients that compare them.
func encodePath(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '/' || c == '~' || c == '.' || c == '$' || c == '_' || c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

// baseName returns the last segment of a slash path, with trailing slashes
// ignored. The root path has the empty base name.
func baseName(name string) string {
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return ""
	}
	return path.Base(name)
}

// etagFor derives a strong entity tag from the stat results of a file. Any
// metadata change that matters to a caching client changes the tag.
func etagFor(size int64, mtime, ctime, atime time.Time, ino uint64, realpath string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d%d%d%d%d%s", size, mtime.UnixNano(), ctime.UnixNano(), atime.UnixNano(), ino, realpath)
	return fmt.Sprintf("\"%x\"", h.Sum(nil))
}

// contentType guesses the MIME type of a file from its extension, without
// any charset parameter.
func contentType(realpath string) string {
	t := mime.TypeByExtension(filepath.Ext(realpath))
	if t == "" {
		return "application/octet-stream"
	}
	if i := strings.Index(t, ";"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
