package webdavd

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/webdavd/webdavd/internal"
)

var listingTmpl = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Index of {{.Path}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
a { text-decoration: none; }
td { padding: 0.1em 1em 0.1em 0; }
.hidden a { opacity: 0.5; }
</style>
</head>
<body>
<h1>Index of {{.Path}}</h1>
<table>
{{- range .Entries}}
<tr{{if .Hidden}} class="hidden"{{end}}><td><a href="{{.Href}}">{{.Name}}{{if .Directory}}/{{end}}</a></td></tr>
{{- end}}
</table>
</body>
</html>
`))

type listingEntry struct {
	Href      string
	Name      string
	Directory bool
	Hidden    bool
}

type listingData struct {
	Path    string
	Entries []listingEntry
}

// serveListing renders a collection as a browsable HTML page. Directories
// sort before files, names compare case-insensitively, and every page but
// the root links back to its parent.
func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	children, err := h.FileSystem.Children(ctx, user, req.path)
	if err != nil {
		return err
	}

	entries := make([]listingEntry, 0, len(children)+1)
	for _, child := range children {
		props, err := h.FileSystem.Props(ctx, user, child, []string{"D:iscollection", "D:ishidden"})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		entries = append(entries, listingEntry{
			Href:      encodePath(child),
			Name:      baseName(child),
			Directory: props.IsCollection(),
			Hidden:    props.Has("D:ishidden"),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Directory != entries[j].Directory {
			return entries[i].Directory
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	if req.path != "/" {
		parent := path.Dir(strings.TrimSuffix(req.path, "/"))
		entries = append([]listingEntry{{Href: encodePath(parent), Name: "..", Directory: true}}, entries...)
	}

	var buf bytes.Buffer
	if err := listingTmpl.Execute(&buf, listingData{Path: req.path, Entries: entries}); err != nil {
		return err
	}
	internal.ServeBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	return nil
}
