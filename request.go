package webdavd

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/webdavd/webdavd/internal"
)

// request carries the header-derived fields the method handlers need,
// parsed once per request. Parsing is tolerant: malformed values degrade
// to their zero value instead of failing the request.
type request struct {
	path        string
	destination string
	depth       internal.Depth
	overwrite   bool
	lockToken   string
	isExcel     bool
}

var lockTokenRe = regexp.MustCompile(`<opaquelocktoken:([^>]*)>`)

func parseRequest(r *http.Request) *request {
	req := &request{
		path:  r.URL.Path,
		depth: internal.ParseDepth(r.Header.Get("Depth")),
	}
	if d := r.Header.Get("Destination"); d != "" {
		if u, err := url.Parse(d); err == nil {
			req.destination = u.Path
		}
	}
	req.overwrite = r.Header.Get("Overwrite") == "T"
	if m := lockTokenRe.FindStringSubmatch(r.Header.Get("Lock-Token")); m != nil {
		req.lockToken = m[1]
	}
	// A conditional If header names the token of the lock the client
	// holds. It wins over Lock-Token when both are present.
	if m := lockTokenRe.FindStringSubmatch(r.Header.Get("If")); m != nil {
		req.lockToken = m[1]
	}
	req.isExcel = strings.Contains(r.Header.Get("User-Agent"), "Excel")
	return req
}

var ownerHrefRe = regexp.MustCompile(`<(?:[A-Za-z0-9]+:)?href[^>]*>([^<]*)<`)

// lockOwner extracts the owner from a parsed LOCK body: the text of the
// first href element, or the plain body text when the client sent none.
func lockOwner(li *internal.LockInfo) string {
	if m := ownerHrefRe.FindStringSubmatch(li.Owner.InnerXML); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(li.Owner.InnerXML)
}
