package webdavd

import (
	"net/http/httptest"
	"testing"

	"github.com/webdavd/webdavd/internal"
)

func TestParseRequest(t *testing.T) {
	r := httptest.NewRequest("PROPFIND", "/files/docs", nil)
	r.Header.Set("Depth", "1")
	req := parseRequest(r)
	if req.path != "/files/docs" {
		t.Errorf("path = %q", req.path)
	}
	if req.depth != internal.DepthOne {
		t.Errorf("depth = %v", req.depth)
	}
	if req.overwrite || req.isExcel || req.lockToken != "" || req.destination != "" {
		t.Errorf("zero-value fields leaked: %+v", req)
	}
}

func TestParseRequestDestination(t *testing.T) {
	r := httptest.NewRequest("MOVE", "/files/a.txt", nil)
	r.Header.Set("Destination", "http://dav.example.com:8000/files/b%20c.txt")
	r.Header.Set("Overwrite", "T")
	req := parseRequest(r)
	if req.destination != "/files/b c.txt" {
		t.Errorf("destination = %q", req.destination)
	}
	if !req.overwrite {
		t.Error("overwrite not honored")
	}

	r = httptest.NewRequest("MOVE", "/files/a.txt", nil)
	r.Header.Set("Destination", "/files/b.txt")
	r.Header.Set("Overwrite", "F")
	req = parseRequest(r)
	if req.destination != "/files/b.txt" {
		t.Errorf("path-only destination = %q", req.destination)
	}
	if req.overwrite {
		t.Error("Overwrite: F treated as true")
	}
}

func TestParseRequestLockToken(t *testing.T) {
	r := httptest.NewRequest("UNLOCK", "/files/a.txt", nil)
	r.Header.Set("Lock-Token", "<opaquelocktoken:cafe01>")
	req := parseRequest(r)
	if req.lockToken != "cafe01" {
		t.Errorf("lockToken = %q", req.lockToken)
	}

	// The If header wins when both are present.
	r = httptest.NewRequest("PUT", "/files/a.txt", nil)
	r.Header.Set("Lock-Token", "<opaquelocktoken:cafe01>")
	r.Header.Set("If", "(<opaquelocktoken:beef02>)")
	req = parseRequest(r)
	if req.lockToken != "beef02" {
		t.Errorf("lockToken with If = %q", req.lockToken)
	}

	r = httptest.NewRequest("UNLOCK", "/files/a.txt", nil)
	r.Header.Set("Lock-Token", "not a token")
	req = parseRequest(r)
	if req.lockToken != "" {
		t.Errorf("malformed token parsed as %q", req.lockToken)
	}
}

func TestParseRequestExcel(t *testing.T) {
	r := httptest.NewRequest("PROPFIND", "/files", nil)
	r.Header.Set("User-Agent", "Microsoft Office Excel 2013")
	if !parseRequest(r).isExcel {
		t.Error("Excel user agent not detected")
	}
	r.Header.Set("User-Agent", "gvfs/1.50")
	if parseRequest(r).isExcel {
		t.Error("non-Excel user agent detected as Excel")
	}
}

func TestLockOwner(t *testing.T) {
	tests := []struct {
		inner string
		want  string
	}{
		{"<D:href>alice@example.com</D:href>", "alice@example.com"},
		{"<href>plain</href>", "plain"},
		{"<ns0:href xmlns:ns0='DAV:'> spaced </ns0:href>", "spaced"},
		{"just text", "just text"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, test := range tests {
		li := &internal.LockInfo{Owner: internal.Owner{InnerXML: test.inner}}
		if got := lockOwner(li); got != test.want {
			t.Errorf("lockOwner(%q) = %q, want %q", test.inner, got, test.want)
		}
	}
}
