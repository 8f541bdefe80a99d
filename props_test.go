package webdavd

import (
	"strings"
	"testing"
	"time"
)

func TestEncodePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/docs/report.txt", "/docs/report.txt"},
		{"/docs/a b.txt", "/docs/a%20b.txt"},
		{"/docs/résumé.txt", "/docs/r%C3%A9sum%C3%A9.txt"},
		{"/~alice/$budget", "/~alice/$budget"},
		{"/a+b", "/a%2Bb"},
		{"/a&b=c", "/a%26b%3Dc"},
		{"", ""},
	}
	for _, test := range tests {
		if got := encodePath(test.in); got != test.want {
			t.Errorf("encodePath(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestHTTPDate(t *testing.T) {
	ts := time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC)
	if got := httpDate(ts); got != "Thu, 04 Mar 2021 05:06:07 GMT" {
		t.Errorf("httpDate = %q", got)
	}
	if got := httpDate(time.Unix(0, 0)); got != "Thu, 01 Jan 1970 00:00:00 GMT" {
		t.Errorf("httpDate(epoch) = %q", got)
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/docs/report.txt", "report.txt"},
		{"/docs/", "docs"},
		{"/", ""},
		{"", ""},
	}
	for _, test := range tests {
		if got := baseName(test.in); got != test.want {
			t.Errorf("baseName(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestEtagFor(t *testing.T) {
	mtime := time.Unix(1600000000, 0)
	etag := etagFor(42, mtime, mtime, mtime, 7, "/srv/dav/a.txt")

	if !strings.HasPrefix(etag, "\"") || !strings.HasSuffix(etag, "\"") {
		t.Errorf("etag %q is not quoted", etag)
	}
	if len(etag) != 66 {
		t.Errorf("etag %q is not a quoted sha256 hex digest", etag)
	}
	if again := etagFor(42, mtime, mtime, mtime, 7, "/srv/dav/a.txt"); again != etag {
		t.Errorf("etag is not stable: %q != %q", again, etag)
	}
	if changed := etagFor(43, mtime, mtime, mtime, 7, "/srv/dav/a.txt"); changed == etag {
		t.Error("etag did not change with the file size")
	}
	if changed := etagFor(42, mtime, mtime, mtime, 7, "/srv/dav/b.txt"); changed == etag {
		t.Error("etag did not change with the real path")
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("/srv/a.html"); got != "text/html" {
		t.Errorf("contentType(.html) = %q", got)
	}
	if got := contentType("/srv/blob"); got != "application/octet-stream" {
		t.Errorf("contentType(no ext) = %q", got)
	}
	if strings.Contains(contentType("/srv/a.txt"), ";") {
		t.Error("contentType leaked a charset parameter")
	}
}

func TestPropertyList(t *testing.T) {
	pl := PropertyList{
		{Name: "D:name", Value: "a.txt"},
		{Name: "D:iscollection", Kind: PropFlag},
		{Name: "D:getcontentlength", Value: "5"},
	}

	if v, ok := pl.Get("D:getcontentlength"); !ok || v != "5" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if !pl.IsCollection() {
		t.Error("IsCollection = false with D:iscollection present")
	}

	trimmed := pl.Without("D:iscollection", "D:name")
	if len(trimmed) != 1 || trimmed[0].Name != "D:getcontentlength" {
		t.Errorf("Without left %v", trimmed)
	}
	if len(pl) != 3 {
		t.Error("Without modified the receiver")
	}
}

func TestPropertyListEncode(t *testing.T) {
	pl := PropertyList{
		{Name: "D:displayname", Value: "a&b.txt"},
		{Name: "D:resourcetype", Value: "<D:collection/>", Kind: PropXML},
		{Name: "D:iscollection", Kind: PropFlag},
	}
	raw := pl.encode()
	if len(raw) != 3 {
		t.Fatalf("encode returned %d properties", len(raw))
	}
	if string(raw[0].InnerXML) != "a&amp;b.txt" {
		t.Errorf("text property not escaped: %q", raw[0].InnerXML)
	}
	if string(raw[1].InnerXML) != "<D:collection/>" {
		t.Errorf("xml property mangled: %q", raw[1].InnerXML)
	}
	if len(raw[2].InnerXML) != 0 {
		t.Errorf("flag property not empty: %q", raw[2].InnerXML)
	}
}
