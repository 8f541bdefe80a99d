package internal

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestServeMultistatus(t *testing.T) {
	ms := NewMultistatus(NewOKResponse("/", []RawProperty{
		XMLProperty("D:resourcetype", "<D:collection/>"),
	}))

	rec := httptest.NewRecorder()
	if err := ServeMultistatus(rec, ms); err != nil {
		t.Fatalf("ServeMultistatus() = %v", err)
	}

	resp := rec.Result()
	if resp.StatusCode != http.StatusMultiStatus {
		t.Errorf("status = %v, expected 207", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/xml; charset=\"utf-8\"" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	if cl := resp.Header.Get("Content-Length"); cl != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length = %q, body has %v bytes", cl, len(body))
	}
	if !strings.HasPrefix(body, xml.Header) {
		t.Errorf("body does not start with the XML declaration:\n%v", body)
	}
}

func TestDecodeXMLRequestEmptyBody(t *testing.T) {
	r := httptest.NewRequest("LOCK", "/file.txt", strings.NewReader(""))

	var li LockInfo
	if err := DecodeXMLRequest(r, &li); err != nil {
		t.Fatalf("DecodeXMLRequest() = %v", err)
	}
	if li.Exclusive != nil || li.Shared != nil {
		t.Errorf("empty body should leave the lock info untouched: %+v", li)
	}
}

func TestDecodeXMLRequestBadXML(t *testing.T) {
	r := httptest.NewRequest("LOCK", "/file.txt", strings.NewReader("<D:lockinfo"))

	var li LockInfo
	err := DecodeXMLRequest(r, &li)
	if err == nil {
		t.Fatalf("DecodeXMLRequest() = nil, expected an error")
	}
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("DecodeXMLRequest() = %T, expected an *HTTPError", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("HTTPError.Code = %v, expected 400", httpErr.Code)
	}
}

func TestServeError(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeError(rec, HTTPErrorf(http.StatusConflict, "no lock on resource"))

	resp := rec.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %v, expected 409", resp.StatusCode)
	}
	if cl := resp.Header.Get("Content-Length"); cl != strconv.Itoa(rec.Body.Len()) {
		t.Errorf("Content-Length = %q, body has %v bytes", cl, rec.Body.Len())
	}
}
