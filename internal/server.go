package internal

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

type HTTPError struct {
	Code int
	Err  error
}

func HTTPErrorFromError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr
	} else {
		return &HTTPError{http.StatusInternalServerError, err}
	}
}

func HTTPErrorf(code int, format string, a ...interface{}) *HTTPError {
	return &HTTPError{code, fmt.Errorf(format, a...)}
}

func (err *HTTPError) Error() string {
	s := fmt.Sprintf("%v %v", err.Code, http.StatusText(err.Code))
	if err.Err != nil {
		return fmt.Sprintf("%v: %v", s, err.Err)
	} else {
		return s
	}
}

func (err *HTTPError) Unwrap() error {
	return err.Err
}

// ServeError writes err as a plain-text response. The body is buffered so
// that Content-Length is always set.
func ServeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if httpErr, ok := err.(*HTTPError); ok {
		code = httpErr.Code
	}
	ServeBody(w, code, "text/plain; charset=utf-8", []byte(err.Error()+"\n"))
}

// ServeBody writes a complete response body with an explicit Content-Length.
func ServeBody(w http.ResponseWriter, code int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	w.Write(body)
}

// DecodeXMLRequest decodes the request body into v. An empty body leaves v
// untouched, which callers treat as an absent request element.
func DecodeXMLRequest(r *http.Request, v interface{}) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return &HTTPError{http.StatusBadRequest, err}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := xml.Unmarshal(b, v); err != nil {
		return &HTTPError{http.StatusBadRequest, err}
	}
	return nil
}

// ServeXML marshals v, prepends the XML declaration and writes the result in
// one shot.
func ServeXML(w http.ResponseWriter, code int, v interface{}) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(b)
	ServeBody(w, code, "text/xml; charset=\"utf-8\"", buf.Bytes())
	return nil
}

func ServeMultistatus(w http.ResponseWriter, ms *Multistatus) error {
	return ServeXML(w, http.StatusMultiStatus, ms)
}
