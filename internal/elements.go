package internal

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
)

const (
	// Namespace is the WebDAV XML namespace defined in RFC 4918.
	Namespace = "DAV:"
	// NamespaceMS is the namespace of the Win32 file attribute properties
	// understood by Windows clients.
	NamespaceMS = "urn:schemas-microsoft-com:"
)

// Status formats a status line for use inside a multistatus response.
func Status(code int) string {
	return fmt.Sprintf("HTTP/1.1 %v %v", code, http.StatusText(code))
}

// EscapeXML escapes s for use as XML character data.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// RawProperty is a single property of a resource. The name carries its
// prefix ("D:getetag"), resolved by the xmlns declarations on the document
// root. InnerXML is written verbatim.
type RawProperty struct {
	XMLName  xml.Name
	InnerXML []byte `xml:",innerxml"`
}

// TextProperty returns a property holding XML-escaped text.
func TextProperty(name, value string) RawProperty {
	return RawProperty{
		XMLName:  xml.Name{Local: name},
		InnerXML: []byte(EscapeXML(value)),
	}
}

// XMLProperty returns a property whose value is emitted verbatim.
func XMLProperty(name, inner string) RawProperty {
	return RawProperty{
		XMLName:  xml.Name{Local: name},
		InnerXML: []byte(inner),
	}
}

// EmptyProperty returns a property without a value.
func EmptyProperty(name string) RawProperty {
	return RawProperty{XMLName: xml.Name{Local: name}}
}

// https://tools.ietf.org/html/rfc4918#section-14.16
type Multistatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XmlnsD    string     `xml:"xmlns:D,attr"`
	XmlnsZ    string     `xml:"xmlns:Z,attr"`
	Responses []Response `xml:"D:response"`
}

func NewMultistatus(resps ...Response) *Multistatus {
	return &Multistatus{
		XmlnsD:    Namespace,
		XmlnsZ:    NamespaceMS,
		Responses: resps,
	}
}

// https://tools.ietf.org/html/rfc4918#section-14.24
type Response struct {
	Href     string     `xml:"D:href"`
	Propstat []Propstat `xml:"D:propstat"`
}

// NewOKResponse returns a response whose properties all share a 200 status.
func NewOKResponse(href string, props []RawProperty) Response {
	return Response{
		Href: href,
		Propstat: []Propstat{{
			Prop:   props,
			Status: Status(http.StatusOK),
		}},
	}
}

// https://tools.ietf.org/html/rfc4918#section-14.22
type Propstat struct {
	// Prop relies on the xmlns declarations of the document root. The
	// encoding/xml package does not honor namespace declarations for
	// anonymous slice elements, so property names carry their prefix.
	Prop   []RawProperty `xml:"D:prop>_ignored_"`
	Status string        `xml:"D:status"`
}

// https://tools.ietf.org/html/rfc4918#section-14.11
//
// The element name carries no namespace on purpose: clients send
// lockinfo bodies with prefixes they never declare, and the decoder
// must accept those too.
type LockInfo struct {
	XMLName   xml.Name  `xml:"lockinfo"`
	Exclusive *struct{} `xml:"lockscope>exclusive"`
	Shared    *struct{} `xml:"lockscope>shared"`
	Write     *struct{} `xml:"locktype>write"`
	Owner     Owner     `xml:"owner"`
}

// https://tools.ietf.org/html/rfc4918#section-14.17
type Owner struct {
	InnerXML string `xml:",innerxml"`
}

// https://tools.ietf.org/html/rfc4918#section-14.1
type ActiveLock struct {
	XMLName   xml.Name `xml:"D:activelock"`
	LockType  RawValue `xml:"D:locktype"`
	LockScope RawValue `xml:"D:lockscope"`
	Depth     string   `xml:"D:depth"`
	Owner     RawValue `xml:"D:owner"`
	Timeout   string   `xml:"D:timeout"`
	LockToken Href     `xml:"D:locktoken"`
	LockRoot  Href     `xml:"D:lockroot"`
}

type RawValue struct {
	InnerXML []byte `xml:",innerxml"`
}

type Href struct {
	Href string `xml:"D:href"`
}

func NewActiveLock(token, root, owner, scope, depth, timeout string) ActiveLock {
	return ActiveLock{
		LockType:  RawValue{[]byte("<D:write/>")},
		LockScope: RawValue{[]byte("<D:" + scope + "/>")},
		Depth:     depth,
		Owner:     RawValue{[]byte(owner)},
		Timeout:   timeout,
		LockToken: Href{"opaquelocktoken:" + token},
		LockRoot:  Href{root},
	}
}

// LockProp is the body of a successful LOCK response, defined in RFC 4918
// section 9.10.
type LockProp struct {
	XMLName       xml.Name      `xml:"D:prop"`
	XmlnsD        string        `xml:"xmlns:D,attr"`
	LockDiscovery LockDiscovery `xml:"D:lockdiscovery"`
}

type LockDiscovery struct {
	ActiveLock ActiveLock `xml:"D:activelock"`
}

func NewLockProp(al ActiveLock) *LockProp {
	return &LockProp{
		XmlnsD:        Namespace,
		LockDiscovery: LockDiscovery{ActiveLock: al},
	}
}
