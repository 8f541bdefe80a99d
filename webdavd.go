// Package webdavd implements a multi-user WebDAV server (RFC 4918, class 1
// and 2) on top of composable virtual filesystem backends.
package webdavd

import (
	"context"
	"errors"
)

// Sentinel errors returned by FileSystem implementations. The request
// dispatcher maps them to HTTP status codes; backends never write to the
// response themselves.
var (
	ErrNotFound            = errors.New("webdavd: resource not found")
	ErrForbidden           = errors.New("webdavd: access forbidden")
	ErrConflict            = errors.New("webdavd: conflicting resource state")
	ErrExists              = errors.New("webdavd: resource already exists")
	ErrInsufficientStorage = errors.New("webdavd: insufficient storage")
)

// FileSystem is the backend surface the server dispatches to. Paths are
// absolute, slash-separated URL paths. The authenticated username is passed
// on every call so implementations can decide whether to switch identity.
type FileSystem interface {
	// Props returns the named properties of the resource at name, in the
	// requested order. A nil names slice selects the standard set.
	Props(ctx context.Context, user, name string, names []string) (PropertyList, error)
	// Children returns the URL paths of the members of the collection at
	// name, each of the form name + "/" + base. Non-collections have no
	// children.
	Children(ctx context.Context, user, name string) ([]string, error)
	// Content returns the bytes of the resource in the range [start, end).
	// A start of -1 reads from the beginning, an end of -1 reads to the
	// end of the resource.
	Content(ctx context.Context, user, name string, start, end int64) ([]byte, error)
	// SetContent writes data at offset start, or replaces the whole
	// content when start is -1. The resource is created if absent.
	SetContent(ctx context.Context, user, name string, data []byte, start int64) error
	// Create makes a new empty resource, a collection when collection is
	// true. Creating an existing resource fails, as does creating below a
	// missing parent.
	Create(ctx context.Context, user, name string, collection bool) error
	// Delete removes the resource, recursively for collections.
	Delete(ctx context.Context, user, name string) error
	// UID returns a stable identifier for the storage object behind name.
	// Two paths resolving to the same object yield the same identifier,
	// and the identifier does not require the object to exist.
	UID(ctx context.Context, user, name string) (string, error)
}

// PrefixRouter is implemented by backends that route paths to nested
// backends by prefix. The dispatcher uses it to refuse MOVE requests that
// would cross backends.
type PrefixRouter interface {
	// RouteOf reports the mount prefix serving name.
	RouteOf(name string) (prefix string, ok bool)
}
