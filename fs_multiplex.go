package webdavd

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// MultiplexFileSystem routes requests to nested backends keyed by the
// first path segment. The root is a synthetic read-only collection with
// one child per mount.
type MultiplexFileSystem struct {
	mounts map[string]FileSystem
}

// NewMultiplexFileSystem returns a multiplexer over mounts. Keys are mount
// prefixes of the form "/docs".
func NewMultiplexFileSystem(mounts map[string]FileSystem) *MultiplexFileSystem {
	return &MultiplexFileSystem{mounts: mounts}
}

// splitRoute splits a path into its mount prefix and the remainder passed
// to the nested backend. "/docs/a/b" routes to "/docs" with rest "/a/b",
// "/docs" itself routes with rest "/".
func splitRoute(name string) (prefix, rest string) {
	trimmed := strings.TrimPrefix(name, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return "/" + trimmed[:i], "/" + trimmed[i+1:]
	}
	return "/" + trimmed, "/"
}

func (fs *MultiplexFileSystem) route(name string) (FileSystem, string, string, error) {
	prefix, rest := splitRoute(name)
	backend, ok := fs.mounts[prefix]
	if !ok {
		return nil, "", "", fmt.Errorf("%w: no share at %s", ErrNotFound, prefix)
	}
	return backend, prefix, rest, nil
}

// RouteOf reports the mount prefix serving name.
func (fs *MultiplexFileSystem) RouteOf(name string) (string, bool) {
	if name == "/" {
		return "/", true
	}
	prefix, _ := splitRoute(name)
	_, ok := fs.mounts[prefix]
	return prefix, ok
}

func (fs *MultiplexFileSystem) prefixes() []string {
	out := make([]string, 0, len(fs.mounts))
	for prefix := range fs.mounts {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

// rootProps describes the synthetic root collection.
func rootProps() PropertyList {
	epoch := httpDate(time.Unix(0, 0))
	return PropertyList{
		{Name: "D:name", Value: "/"},
		{Name: "D:creationdate", Value: epoch},
		{Name: "D:lastaccessed", Value: epoch},
		{Name: "D:lastmodified", Value: epoch},
		{Name: "D:getlastmodified", Value: epoch},
		{Name: "D:getcontentlength", Value: "4096"},
		{Name: "D:resourcetype", Value: "<D:collection/>", Kind: PropXML},
		{Name: "D:iscollection", Kind: PropFlag},
	}
}

func (fs *MultiplexFileSystem) Props(ctx context.Context, user, name string, names []string) (PropertyList, error) {
	if name == "/" {
		return rootProps(), nil
	}
	backend, _, rest, err := fs.route(name)
	if err != nil {
		return nil, err
	}
	props, err := backend.Props(ctx, user, rest, names)
	if err != nil {
		return nil, err
	}
	return fs.rewriteNames(name, rest, props), nil
}

// rewriteNames fixes up the name properties of a mount point. A nested
// backend sees its own root as "" while clients expect the mount's base
// name.
func (fs *MultiplexFileSystem) rewriteNames(name, rest string, props PropertyList) PropertyList {
	if rest != "/" {
		return props
	}
	base := encodePath(baseName(name))
	for i, p := range props {
		if p.Name == "D:name" || p.Name == "D:displayname" {
			props[i].Value = base
		}
	}
	return props
}

func (fs *MultiplexFileSystem) Children(ctx context.Context, user, name string) ([]string, error) {
	if name == "/" {
		return fs.prefixes(), nil
	}
	backend, prefix, rest, err := fs.route(name)
	if err != nil {
		return nil, nil
	}
	children, err := backend.Children(ctx, user, rest)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(children))
	for _, child := range children {
		out = append(out, path.Join(prefix, strings.TrimPrefix(child, "/")))
	}
	return out, nil
}

func (fs *MultiplexFileSystem) Content(ctx context.Context, user, name string, start, end int64) ([]byte, error) {
	if name == "/" {
		return nil, fmt.Errorf("%w: the root has no content", ErrForbidden)
	}
	backend, _, rest, err := fs.route(name)
	if err != nil {
		return nil, err
	}
	return backend.Content(ctx, user, rest, start, end)
}

func (fs *MultiplexFileSystem) SetContent(ctx context.Context, user, name string, data []byte, start int64) error {
	if name == "/" {
		return fmt.Errorf("%w: the root is read-only", ErrForbidden)
	}
	backend, _, rest, err := fs.route(name)
	if err != nil {
		return err
	}
	return backend.SetContent(ctx, user, rest, data, start)
}

func (fs *MultiplexFileSystem) Create(ctx context.Context, user, name string, collection bool) error {
	if name == "/" {
		return fmt.Errorf("%w: /", ErrExists)
	}
	backend, _, rest, err := fs.route(name)
	if err != nil {
		return err
	}
	if rest == "/" {
		// Mount points themselves already exist.
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return backend.Create(ctx, user, rest, collection)
}

func (fs *MultiplexFileSystem) Delete(ctx context.Context, user, name string) error {
	if name == "/" {
		return fmt.Errorf("%w: the root is read-only", ErrForbidden)
	}
	backend, _, rest, err := fs.route(name)
	if err != nil {
		return err
	}
	if rest == "/" {
		return fmt.Errorf("%w: shares cannot be deleted", ErrForbidden)
	}
	return backend.Delete(ctx, user, rest)
}

func (fs *MultiplexFileSystem) UID(ctx context.Context, user, name string) (string, error) {
	if name == "/" {
		return "root", nil
	}
	backend, _, rest, err := fs.route(name)
	if err != nil {
		return "", err
	}
	// The nested identifier passes through unchanged: two shares over the
	// same directory expose the same objects, and their locks must agree.
	return backend.UID(ctx, user, rest)
}

var (
	_ FileSystem   = (*MultiplexFileSystem)(nil)
	_ PrefixRouter = (*MultiplexFileSystem)(nil)
)
