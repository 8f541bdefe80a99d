package webdavd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
)

// DirectoryFileSystem serves a local directory tree. Every URL path is
// resolved below the configured root; paths that escape it are refused
// unless they land in one of the additionally allowed directories.
type DirectoryFileSystem struct {
	root    string
	allowed []string
	op      Operator
}

// NewDirectoryFileSystem returns a backend rooted at root. allowed lists
// extra absolute paths that resolved names may fall under, for trees that
// symlink outside the root. A nil op disables identity switching.
func NewDirectoryFileSystem(root string, allowed []string, op Operator) *DirectoryFileSystem {
	if op == nil {
		op = NopOperator{}
	}
	return &DirectoryFileSystem{root: filepath.Clean(root), allowed: allowed, op: op}
}

func within(real, root string) bool {
	root = filepath.Clean(root)
	return real == root || strings.HasPrefix(real, root+string(filepath.Separator))
}

func (fs *DirectoryFileSystem) realPath(name string) (string, error) {
	if (filepath.Separator != '/' && strings.IndexRune(name, filepath.Separator) >= 0) || strings.Contains(name, "\x00") {
		return "", fmt.Errorf("%w: invalid character in path", ErrForbidden)
	}

	// Join cleans the result, so ".." segments collapse before the
	// containment check.
	real := filepath.Join(fs.root, filepath.FromSlash(name))
	if within(real, fs.root) {
		return real, nil
	}
	for _, p := range fs.allowed {
		if within(real, p) {
			return real, nil
		}
	}
	return "", fmt.Errorf("%w: %s resolves outside the share", ErrForbidden, name)
}

// mapFSError folds an os error into the backend error taxonomy.
func mapFSError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case os.IsExist(err):
		return fmt.Errorf("%w: %v", ErrExists, err)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("%w: %v", ErrInsufficientStorage, err)
	}
	return err
}

func (fs *DirectoryFileSystem) Props(ctx context.Context, user, name string, names []string) (PropertyList, error) {
	if err := fs.op.Begin(user); err != nil {
		return nil, err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(real)
	if err != nil {
		return nil, mapFSError(err)
	}
	if names == nil {
		names = stdPropNames
	}
	return fileProps(fi, real, name, names), nil
}

// fileProps builds the requested properties from a stat result. Properties
// that do not apply to the resource are omitted rather than emitted empty.
func fileProps(fi os.FileInfo, real, name string, names []string) PropertyList {
	atime, ctime, ino := statTimes(fi)
	base := baseName(name)

	props := make(PropertyList, 0, len(names))
	for _, pn := range names {
		switch pn {
		case "D:name", "D:displayname":
			props = append(props, Property{Name: pn, Value: encodePath(base)})
		case "D:getcontenttype":
			if !fi.IsDir() {
				props = append(props, Property{Name: pn, Value: contentType(real)})
			}
		case "D:getcontentlength":
			props = append(props, Property{Name: pn, Value: strconv.FormatInt(fi.Size(), 10)})
		case "D:creationdate", "Z:Win32CreationTime":
			props = append(props, Property{Name: pn, Value: httpDate(ctime)})
		case "D:lastaccessed", "Z:Win32LastAccessTime":
			props = append(props, Property{Name: pn, Value: httpDate(atime)})
		case "D:lastmodified", "D:getlastmodified", "Z:Win32LastModifiedTime":
			props = append(props, Property{Name: pn, Value: httpDate(fi.ModTime())})
		case "D:resourcetype":
			if fi.IsDir() {
				props = append(props, Property{Name: pn, Value: "<D:collection/>", Kind: PropXML})
			} else {
				props = append(props, Property{Name: pn, Kind: PropXML})
			}
		case "D:iscollection":
			if fi.IsDir() {
				props = append(props, Property{Name: pn, Kind: PropFlag})
			}
		case "D:ishidden":
			if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
				props = append(props, Property{Name: pn, Value: "1"})
			}
		case "D:getetag":
			// The tag carries its quotes verbatim.
			props = append(props, Property{Name: pn, Value: etagFor(fi.Size(), fi.ModTime(), ctime, atime, ino, real), Kind: PropXML})
		case "Z:Win32FileAttributes":
			props = append(props, Property{Name: pn, Value: "00000000"})
		}
	}
	return props
}

func (fs *DirectoryFileSystem) Children(ctx context.Context, user, name string) ([]string, error) {
	if err := fs.op.Begin(user); err != nil {
		return nil, err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(real)
	if err != nil {
		// Non-collections and vanished paths have no children.
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			return nil, nil
		}
		return nil, mapFSError(err)
	}
	children := make([]string, 0, len(entries))
	for _, entry := range entries {
		children = append(children, path.Join(name, entry.Name()))
	}
	return children, nil
}

func (fs *DirectoryFileSystem) Content(ctx context.Context, user, name string, start, end int64) ([]byte, error) {
	zerolog.Ctx(ctx).Debug().Str("path", name).Int64("start", start).Int64("end", end).Msg("read content")

	if err := fs.op.Begin(user); err != nil {
		return nil, err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(real)
	if err != nil {
		return nil, mapFSError(err)
	}
	defer f.Close()

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			return nil, mapFSError(err)
		}
	}
	if end >= 0 {
		if start < 0 {
			start = 0
		}
		buf := make([]byte, end-start)
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, mapFSError(err)
		}
		return buf[:n], nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, mapFSError(err)
	}
	return data, nil
}

func (fs *DirectoryFileSystem) SetContent(ctx context.Context, user, name string, data []byte, start int64) error {
	zerolog.Ctx(ctx).Debug().Str("path", name).Int("bytes", len(data)).Int64("start", start).Msg("write content")

	if err := fs.op.Begin(user); err != nil {
		return err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return err
	}
	if start < 0 {
		// Whole-content replace truncates, so a shorter body never
		// leaves a tail of the previous content behind.
		if err := os.WriteFile(real, data, 0o666); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: parent of %s missing", ErrConflict, name)
			}
			return mapFSError(err)
		}
		return nil
	}
	f, err := os.OpenFile(real, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: parent of %s missing", ErrConflict, name)
		}
		return mapFSError(err)
	}
	defer f.Close()
	if _, err := f.WriteAt(data, start); err != nil {
		return mapFSError(err)
	}
	return nil
}

func (fs *DirectoryFileSystem) Create(ctx context.Context, user, name string, collection bool) error {
	zerolog.Ctx(ctx).Debug().Str("path", name).Bool("collection", collection).Msg("create")

	if err := fs.op.Begin(user); err != nil {
		return err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return err
	}
	if collection {
		if err := os.Mkdir(real, 0o755); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: parent of %s missing", ErrConflict, name)
			}
			return mapFSError(err)
		}
		return nil
	}
	// O_EXCL makes existence and creation one atomic decision.
	f, err := os.OpenFile(real, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: parent of %s missing", ErrConflict, name)
		}
		return mapFSError(err)
	}
	return f.Close()
}

func (fs *DirectoryFileSystem) Delete(ctx context.Context, user, name string) error {
	zerolog.Ctx(ctx).Debug().Str("path", name).Msg("delete")

	if err := fs.op.Begin(user); err != nil {
		return err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return err
	}

	// Deleting a missing resource must report not-found, so stat before
	// RemoveAll, which treats absence as success.
	fi, err := os.Stat(real)
	if err != nil {
		return mapFSError(err)
	}
	if fi.IsDir() {
		return mapFSError(os.RemoveAll(real))
	}
	return mapFSError(os.Remove(real))
}

func (fs *DirectoryFileSystem) UID(ctx context.Context, user, name string) (string, error) {
	if err := fs.op.Begin(user); err != nil {
		return "", err
	}
	defer fs.op.End(user)

	real, err := fs.realPath(name)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(real)
	if err != nil {
		return "", err
	}
	return abs, nil
}

var _ FileSystem = (*DirectoryFileSystem)(nil)
