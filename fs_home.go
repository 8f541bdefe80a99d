package webdavd

import (
	"context"
	"sync"
)

// HomeFileSystem serves every user their own home directory. The home is
// resolved through the operator and backed by a per-user directory
// backend, so two users never see each other's tree under the same URL.
type HomeFileSystem struct {
	op Operator

	mu   sync.Mutex
	dirs map[string]*DirectoryFileSystem
}

// NewHomeFileSystem returns a home backend resolving homes through op. A
// nil op resolves through the local user database without switching
// identity.
func NewHomeFileSystem(op Operator) *HomeFileSystem {
	if op == nil {
		op = NopOperator{}
	}
	return &HomeFileSystem{op: op, dirs: make(map[string]*DirectoryFileSystem)}
}

func (fs *HomeFileSystem) dir(user string) (*DirectoryFileSystem, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if d, ok := fs.dirs[user]; ok {
		return d, nil
	}
	home, err := fs.op.Home(user)
	if err != nil {
		return nil, err
	}
	d := NewDirectoryFileSystem(home, nil, fs.op)
	fs.dirs[user] = d
	return d, nil
}

func (fs *HomeFileSystem) Props(ctx context.Context, user, name string, names []string) (PropertyList, error) {
	d, err := fs.dir(user)
	if err != nil {
		return nil, err
	}
	return d.Props(ctx, user, name, names)
}

func (fs *HomeFileSystem) Children(ctx context.Context, user, name string) ([]string, error) {
	d, err := fs.dir(user)
	if err != nil {
		return nil, err
	}
	return d.Children(ctx, user, name)
}

func (fs *HomeFileSystem) Content(ctx context.Context, user, name string, start, end int64) ([]byte, error) {
	d, err := fs.dir(user)
	if err != nil {
		return nil, err
	}
	return d.Content(ctx, user, name, start, end)
}

func (fs *HomeFileSystem) SetContent(ctx context.Context, user, name string, data []byte, start int64) error {
	d, err := fs.dir(user)
	if err != nil {
		return err
	}
	return d.SetContent(ctx, user, name, data, start)
}

func (fs *HomeFileSystem) Create(ctx context.Context, user, name string, collection bool) error {
	d, err := fs.dir(user)
	if err != nil {
		return err
	}
	return d.Create(ctx, user, name, collection)
}

func (fs *HomeFileSystem) Delete(ctx context.Context, user, name string) error {
	d, err := fs.dir(user)
	if err != nil {
		return err
	}
	return d.Delete(ctx, user, name)
}

func (fs *HomeFileSystem) UID(ctx context.Context, user, name string) (string, error) {
	d, err := fs.dir(user)
	if err != nil {
		return "", err
	}
	return d.UID(ctx, user, name)
}

var _ FileSystem = (*HomeFileSystem)(nil)
