//go:build linux

package webdavd

import (
	"fmt"
	osuser "os/user"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// identity is the resolved uid, gid and supplementary groups of a user.
type identity struct {
	uid    int
	gid    int
	groups []int
}

// UnixOperator switches the effective uid and gid of the process to the
// requesting user around each backend call. The process must run as root.
// Identity switches are process wide, so the operator serializes brackets:
// Begin takes a mutex that End releases.
type UnixOperator struct {
	rootGroups []int

	mu    sync.Mutex
	count int
	cache map[string]identity
	umask int
}

// NewUnixOperator resolves the root identity and returns an operator that
// impersonates users by name.
func NewUnixOperator() (Operator, error) {
	root, err := resolveIdentity("root")
	if err != nil {
		return nil, fmt.Errorf("resolving root identity: %w", err)
	}
	return &UnixOperator{
		rootGroups: root.groups,
		cache:      make(map[string]identity),
	}, nil
}

func resolveIdentity(name string) (identity, error) {
	u, err := osuser.Lookup(name)
	if err != nil {
		return identity{}, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return identity{}, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return identity{}, err
	}
	groupIDs, err := u.GroupIds()
	if err != nil {
		return identity{}, err
	}
	groups := make([]int, 0, len(groupIDs))
	for _, g := range groupIDs {
		id, err := strconv.Atoi(g)
		if err != nil {
			continue
		}
		groups = append(groups, id)
	}
	return identity{uid: uid, gid: gid, groups: groups}, nil
}

func (op *UnixOperator) lookup(name string) (identity, error) {
	// The cache is periodically invalidated so group membership changes
	// are picked up without a restart.
	if op.count > 1024 {
		op.cache = make(map[string]identity)
		op.count = 0
	}
	op.count++
	if id, ok := op.cache[name]; ok {
		return id, nil
	}
	id, err := resolveIdentity(name)
	if err != nil {
		return identity{}, err
	}
	op.cache[name] = id
	return id, nil
}

// Begin impersonates user. The mutex is held until End so that concurrent
// requests cannot observe each other's identity. The syscall wrappers are
// required here: on linux they apply the switch to every thread, where the
// x/sys equivalents are raw per-thread calls.
func (op *UnixOperator) Begin(user string) error {
	op.mu.Lock()
	id, err := op.lookup(user)
	if err != nil {
		op.mu.Unlock()
		return fmt.Errorf("resolving user %q: %w", user, err)
	}
	if err := syscall.Setgroups(id.groups); err != nil {
		op.mu.Unlock()
		return fmt.Errorf("setgroups for %q: %w", user, err)
	}
	if err := syscall.Setegid(id.gid); err != nil {
		op.mu.Unlock()
		return fmt.Errorf("setegid for %q: %w", user, err)
	}
	if err := syscall.Seteuid(id.uid); err != nil {
		syscall.Setegid(0)
		op.mu.Unlock()
		return fmt.Errorf("seteuid for %q: %w", user, err)
	}
	op.umask = unix.Umask(0o002)
	return nil
}

// End drops back to root.
func (op *UnixOperator) End(user string) {
	unix.Umask(op.umask)
	syscall.Seteuid(0)
	syscall.Setegid(0)
	syscall.Setgroups(op.rootGroups)
	op.mu.Unlock()
}

func (op *UnixOperator) Home(user string) (string, error) {
	u, err := osuser.Lookup(user)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
