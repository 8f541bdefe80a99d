package webdavd

import (
	"encoding/hex"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// WriteAccess is the decision of LockRegistry.AuthorizeWrite.
type WriteAccess int

const (
	// WriteOK allows the operation: the resource is unlocked, or the
	// request presented the lock's token.
	WriteOK WriteAccess = iota
	// WriteNeedsToken denies the operation: the resource is locked and
	// the request carried no token.
	WriteNeedsToken
	// WriteLocked denies the operation: a token was presented but it
	// does not match the held lock.
	WriteLocked
)

// Lock is an advisory exclusive write lock on a single resource.
type Lock struct {
	// UID is the stable resource identifier the lock is keyed on.
	UID string
	// Root is the URL path the lock was taken on.
	Root string
	// Owner is the owner value supplied by the client, as plain text.
	Owner string

	Scope   string
	Depth   string
	Timeout string
	Token   string
}

// NewLock returns an exclusive infinite-depth lock on uid with a fresh
// token.
func NewLock(uid, root, owner string) *Lock {
	return &Lock{
		UID:     uid,
		Root:    root,
		Owner:   owner,
		Scope:   "exclusive",
		Depth:   "infinity",
		Timeout: "Second-300",
		Token:   NewToken(),
	}
}

// NewToken returns a fresh lock token: 128 bits from a cryptographic RNG,
// encoded as lowercase hex.
func NewToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

var (
	errLockHeld = errors.New("webdavd: lock already held")
	errNoLock   = errors.New("webdavd: no lock held")
)

// LockRegistry maps resource identifiers to their lock. It is the only
// shared mutable state of the server and is safe for concurrent use.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*Lock
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*Lock)}
}

// Get returns the lock held on uid, or nil.
func (reg *LockRegistry) Get(uid string) *Lock {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.locks[uid]
}

// Set stores lock under uid. It fails if a lock is already held, so of two
// racing LOCK requests on the same resource exactly one succeeds.
func (reg *LockRegistry) Set(uid string, lock *Lock) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.locks[uid]; ok {
		return errLockHeld
	}
	reg.locks[uid] = lock
	return nil
}

// Clear removes the lock on uid. It fails if none is held.
func (reg *LockRegistry) Clear(uid string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.locks[uid]; !ok {
		return errNoLock
	}
	delete(reg.locks, uid)
	return nil
}

// Len returns the number of held locks.
func (reg *LockRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.locks)
}

// AuthorizeWrite decides whether a state-changing operation on uid may
// proceed given the token presented by the request.
func (reg *LockRegistry) AuthorizeWrite(uid, token string) WriteAccess {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	lock, ok := reg.locks[uid]
	if !ok {
		return WriteOK
	}
	if token == "" {
		return WriteNeedsToken
	}
	if lock.Token != token {
		return WriteLocked
	}
	return WriteOK
}
