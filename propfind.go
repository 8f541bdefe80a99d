package webdavd

import (
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/webdavd/webdavd/internal"
)

// maxPropfindDepth caps Depth: infinity traversals. Deep trees answer in
// slices of at most this many levels, which keeps symlink cycles finite.
const maxPropfindDepth = 32

// handlePropfind walks the tree breadth-first from the request path and
// renders one multistatus response per visited resource. The request body
// is ignored: every resource answers with the standard property set.
func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()

	var steps int
	switch req.depth {
	case internal.DepthZero:
		steps = 0
	case internal.DepthOne:
		steps = 1
	default:
		steps = maxPropfindDepth
	}

	// The root of the walk must exist; children may vanish mid-walk.
	if _, err := h.FileSystem.Props(ctx, user, req.path, []string{"D:iscollection"}); err != nil {
		return err
	}

	paths := []string{req.path}
	frontier := []string{req.path}
	for i := 0; i < steps && len(frontier) > 0; i++ {
		var next []string
		for _, p := range frontier {
			children, err := h.FileSystem.Children(ctx, user, p)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			next = append(next, children...)
		}
		paths = append(paths, next...)
		frontier = next
	}

	resps := make([]internal.Response, 0, len(paths))
	for _, p := range paths {
		props, err := h.FileSystem.Props(ctx, user, p, nil)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		if req.isExcel {
			// Excel refuses to open files whose modification dates it
			// has seen change, so those properties are withheld.
			props = props.Without("D:lastmodified", "D:lastaccessed", "Z:Win32LastModifiedTime", "Z:Win32LastAccessTime")
		}
		if uid, err := h.FileSystem.UID(ctx, user, p); err == nil {
			if lock := h.Locks.Get(uid); lock != nil {
				props = append(props, lockDiscoveryProp(lock))
			}
		}
		resps = append(resps, internal.NewOKResponse(encodePath(p), props.encode()))
	}

	return internal.ServeMultistatus(w, internal.NewMultistatus(resps...))
}

// handleProppatch answers with the resource's current properties, exactly
// like PROPFIND: there is no dead-property store, so values never change.
// The verb is still state-changing to clients, so a held lock guards it.
func (h *Handler) handleProppatch(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	if err := h.checkLockAt(r.Context(), user, req, req.path); err != nil {
		return err
	}
	return h.handlePropfind(w, r, user, req)
}

func ownerXML(owner string) string {
	return "<D:href>" + internal.EscapeXML(owner) + "</D:href>"
}

func activeLock(lock *Lock) internal.ActiveLock {
	return internal.NewActiveLock(lock.Token, encodePath(lock.Root), ownerXML(lock.Owner), lock.Scope, lock.Depth, lock.Timeout)
}

// lockDiscoveryProp renders a held lock as a D:lockdiscovery property.
func lockDiscoveryProp(lock *Lock) Property {
	b, err := xml.Marshal(activeLock(lock))
	if err != nil {
		return Property{Name: "D:lockdiscovery", Kind: PropXML}
	}
	return Property{Name: "D:lockdiscovery", Value: string(b), Kind: PropXML}
}
