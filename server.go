package webdavd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"runtime/debug"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/webdavd/webdavd/internal"
)

// davAllow lists the verbs advertised by OPTIONS. POST is advertised for
// client compatibility but always answered with 405.
const davAllow = "GET, HEAD, POST, PUT, DELETE, OPTIONS, PROPFIND, PROPPATCH, MKCOL, LOCK, UNLOCK, MOVE, COPY"

// Handler dispatches WebDAV requests to a FileSystem. All fields must be
// set; the zero Handler is not usable.
type Handler struct {
	FileSystem    FileSystem
	Authenticator Authenticator
	Locks         *LockRegistry
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("handler panic")
			internal.ServeError(w, internal.HTTPErrorf(http.StatusInternalServerError, "internal server error"))
		}
	}()

	if h.FileSystem == nil || h.Authenticator == nil || h.Locks == nil {
		internal.ServeError(w, internal.HTTPErrorf(http.StatusInternalServerError, "webdavd: handler not configured"))
		return
	}

	// OPTIONS is the only verb answered without credentials.
	if r.Method == http.MethodOptions {
		h.handleOptions(w, r)
		return
	}

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	req := parseRequest(r)
	var err error
	switch r.Method {
	case http.MethodHead:
		err = h.handleHead(w, r, user, req)
	case http.MethodGet:
		err = h.handleGet(w, r, user, req)
	case http.MethodPut:
		err = h.handlePut(w, r, user, req)
	case http.MethodDelete:
		err = h.handleDelete(w, r, user, req)
	case "MKCOL":
		err = h.handleMkcol(w, r, user, req)
	case "PROPFIND":
		err = h.handlePropfind(w, r, user, req)
	case "PROPPATCH":
		err = h.handleProppatch(w, r, user, req)
	case "COPY":
		err = h.handleCopy(w, r, user, req)
	case "MOVE":
		err = h.handleMove(w, r, user, req)
	case "LOCK":
		err = h.handleLock(w, r, user, req)
	case "UNLOCK":
		err = h.handleUnlock(w, r, user, req)
	default:
		err = internal.HTTPErrorf(http.StatusMethodNotAllowed, "unsupported method %v", r.Method)
	}

	if err != nil {
		httpErr := httpErrorFromFS(err)
		if httpErr.Code >= 500 {
			logger.Error().Err(err).Str("method", r.Method).Str("path", req.path).Msg("request failed")
		} else {
			logger.Debug().Err(err).Str("method", r.Method).Str("path", req.path).Int("status", httpErr.Code).Msg("request refused")
		}
		internal.ServeError(w, httpErr)
	}
}

// httpErrorFromFS maps backend taxonomy errors to their HTTP status.
// Errors that already carry a status pass through, anything else is a 500.
func httpErrorFromFS(err error) *internal.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return &internal.HTTPError{Code: http.StatusNotFound, Err: err}
	case errors.Is(err, ErrForbidden):
		return &internal.HTTPError{Code: http.StatusForbidden, Err: err}
	case errors.Is(err, ErrExists):
		return &internal.HTTPError{Code: http.StatusMethodNotAllowed, Err: err}
	case errors.Is(err, ErrConflict):
		return &internal.HTTPError{Code: http.StatusConflict, Err: err}
	case errors.Is(err, ErrInsufficientStorage):
		return &internal.HTTPError{Code: http.StatusInsufficientStorage, Err: err}
	}
	return internal.HTTPErrorFromError(err)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, password, ok := r.BasicAuth()
	if ok && h.Authenticator.Authenticate(username, password) {
		return username, true
	}
	if ok {
		zerolog.Ctx(r.Context()).Info().Str("user", username).Msg("authentication failed")
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="WebDav Auth"`)
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusUnauthorized)
	return "", false
}

// serveEmpty writes a bodyless response with an explicit zero length.
func serveEmpty(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(code)
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", davAllow)
	w.Header().Set("DAV", "1, 2")
	w.Header().Set("MS-Author-Via", "DAV")
	w.Header().Set("WWW-Authenticate", `Basic realm="WebDav Auth"`)
	serveEmpty(w, http.StatusOK)
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	data, err := h.FileSystem.Content(r.Context(), user, req.path, -1, -1)
	if err != nil {
		return err
	}
	// The length answers the probe without the body following it.
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	props, err := h.FileSystem.Props(ctx, user, req.path, []string{"D:iscollection"})
	if err != nil {
		return err
	}
	if props.IsCollection() {
		return h.serveListing(w, r, user, req)
	}

	data, err := h.FileSystem.Content(ctx, user, req.path, -1, -1)
	if err != nil {
		return err
	}
	ctProps, err := h.FileSystem.Props(ctx, user, req.path, []string{"D:getcontenttype"})
	if err != nil {
		return err
	}
	ctype, _ := ctProps.Get("D:getcontenttype")
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	internal.ServeBody(w, http.StatusOK, ctype+"; charset=utf-8", data)
	return nil
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	if err := h.checkLockAt(ctx, user, req, req.path); err != nil {
		return err
	}

	exists := true
	if _, err := h.FileSystem.Props(ctx, user, req.path, []string{"D:iscollection"}); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		exists = false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &internal.HTTPError{Code: http.StatusBadRequest, Err: err}
	}
	if err := h.FileSystem.SetContent(ctx, user, req.path, body, -1); err != nil {
		return err
	}
	if exists {
		serveEmpty(w, http.StatusNoContent)
	} else {
		serveEmpty(w, http.StatusCreated)
	}
	return nil
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	uid, err := h.FileSystem.UID(ctx, user, req.path)
	if err != nil {
		return err
	}
	if h.Locks.AuthorizeWrite(uid, req.lockToken) != WriteOK {
		return internal.HTTPErrorf(http.StatusLocked, "resource is locked")
	}
	if err := h.FileSystem.Delete(ctx, user, req.path); err != nil {
		return err
	}
	// A delete that presented the lock's token retires the lock with the
	// resource.
	if lock := h.Locks.Get(uid); lock != nil && lock.Token == req.lockToken {
		_ = h.Locks.Clear(uid)
	}
	serveEmpty(w, http.StatusNoContent)
	return nil
}

func (h *Handler) handleMkcol(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	if err := h.checkLockAt(ctx, user, req, req.path); err != nil {
		return err
	}
	if err := h.FileSystem.Create(ctx, user, req.path, true); err != nil {
		return err
	}
	serveEmpty(w, http.StatusCreated)
	return nil
}

func (h *Handler) handleCopy(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	if req.destination == "" {
		return internal.HTTPErrorf(http.StatusBadRequest, "missing Destination header")
	}
	if err := h.checkLockAt(ctx, user, req, req.destination); err != nil {
		return err
	}
	created, err := h.copyRoot(ctx, user, req)
	if err != nil {
		return err
	}
	if created {
		serveEmpty(w, http.StatusCreated)
	} else {
		serveEmpty(w, http.StatusNoContent)
	}
	return nil
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()
	if req.destination == "" {
		return internal.HTTPErrorf(http.StatusBadRequest, "missing Destination header")
	}
	if router, ok := h.FileSystem.(PrefixRouter); ok {
		if src, sok := router.RouteOf(req.path); sok {
			if dst, dok := router.RouteOf(req.destination); dok && src != dst {
				return internal.HTTPErrorf(http.StatusBadGateway, "source and destination are on different shares")
			}
		}
	}
	if err := h.checkLockAt(ctx, user, req, req.path); err != nil {
		return err
	}
	if err := h.checkLockAt(ctx, user, req, req.destination); err != nil {
		return err
	}
	if _, err := h.copyRoot(ctx, user, req); err != nil {
		return err
	}
	uid, err := h.FileSystem.UID(ctx, user, req.path)
	if err != nil {
		return err
	}
	if err := h.FileSystem.Delete(ctx, user, req.path); err != nil {
		return err
	}
	if lock := h.Locks.Get(uid); lock != nil && lock.Token == req.lockToken {
		_ = h.Locks.Clear(uid)
	}
	serveEmpty(w, http.StatusNoContent)
	return nil
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	ctx := r.Context()

	var li internal.LockInfo
	if err := internal.DecodeXMLRequest(r, &li); err != nil {
		return err
	}
	if li.Shared != nil {
		return internal.HTTPErrorf(http.StatusUnsupportedMediaType, "shared locks are not supported")
	}
	owner := lockOwner(&li)

	exists := true
	if _, err := h.FileSystem.Props(ctx, user, req.path, []string{"D:iscollection"}); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		exists = false
	}
	uid, err := h.FileSystem.UID(ctx, user, req.path)
	if err != nil {
		return err
	}
	if !exists {
		// Locking an unmapped URL creates an empty placeholder so the
		// following PUT lands on a lockable resource.
		if err := h.FileSystem.Create(ctx, user, req.path, false); err != nil {
			return err
		}
	}

	lock := NewLock(uid, req.path, owner)
	if err := h.Locks.Set(uid, lock); err != nil {
		return internal.HTTPErrorf(http.StatusConflict, "resource is already locked")
	}

	w.Header().Set("Lock-Token", "<opaquelocktoken:"+lock.Token+">")
	return internal.ServeXML(w, http.StatusOK, internal.NewLockProp(activeLock(lock)))
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request, user string, req *request) error {
	uid, err := h.FileSystem.UID(r.Context(), user, req.path)
	if err != nil {
		return err
	}
	lock := h.Locks.Get(uid)
	if lock == nil {
		return internal.HTTPErrorf(http.StatusConflict, "no lock is held on the resource")
	}
	if req.lockToken == "" || lock.Token != req.lockToken {
		return internal.HTTPErrorf(http.StatusMethodNotAllowed, "lock token does not match")
	}
	if err := h.Locks.Clear(uid); err != nil {
		return internal.HTTPErrorf(http.StatusConflict, "no lock is held on the resource")
	}
	serveEmpty(w, http.StatusOK)
	return nil
}

// checkLockAt enforces the advisory lock on name for a state-changing
// request. Unmapped names are never locked.
func (h *Handler) checkLockAt(ctx context.Context, user string, req *request, name string) error {
	uid, err := h.FileSystem.UID(ctx, user, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if h.Locks.AuthorizeWrite(uid, req.lockToken) != WriteOK {
		return internal.HTTPErrorf(http.StatusLocked, "resource is locked")
	}
	return nil
}

// copyRoot copies the request path over the destination, honoring the
// Overwrite header. It reports whether the destination was newly created.
func (h *Handler) copyRoot(ctx context.Context, user string, req *request) (bool, error) {
	destExisted := true
	if _, err := h.FileSystem.Props(ctx, user, req.destination, []string{"D:iscollection"}); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return false, err
		}
		destExisted = false
	}
	if destExisted && !req.overwrite {
		return false, internal.HTTPErrorf(http.StatusPreconditionFailed, "destination exists and overwrite is false")
	}
	if err := h.copyTree(ctx, user, req, req.path, req.destination); err != nil {
		return false, err
	}
	return !destExisted, nil
}

// copyTree copies src to dst depth-first. Existing destination collections
// are merged into, existing files are only replaced under Overwrite: T.
func (h *Handler) copyTree(ctx context.Context, user string, req *request, src, dst string) error {
	props, err := h.FileSystem.Props(ctx, user, src, []string{"D:iscollection"})
	if err != nil {
		return err
	}
	if props.IsCollection() {
		if err := h.FileSystem.Create(ctx, user, dst, true); err != nil && !errors.Is(err, ErrExists) {
			return err
		}
		children, err := h.FileSystem.Children(ctx, user, src)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := h.copyTree(ctx, user, req, child, path.Join(dst, baseName(child))); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := h.FileSystem.Props(ctx, user, dst, []string{"D:iscollection"}); err == nil {
		if !req.overwrite {
			return internal.HTTPErrorf(http.StatusPreconditionFailed, "destination exists and overwrite is false")
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	data, err := h.FileSystem.Content(ctx, user, src, -1, -1)
	if err != nil {
		return err
	}
	return h.FileSystem.SetContent(ctx, user, dst, data, -1)
}
