package webdavd

import "testing"

func TestNewToken(t *testing.T) {
	a := NewToken()
	b := NewToken()
	if len(a) != 32 {
		t.Errorf("token %q is not 32 hex chars", a)
	}
	if a == b {
		t.Error("two tokens collided")
	}
	for _, c := range a {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Errorf("token %q contains non-hex char %q", a, c)
		}
	}
}

func TestNewLock(t *testing.T) {
	lock := NewLock("/srv/dav/a.txt", "/files/a.txt", "alice")
	if lock.Scope != "exclusive" || lock.Depth != "infinity" || lock.Timeout != "Second-300" {
		t.Errorf("unexpected lock defaults: %+v", lock)
	}
	if lock.UID != "/srv/dav/a.txt" || lock.Root != "/files/a.txt" || lock.Owner != "alice" {
		t.Errorf("lock did not keep its identity: %+v", lock)
	}
	if lock.Token == "" {
		t.Error("lock has no token")
	}
}

func TestLockRegistrySetGetClear(t *testing.T) {
	reg := NewLockRegistry()
	lock := NewLock("uid-1", "/files/a.txt", "alice")

	if got := reg.Get("uid-1"); got != nil {
		t.Errorf("Get before Set = %+v", got)
	}
	if err := reg.Set("uid-1", lock); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := reg.Get("uid-1"); got != lock {
		t.Errorf("Get = %+v, want the stored lock", got)
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d", reg.Len())
	}

	other := NewLock("uid-1", "/files/a.txt", "bob")
	if err := reg.Set("uid-1", other); err == nil {
		t.Error("Set succeeded on a held resource")
	}
	if got := reg.Get("uid-1"); got != lock {
		t.Error("failed Set replaced the held lock")
	}

	if err := reg.Clear("uid-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := reg.Clear("uid-1"); err == nil {
		t.Error("Clear succeeded on an unlocked resource")
	}
	if reg.Len() != 0 {
		t.Errorf("Len after Clear = %d", reg.Len())
	}
}

func TestAuthorizeWrite(t *testing.T) {
	reg := NewLockRegistry()
	lock := NewLock("uid-1", "/files/a.txt", "alice")
	if err := reg.Set("uid-1", lock); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		uid   string
		token string
		want  WriteAccess
	}{
		{"uid-2", "", WriteOK},
		{"uid-2", "whatever", WriteOK},
		{"uid-1", "", WriteNeedsToken},
		{"uid-1", "wrong", WriteLocked},
		{"uid-1", lock.Token, WriteOK},
	}
	for _, test := range tests {
		if got := reg.AuthorizeWrite(test.uid, test.token); got != test.want {
			t.Errorf("AuthorizeWrite(%q, %q) = %v, want %v", test.uid, test.token, got, test.want)
		}
	}
}
