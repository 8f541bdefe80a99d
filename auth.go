package webdavd

import "golang.org/x/crypto/bcrypt"

// Authenticator validates HTTP Basic credentials.
type Authenticator interface {
	Authenticate(username, password string) bool
}

// StaticAuthenticator checks credentials against a fixed table of bcrypt
// password hashes, typically loaded from the configuration file.
type StaticAuthenticator struct {
	users map[string]string
}

// NewStaticAuthenticator returns an authenticator over a username to
// bcrypt-hash table.
func NewStaticAuthenticator(users map[string]string) *StaticAuthenticator {
	return &StaticAuthenticator{users: users}
}

func (a *StaticAuthenticator) Authenticate(username, password string) bool {
	hash, ok := a.users[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DebugAuthenticator accepts any user whose password equals the username.
// It exists for local testing only.
type DebugAuthenticator struct{}

func (DebugAuthenticator) Authenticate(username, password string) bool {
	return username != "" && username == password
}

// HashPassword returns the bcrypt hash of password for use in the user
// table.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
