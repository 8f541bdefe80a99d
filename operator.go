package webdavd

import (
	osuser "os/user"
)

// Operator brackets backend operations with an identity switch for the
// requesting user. Begin and End must pair on every code path.
type Operator interface {
	// Begin switches the process to the user's identity.
	Begin(user string) error
	// End restores the original identity.
	End(user string)
	// Home returns the user's home directory.
	Home(user string) (string, error)
}

// NopOperator performs no identity switch. Home directories are resolved
// through the local user database.
type NopOperator struct{}

func (NopOperator) Begin(user string) error { return nil }

func (NopOperator) End(user string) {}

func (NopOperator) Home(user string) (string, error) {
	u, err := osuser.Lookup(user)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
