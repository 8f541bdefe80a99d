//go:build !linux

package webdavd

import "errors"

// NewUnixOperator is only available on Linux.
func NewUnixOperator() (Operator, error) {
	return nil, errors.New("webdavd: the unix operator requires linux")
}
