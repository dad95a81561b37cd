//go:build !darwin && !linux

package platform

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("askd does not support " + runtime.GOOS)

// New reports that the host OS is unsupported.
func New(Options) (Backend, error) {
	return Backend{}, errUnsupported
}

func newNativeKeySource(Options) (KeySource, error) {
	return nil, errUnsupported
}
