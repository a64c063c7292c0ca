package services

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrMissingMachineKey = errors.New("machine key missing")
	ErrInvalidMachineKey = errors.New("machine key invalid")
)

// MachineAuthenticator validates the credential a vending machine sends with each request.
type MachineAuthenticator interface {
	Authenticate(credential string) error
}

// StaticKeyAuthenticator accepts any of a fixed set of shared API keys. Several keys let
// machines rotate without downtime.
type StaticKeyAuthenticator struct {
	keys [][]byte
}

// NewStaticKeyAuthenticator parses a comma separated key list; blank entries are ignored.
func NewStaticKeyAuthenticator(keyList string) *StaticKeyAuthenticator {
	var keys [][]byte
	for _, k := range strings.Split(keyList, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return &StaticKeyAuthenticator{keys: keys}
}

func (a *StaticKeyAuthenticator) Authenticate(credential string) error {
	if credential == "" {
		return ErrMissingMachineKey
	}
	presented := []byte(credential)
	matched := 0
	// compare against every key so timing does not reveal which one matched
	for _, key := range a.keys {
		matched |= subtle.ConstantTimeCompare(presented, key)
	}
	if matched != 1 {
		return ErrInvalidMachineKey
	}
	return nil
}
