// Package auth holds the server's signing primitives: login state tokens,
// the cached-profile token and the keys they are derived from.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Keys are independent per-purpose keys derived from the master secret so
// that no two mechanisms share key material.
type Keys struct {
	State       []byte
	Profile     []byte
	CookieHash  []byte
	CookieBlock []byte
}

// DeriveKeys expands secret with HKDF-SHA256 into Keys.
func DeriveKeys(secret string) (*Keys, error) {
	if secret == "" {
		return nil, errors.New("empty secret")
	}

	k := &Keys{}
	for _, d := range []struct {
		info string
		dst  *[]byte
		size int
	}{
		{"liveon/state", &k.State, 32},
		{"liveon/profile", &k.Profile, 32},
		{"liveon/cookie-hash", &k.CookieHash, 64},
		{"liveon/cookie-block", &k.CookieBlock, 32},
	} {
		buf := make([]byte, d.size)
		if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(d.info)), buf); err != nil {
			return nil, fmt.Errorf("derive %s: %w", d.info, err)
		}
		*d.dst = buf
	}

	return k, nil
}
