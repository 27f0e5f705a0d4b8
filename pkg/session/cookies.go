// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package session issues and parses the tamper-evident session cookies that
// carry the browser's authorization state: the verifier-reference cookie,
// the access-session cookie, and the refresh-session cookie.
//
// Cookie values are sealed with XChaCha20-Poly1305 so only the server can
// mint or read a valid value. The cookie name is bound in as associated
// data, so a sealed value pasted into a different cookie fails to open.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrNoCookie is returned when the request carries no cookie with the
	// requested name.
	ErrNoCookie = errors.New("cookie not present")

	// ErrInvalidCookie is returned when a cookie value fails to decode or
	// authenticate. Treated the same as an absent cookie by callers.
	ErrInvalidCookie = errors.New("invalid cookie value")
)

// maxCookieLen bounds the amount of attacker-controlled data we will decode
// for a cookie value. Browsers cap individual cookies around 4KB; we enforce
// our own limit regardless.
const maxCookieLen = 8192

// Codec seals and opens cookie values with authenticated encryption.
//
// Format: [keyID] "." [base64url(nonce || ciphertext)]. Keys holds every
// accepted key for rotation; KeyID selects the key used for sealing.
type Codec struct {
	keyID string
	keys  map[string][]byte
}

// NewCodec validates the key set and creates a codec.
func NewCodec(keyID string, keys map[string][]byte) (*Codec, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one sealing key is required")
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("active key ID %q not found in key set", keyID)
	}
	for id, k := range keys {
		if _, err := chacha20poly1305.NewX(k); err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", id, err)
		}
	}
	return &Codec{keyID: keyID, keys: keys}, nil
}

// Seal encrypts plain under the active key with aad as associated data.
func (c *Codec) Seal(plain, aad []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(c.keys[c.keyID])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plain, aad)
	return c.keyID + "." + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value produced by Seal, trying the key named in
// the value's prefix.
func (c *Codec) Open(value string, aad []byte) ([]byte, error) {
	if len(value) == 0 || len(value) > maxCookieLen {
		return nil, ErrInvalidCookie
	}
	keyID, encoded, ok := strings.Cut(value, ".")
	if !ok || keyID == "" || encoded == "" {
		return nil, ErrInvalidCookie
	}
	key, ok := c.keys[keyID]
	if !ok {
		return nil, ErrInvalidCookie
	}

	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCookie
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrInvalidCookie
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalidCookie
	}
	return plain, nil
}

// Jar builds, reads, and revokes session cookies with the fixed security
// attribute set: bound to the configured domain, path "/", HttpOnly,
// Secure, SameSite=Lax.
type Jar struct {
	codec  *Codec
	domain string
}

// NewJar creates a Jar sealing with codec and binding cookies to domain.
func NewJar(codec *Codec, domain string) (*Jar, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if domain == "" {
		return nil, errors.New("cookie domain is required")
	}
	return &Jar{codec: codec, domain: domain}, nil
}

// attributes applies the fixed attribute set shared by every session cookie.
func (j *Jar) attributes(c *http.Cookie) {
	c.Domain = j.domain
	c.Path = "/"
	c.HttpOnly = true
	c.Secure = true
	c.SameSite = http.SameSiteLaxMode
}

// Issue builds a cookie named name carrying the sealed value, expiring
// after lifetime.
func (j *Jar) Issue(name, value string, lifetime time.Duration) (*http.Cookie, error) {
	sealed, err := j.codec.Seal([]byte(value), []byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to seal cookie %q: %w", name, err)
	}

	c := &http.Cookie{
		Name:   name,
		Value:  sealed,
		MaxAge: int(lifetime.Seconds()),
	}
	j.attributes(c)
	return c, nil
}

// Read extracts and unseals the named cookie from the request. Returns
// ErrNoCookie when absent, ErrInvalidCookie when the value does not
// authenticate.
func (j *Jar) Read(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", ErrNoCookie
	}

	plain, err := j.codec.Open(c.Value, []byte(name))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Revoke instructs the browser to drop the named cookie.
//
// The removal cookie must carry the same domain, path, and flags as the
// cookie it removes; a cookie read from an incoming request loses those
// attributes, so they are re-applied here in full. A removal without them
// does not match the original and is silently ignored by the browser.
func (j *Jar) Revoke(w http.ResponseWriter, name string) {
	c := &http.Cookie{
		Name:   name,
		Value:  "",
		MaxAge: -1,
	}
	j.attributes(c)
	http.SetCookie(w, c)
}
