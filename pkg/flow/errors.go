// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"errors"
	"fmt"
)

// AuthzReason classifies client-caused authorization failures. The reason
// is for logs and tests; responses carry only a generic message.
type AuthzReason string

// Authorization failure reasons.
const (
	// ReasonMissingVerifierCookie: callback arrived without the
	// verifier-reference cookie. The flow cannot recover without
	// restarting login.
	ReasonMissingVerifierCookie AuthzReason = "missing_pkce_verifier_cookie"

	// ReasonVerifierNotFound: the referenced verifier record is absent
	// from the store (expired, reused, or never issued).
	ReasonVerifierNotFound AuthzReason = "verifier_not_found"

	// ReasonStateMismatch: the callback's state parameter does not match
	// the state bound to the verifier record at login.
	ReasonStateMismatch AuthzReason = "state_mismatch"

	// ReasonMissingAccessCookie: a request needing identity carried
	// neither an access-session nor a refresh-session cookie.
	ReasonMissingAccessCookie AuthzReason = "missing_access_token_cookie"

	// ReasonMissingRefreshCookie: refresh was invoked without a
	// refresh-session cookie.
	ReasonMissingRefreshCookie AuthzReason = "missing_refresh_token_cookie"

	// ReasonSessionExpired: an access-session cookie was presented but no
	// cached profile exists for its token.
	ReasonSessionExpired AuthzReason = "session_expired"

	// ReasonExchangeRejected: the provider rejected the code or refresh
	// token exchange.
	ReasonExchangeRejected AuthzReason = "exchange_rejected"
)

// AuthzError is a client-caused authorization failure: missing or expired
// cookies, missing verifiers, provider-rejected exchanges. It maps to a
// 401-class response with a generic body. Everything else returned by the
// flow is system-caused and maps to an opaque 500.
type AuthzError struct {
	Reason AuthzReason

	// Err carries detail for logging (e.g. the provider's rejection).
	// It must never reach a response body.
	Err error
}

func (e *AuthzError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authorization failed (%s)", e.Reason)
}

func (e *AuthzError) Unwrap() error {
	return e.Err
}

// authzErr builds an AuthzError with the given reason and optional cause.
func authzErr(reason AuthzReason, err error) *AuthzError {
	return &AuthzError{Reason: reason, Err: err}
}

// IsAuthz reports whether err is (or wraps) an authorization failure.
func IsAuthz(err error) bool {
	var authz *AuthzError
	return errors.As(err, &authz)
}

// ErrRefreshRequired signals that the request carried no usable access
// cookie but does hold a refresh cookie: the caller should redirect the
// browser to the refresh entry point. Refresh is deliberately an explicit
// second step rather than being chained automatically.
var ErrRefreshRequired = errors.New("access session absent, refresh token available")
