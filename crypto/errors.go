package crypto

import "errors"

// CryptoError wraps a failure in any C1 primitive: invalid key material,
// a GCM tag mismatch, or a malformed wrapped key. Callers (C5, C6) map
// this to a transport-layer SERVER_ERROR.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return "crypto: " + e.Op + ": " + e.Err.Error()
}

func (e *CryptoError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CryptoError{Op: op, Err: err}
}

// ErrTagMismatch is the sentinel wrapped by CryptoError when AES-GCM
// authentication fails on Open.
var ErrTagMismatch = errors.New("authentication tag mismatch")
