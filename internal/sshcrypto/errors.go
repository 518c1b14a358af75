package sshcrypto

import "errors"

// ErrWeakPoint is returned by X25519 when the computed shared point is the
// all-zero value (spec.md §4.4: "an all-zero output indicates a weak point
// and MUST be treated as failure").
var ErrWeakPoint = errors.New("sshcrypto: x25519 produced the all-zero shared secret")
