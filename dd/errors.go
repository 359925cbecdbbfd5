// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"errors"
	"fmt"
)

// Sentinel errors for the invariant violations named in the error
// handling design: an unknown node id, an attempt to divide by a DD
// that contains a terminal zero, and mixing ids coming from two
// different stores. These are engine bugs, never expected conditions a
// caller routinely handles, but we return them instead of panicking so
// that callers (and tests) can use errors.Is/errors.As; setting
// StrictMode turns them into panics, mirroring the teacher's
// _DEBUG-gated log.Panicf calls. No operation returns ErrDifferentStore:
// an ID carries no record of the store that produced it.
var (
	ErrUnknownID      = errors.New("dd: unknown node id")
	ErrDivisionByZero = errors.New("dd: division by a DD containing terminal zero")
	ErrDifferentStore = errors.New("dd: operands come from different stores")
	ErrBadVariable    = errors.New("dd: variable index out of range")
	ErrWrongKind      = errors.New("dd: operation not valid for this diagram kind")
)

// StrictMode, when true, makes the store panic on invariant violations
// instead of returning a sentinel error. It is off by default; tests
// and fuzzers that want to catch bugs loudly can turn it on.
var StrictMode = false

func fail(err error) error {
	if StrictMode {
		panic(err)
	}
	return err
}

func failf(err error, format string, args ...interface{}) error {
	return fail(fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}
