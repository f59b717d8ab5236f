// Package checkpoint decorates errors with the file and line of the caller,
// building something similar to a stack trace out of ordinary error
// wrapping. Every error attached to a checkpoint stays visible to errors.Is
// and errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps err in a checkpoint carrying the caller position. It returns
// nil if err is nil.
func From(err error) error {
	// io.EOF and io.ErrUnexpectedEOF must stay untouched, a lot of code
	// compares them with ==.
	// https://github.com/golang/go/issues/39155
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}
	if err == nil {
		return nil
	}

	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint on top of prev and attaches err as an additional
// description of it. It returns nil if prev is nil, so call sites can wrap
// unconditionally:
//  func someFunction() error {
//  	err := somethingThatMayFail()
//  	return checkpoint.Wrap(err, ErrSomethingFailed)
//  }
// errors.Is finds both the original error chain and ErrSomethingFailed in
// the result.
func Wrap(prev, err error) error {
	if prev == io.EOF {
		return io.EOF
	}
	if prev == nil {
		return nil
	}

	return newCheckpoint(err, prev)
}

type checkpoint struct {
	err  error
	prev error

	callerOk bool
	file     string
	line     int
}

func newCheckpoint(err, prev error) *checkpoint {
	// Skip newCheckpoint and From/Wrap itself.
	_, file, line, ok := runtime.Caller(2)

	return &checkpoint{
		err:  err,
		prev: prev,

		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

func (e *checkpoint) Error() string {
	where := "unknown"
	if e.callerOk {
		where = fmt.Sprintf("%s:%d", e.file, e.line)
	}

	if e.prev == nil {
		return fmt.Sprintf("%s: %v", where, e.err)
	}

	prevErrString := e.prev.Error()
	if _, ok := e.prev.(*checkpoint); !ok {
		prevErrString = strings.ReplaceAll(prevErrString, "\n", "\n\t")
	}

	if e.err == nil {
		return fmt.Sprintf("%s:\n\t%v", where, prevErrString)
	}
	return fmt.Sprintf("%s: %v\n\t%v", where, e.err, prevErrString)
}

func (e *checkpoint) Unwrap() error {
	if e.prev == nil {
		return e.err
	}
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	if e.err == nil {
		return false
	}
	return errors.As(e.err, target)
}
