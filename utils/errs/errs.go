package errs

import "github.com/pkg/errors"

// Sentinel errors returned across the store. Callers compare with
// errors.Is/errors.Cause since most are wrapped with extra context via
// github.com/pkg/errors before crossing a package boundary.
var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrEmptyKey         = errors.New("key cannot be empty")
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// Filter cache specific.
	ErrExhausted      = errors.New("all filter units are already resident")
	ErrEmpty          = errors.New("no filter unit is resident")
	ErrCorruptTrailer = errors.New("filter block trailer is corrupt")
	ErrNoAdjustment   = errors.New("no adjustment applied")
)

// Err logs nothing by itself; it exists so callers that only want to
// surface an error (mirroring the teacher's utils.Panic/CondPanic style)
// have a single place to route errors that are currently ignored.
func Err(err error) error {
	return err
}

// Wrap adds a message to err, or returns nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// WrapCondPanic panics with err wrapped in msg when condition is true.
func WrapCondPanic(condition bool, err error, msg string) {
	if condition {
		panic(errors.Wrap(err, msg))
	}
}

// CondPanic panics with err when condition is true, mirroring the teacher
// pack's convention of asserting invariants that should never fail in
// practice (integer overflow guards, partial-write guards) rather than
// threading an error return through every call site.
func CondPanic(condition bool, err error) {
	if condition {
		panic(err)
	}
}
