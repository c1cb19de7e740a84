package txnerr

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestPrepareFailedErrUnwrap(t *testing.T) {
	is := is.New(t)
	err := &PrepareFailedErr{ObjectID: "obj1", Err: ErrConflict}
	is.True(errors.Is(err, ErrConflict))
	is.True(err.Error() != "")
}

func TestCommitFailedErrUnwrap(t *testing.T) {
	is := is.New(t)
	err := &CommitFailedErr{ObjectID: "obj1", Err: ErrLocked}
	is.True(errors.Is(err, ErrLocked))
}

func TestRollbackFailedErrMessage(t *testing.T) {
	is := is.New(t)
	single := &RollbackFailedErr{Failures: []RollbackFailure{
		{ObjectID: "obj1", Reason: "mutable head"},
	}}
	is.True(single.Error() == `rollback failed for object "obj1": mutable head`)

	multi := &RollbackFailedErr{Failures: []RollbackFailure{
		{ObjectID: "obj1", Reason: "mutable head"},
		{ObjectID: "obj2", Reason: "adapter limitation"},
	}}
	is.Equal(multi.Error(), "rollback failed for 2 objects")
}

func TestDigestErrMessage(t *testing.T) {
	is := is.New(t)
	err := &DigestErr{Path: "fcr-content", Alg: "sha512", Expected: "aaa", Got: "bbb"}
	is.True(err.Error() != "")
}

func TestIOErrUnwrap(t *testing.T) {
	is := is.New(t)
	inner := errors.New("disk full")
	err := &IOErr{Op: "write", Err: inner}
	is.True(errors.Is(err, inner))
}
