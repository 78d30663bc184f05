package pipeline

import (
	"errors"
	"fmt"

	"github.com/dvloznov/youtube-trending/internal/dataset"
)

// RowCoercionError reports a single cell that could not be cast. Stages
// recover it locally by writing null into the cell.
type RowCoercionError struct {
	Column string
	Value  string
	Target dataset.Kind
	Err    error
}

func (e *RowCoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot coerce %q in column %q to %s: %v", e.Value, e.Column, e.Target, e.Err)
	}
	return fmt.Sprintf("cannot coerce %q in column %q to %s", e.Value, e.Column, e.Target)
}

func (e *RowCoercionError) Unwrap() error { return e.Err }

// EmptyResultError means a stage has no usable rows left.
type EmptyResultError struct {
	Stage  string
	Reason string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: empty result: %s", e.Stage, e.Reason)
}

// JoinKeyMismatchError means a join key column is missing or holds values of
// the wrong kind. It is a configuration error and is never retried.
type JoinKeyMismatchError struct {
	Side   string
	Column string
	Row    int
	Got    dataset.Kind
	Err    error
}

func (e *JoinKeyMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("join key %s.%s: %v", e.Side, e.Column, e.Err)
	}
	return fmt.Sprintf("join key %s.%s row %d: got %s, want string", e.Side, e.Column, e.Row, e.Got)
}

func (e *JoinKeyMismatchError) Unwrap() error { return e.Err }

// PartitionWindowError means the year-month window is missing or malformed.
type PartitionWindowError struct {
	Key string
	Err error
}

func (e *PartitionWindowError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("partition window required: %v", e.Err)
	}
	return fmt.Sprintf("partition window %q: %v", e.Key, e.Err)
}

func (e *PartitionWindowError) Unwrap() error { return e.Err }

// ErrNoPartition is the cause attached when a partitioned stage gets no key.
var ErrNoPartition = errors.New("no partition key supplied")

// IsFatal reports whether err is one of the fatal stage error kinds.
func IsFatal(err error) bool {
	var (
		empty *EmptyResultError
		join  *JoinKeyMismatchError
		win   *PartitionWindowError
	)
	return errors.As(err, &empty) || errors.As(err, &join) || errors.As(err, &win)
}

// IsRetryable reports whether running the same stage again could succeed.
// Stage errors are deterministic for a given input, so only errors from
// outside the core (storage, network) are worth retrying.
func IsRetryable(err error) bool {
	return err != nil && !IsFatal(err)
}
