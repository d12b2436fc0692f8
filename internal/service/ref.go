package service

import (
	"errors"
	"strconv"
	"strings"
)

// ErrBadRef is returned when a carried reference cannot be parsed.
var ErrBadRef = errors.New("malformed classification reference")

const singlePrefix = "single_"

// Ref identifies what a classification selection applies to: a pending
// batch or a single file record. It is round-tripped through callback
// payloads so no server-side session is needed between the two menu
// steps.
type Ref struct {
	id    int64
	batch bool
}

// BatchRef wraps a pending batch id.
func BatchRef(id int64) Ref {
	return Ref{id: id, batch: true}
}

// SingleRef wraps a single file record id.
func SingleRef(fileID int64) Ref {
	return Ref{id: fileID}
}

// IsBatch reports whether the reference carries a batch id.
func (r Ref) IsBatch() bool { return r.batch }

// ID returns the carried batch or file id.
func (r Ref) ID() int64 { return r.id }

// String renders the wire form: "<batchID>" for batches,
// "single_<fileID>" for single items.
func (r Ref) String() string {
	if r.batch {
		return strconv.FormatInt(r.id, 10)
	}
	return singlePrefix + strconv.FormatInt(r.id, 10)
}

// ParseRef is the inverse of String.
func ParseRef(s string) (Ref, error) {
	if rest, ok := strings.CutPrefix(s, singlePrefix); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id < 0 {
			return Ref{}, ErrBadRef
		}
		return SingleRef(id), nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return Ref{}, ErrBadRef
	}
	return BatchRef(id), nil
}
