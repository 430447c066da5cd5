// Copyright 2018-2021 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package errtypes contains the error kinds shared by the naming and
// storage servers. It would have been nice to call this package errors,
// err, or error, but errors clashes with github.com/pkg/errors, err is
// used for any error variable, and error is a reserved word.
package errtypes

import "fmt"

// NotFound is returned when a requested path, or a parent a request
// depends on, is not known to the namespace.
type NotFound string

func (e NotFound) Error() string { return "not found: " + string(e) }

// IsNotFound marks e as a NotFound error.
func (e NotFound) IsNotFound() {}

// IllegalArgument is returned for malformed input: a bad path, a null
// stub, an empty component, an illegal character. Fail-fast, never
// recovered locally.
type IllegalArgument string

func (e IllegalArgument) Error() string { return "illegal argument: " + string(e) }

// IsIllegalArgument marks e as an IllegalArgument error.
func (e IllegalArgument) IsIllegalArgument() {}

// IllegalState is returned when an operation is invalid given the
// current state of the receiver: a duplicate registration, starting a
// server twice, stopping one that was never started.
type IllegalState string

func (e IllegalState) Error() string { return "illegal state: " + string(e) }

// IsIllegalState marks e as an IllegalState error.
func (e IllegalState) IsIllegalState() {}

// IndexOutOfBounds is returned when a read or write offset/length
// falls outside the bounds the operation requires.
type IndexOutOfBounds string

func (e IndexOutOfBounds) Error() string { return "index out of bounds: " + string(e) }

// IsIndexOutOfBounds marks e as an IndexOutOfBounds error.
func (e IndexOutOfBounds) IsIndexOutOfBounds() {}

// IO wraps a local filesystem failure observed by a storage server.
type IO struct {
	Path string
	Err  error
}

func (e *IO) Error() string { return fmt.Sprintf("io error on %q: %v", e.Path, e.Err) }

// Unwrap exposes the underlying filesystem error.
func (e *IO) Unwrap() error { return e.Err }

// IsIO marks e as an IO error.
func (e *IO) IsIO() {}

// RemoteFailure wraps a transport-level error reaching a peer stub.
// It is surfaced to the caller as-is; neither the naming server nor a
// storage server retries on the caller's behalf.
type RemoteFailure struct {
	Op  string
	Err error
}

func (e *RemoteFailure) Error() string { return fmt.Sprintf("remote failure during %s: %v", e.Op, e.Err) }

// Unwrap exposes the underlying transport error.
func (e *RemoteFailure) Unwrap() error { return e.Err }

// IsRemoteFailure marks e as a RemoteFailure error.
func (e *RemoteFailure) IsRemoteFailure() {}

// IsNotFound is implemented by errors representing a missing path.
type IsNotFound interface{ IsNotFound() }

// IsIllegalArgument is implemented by errors representing bad input.
type IsIllegalArgument interface{ IsIllegalArgument() }

// IsIllegalState is implemented by errors representing an invalid
// state transition or precondition.
type IsIllegalState interface{ IsIllegalState() }

// IsIndexOutOfBounds is implemented by errors representing an
// out-of-range read/write.
type IsIndexOutOfBounds interface{ IsIndexOutOfBounds() }

// IsIO is implemented by errors wrapping a local filesystem failure.
type IsIO interface{ IsIO() }

// IsRemoteFailure is implemented by errors wrapping a transport
// failure reaching a peer.
type IsRemoteFailure interface{ IsRemoteFailure() }
