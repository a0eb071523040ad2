// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procps

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrAlreadyAdopted is returned when an allocation is adopted a second time.
	ErrAlreadyAdopted = errors.New("allocation already adopted")
	// ErrLengthMismatch is returned when the requested length does not fit the allocation.
	ErrLengthMismatch = errors.New("adoption length does not match allocation")
)

// Allocation is a block of records allocated by a Source and handed to the caller.
// It is adopted exactly once: Adopt copies the records into a Go-owned slice and
// releases the source's memory, after which the block can no longer be read.
type Allocation[T any] struct {
	base    *T
	size    int // allocated element count, -1 when the allocator does not report it
	release func()
	done    atomic.Bool
}

// NewAllocation wraps size records starting at base. release, when non-nil, returns
// the memory to its allocator and is called exactly once. Pass a negative size when
// the allocator does not report how many records it allocated.
func NewAllocation[T any](base *T, size int, release func()) *Allocation[T] {
	return &Allocation[T]{base: base, size: size, release: release}
}

// AllocationOf wraps a Go slice as an allocation.
func AllocationOf[T any](records []T) *Allocation[T] {
	if len(records) == 0 {
		return &Allocation[T]{size: 0}
	}
	return &Allocation[T]{base: &records[0], size: len(records)}
}

// Borrow returns a view of the first n records without taking ownership. The view is
// only valid until the allocation is adopted or released.
func (a *Allocation[T]) Borrow(n int) ([]T, error) {
	if a == nil {
		if n == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %d records from a nil allocation", ErrLengthMismatch, n)
	}
	if a.done.Load() {
		return nil, ErrAlreadyAdopted
	}
	if err := a.check(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice(a.base, n), nil
}

// Adopt copies exactly n records into a new slice owned by the caller and releases the
// allocation. A second call returns ErrAlreadyAdopted. On a length mismatch the
// allocation is still released and nothing is returned.
func (a *Allocation[T]) Adopt(n int) ([]T, error) {
	if a == nil {
		if n == 0 {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: %d records from a nil allocation", ErrLengthMismatch, n)
	}
	if !a.done.CompareAndSwap(false, true) {
		return nil, ErrAlreadyAdopted
	}
	defer a.free()

	if err := a.check(n); err != nil {
		return nil, err
	}

	owned := make([]T, n)
	if n > 0 {
		copy(owned, unsafe.Slice(a.base, n))
	}
	return owned, nil
}

// Release frees an allocation that will not be adopted. It is a no-op after Adopt.
func (a *Allocation[T]) Release() {
	if a == nil {
		return
	}
	if a.done.CompareAndSwap(false, true) {
		a.free()
	}
}

// Adopted reports whether the allocation has been adopted or released.
func (a *Allocation[T]) Adopted() bool {
	return a != nil && a.done.Load()
}

func (a *Allocation[T]) check(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", ErrLengthMismatch, n)
	}
	if n > 0 && a.base == nil {
		return fmt.Errorf("%w: %d records from an empty allocation", ErrLengthMismatch, n)
	}
	if a.size >= 0 && n > a.size {
		return fmt.Errorf("%w: %d records requested, %d allocated", ErrLengthMismatch, n, a.size)
	}
	return nil
}

func (a *Allocation[T]) free() {
	if a.release != nil {
		a.release()
		a.release = nil
	}
	a.base = nil
}
