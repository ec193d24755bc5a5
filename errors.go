package pagesort

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ComparisonError represents a panic raised by the Compare function
type ComparisonError struct {
	// Cause is the original panic value
	Cause interface{}
	// Context provides additional information about when the comparison failed
	Context string
}

func (e *ComparisonError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("comparison panic in %s: %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("comparison panic: %v", e.Cause)
}

func (e *ComparisonError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// NewComparisonError creates a ComparisonError
func NewComparisonError(cause interface{}, context string) error {
	return &ComparisonError{Cause: cause, Context: context}
}

// CapacityError reports a page that refused a record outside of the normal
// full-page handling, which means page and record sizes do not agree.
type CapacityError struct {
	// Capacity is the record capacity of the page
	Capacity int
	// Len is the number of records on the page when the append failed
	Len int
	// Context names the step that appended
	Context string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity violation in %s: page holds %d of %d records", e.Context, e.Len, e.Capacity)
}

// ConfigError represents an error in configuration parameters
type ConfigError struct {
	// Field is the name of the configuration field that's invalid
	Field string
	// Value is the invalid value provided
	Value interface{}
	// Reason explains why the value is invalid
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %s", e.Field, e.Value, e.Reason)
}

// NewDiskError wraps an error returned by a table during operation on the named table
func NewDiskError(err error, operation, name string) error {
	if name != "" {
		return errors.Wrapf(err, "disk error during %s on %s", operation, name)
	}
	return errors.Wrapf(err, "disk error during %s", operation)
}

// comparisonPanic carries a panic out of a Compare call so Sort can tell it
// apart from other panics.
type comparisonPanic struct {
	value any
}

// guardCompare returns a Compare that re-panics with a comparisonPanic.
func guardCompare[E any](compare Compare[E]) Compare[E] {
	return func(a, b E) (c int) {
		defer func() {
			if r := recover(); r != nil {
				panic(comparisonPanic{value: r})
			}
		}()
		return compare(a, b)
	}
}

// recoverComparison turns a comparisonPanic into a ComparisonError stored in *err.
// Any other panic keeps unwinding.
func recoverComparison(err *error, context string) {
	r := recover()
	if r == nil {
		return
	}
	cp, ok := r.(comparisonPanic)
	if !ok {
		panic(r)
	}
	*err = NewComparisonError(cp.value, context)
}
