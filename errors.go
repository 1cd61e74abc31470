package ontoinfer

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ontoinfer/artifact"
	"github.com/hupe1980/ontoinfer/inference"
	"github.com/hupe1980/ontoinfer/likelihood"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ontology"
	"github.com/hupe1980/ontoinfer/partition"
	"github.com/hupe1980/ontoinfer/ranges"
)

var (
	// ErrNotFound is returned when a concept, observation or artifact does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOption is returned by New for out-of-range option values.
	ErrInvalidOption = errors.New("invalid option")

	// ErrNoRoot is returned when no root node can be determined.
	ErrNoRoot = ontology.ErrNoRoot

	// ErrUnknownParent is returned when an edge references an undeclared parent.
	ErrUnknownParent = ontology.ErrUnknownParent

	// ErrPartitionEmpty marks a concept without a meaningful contrast.
	ErrPartitionEmpty = partition.ErrPartitionEmpty

	// ErrEmptyGroup is returned when a likelihood table has no observations.
	ErrEmptyGroup = likelihood.ErrEmptyGroup

	// ErrShapeMismatch is returned when two tables disagree in voxel count.
	ErrShapeMismatch = likelihood.ErrShapeMismatch

	// ErrColumnMismatch is returned when in/out tables disagree in columns.
	ErrColumnMismatch = inference.ErrColumnMismatch
)

type (
	// SchemaError names a missing relationship table column.
	SchemaError = ontology.SchemaError
	// CircularReferenceError names the two ids of a cycle.
	CircularReferenceError = ontology.CircularReferenceError
	// DuplicateNodeError reports one id with several names.
	DuplicateNodeError = ontology.DuplicateNodeError
	// RangeSpecError reports an invalid explicit range.
	RangeSpecError = ranges.RangeSpecError
	// PriorMismatchError reports binary tables with different thresholds.
	PriorMismatchError = inference.PriorMismatchError
)

// ErrVoxelMismatch indicates a query whose voxel count differs from the
// corpus.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrVoxelMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrVoxelMismatch) Error() string {
	return fmt.Sprintf("voxel mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrVoxelMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, ontology.ErrNotFound) ||
		errors.Is(err, artifact.ErrNotFound) ||
		errors.Is(err, observation.ErrUnknownID) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
