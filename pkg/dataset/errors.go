package dataset

import "errors"

// Static errors for the dataset layer
var (
	// ErrFlagNotAccepted is returned when a flag is requested from a dataset
	// that does not produce it.
	ErrFlagNotAccepted = errors.New("flag not accepted")
	// ErrDatasetNotFound is returned when a named child is absent from a
	// collection.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrNoChildren is returned when a collection operation needs at least
	// one child and none is present.
	ErrNoChildren = errors.New("collection has no child datasets")
	// ErrChildRejected is returned when a child fails a collection's child
	// guard.
	ErrChildRejected = errors.New("child dataset rejected by collection")
	// ErrCompositionCycle is returned when adding a child would make a
	// collection (transitively) contain itself.
	ErrCompositionCycle = errors.New("composition cycle detected")
	// ErrShapeUnsupported is returned when stacking results with
	// heterogeneous axis structures; this is an explicit non-goal.
	ErrShapeUnsupported = errors.New("stacking heterogeneous result shapes is not implemented")
	// ErrNonNumericSum is returned when summing results that are not all
	// numeric; no coercion is attempted.
	ErrNonNumericSum = errors.New("summation of non-numeric results is not implemented")
)
