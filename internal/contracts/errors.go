package contracts

import "errors"

// Sentinel errors for the sweep/composition pipeline.
// SSOT: every failure mode of the engine maps to exactly one of these,
// wrapped with context via fmt.Errorf("...: %w", ...) and matched with
// errors.Is at the call site.
var (
	// ErrInvalidParameterSpec is returned when a sweep sequence is empty.
	ErrInvalidParameterSpec = errors.New("invalid parameter spec")

	// ErrColumnLabelDecode is returned when a column key cannot be
	// decoded back into an assignment.
	ErrColumnLabelDecode = errors.New("column label decode failed")

	// ErrMisalignedTimeIndex is returned when composition inputs do not
	// share an identical row index.
	ErrMisalignedTimeIndex = errors.New("misaligned time index")

	// ErrUnsupportedSide is returned for side="short".
	ErrUnsupportedSide = errors.New("unsupported side")

	// ErrInvalidArgument is returned for unknown side values, duplicate
	// filter names and other malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyVariantSet signals an internal invariant violation: the
	// enumerator would have produced zero combinations despite the
	// default-parameters fallback.
	ErrEmptyVariantSet = errors.New("empty variant set")
)
