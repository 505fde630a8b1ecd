// Package sweep expands parameter specs into concrete assignments,
// encodes assignment provenance into column keys and runs signal
// functions once per variant.
package sweep

import (
	"fmt"

	"github.com/gridlab/quant/internal/contracts"
)

// Enumerate expands spec into the ordered list of all assignments
// forming the cartesian product over declaration order: the first
// declared key is the outermost loop, the last the innermost.
//
// An empty (or nil) spec yields exactly one assignment equal to
// defaults, so downstream stages always see at least one combination.
func Enumerate(spec *contracts.ParameterSpec, defaults contracts.Assignment) ([]contracts.Assignment, error) {
	if spec.Len() == 0 {
		return []contracts.Assignment{defaults}, nil
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	params := spec.Params()
	total := 1
	for _, p := range params {
		total *= len(p.Values)
	}

	out := make([]contracts.Assignment, 0, total)
	indices := make([]int, len(params))
	for {
		fields := make([]contracts.Field, len(params))
		for i, p := range params {
			fields[i] = contracts.Field{Name: p.Name, Value: p.Values[indices[i]]}
		}
		out = append(out, contracts.NewAssignment(fields...))

		// Advance the innermost position first, carrying left.
		pos := len(params) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(params[pos].Values) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: enumeration produced zero combinations", contracts.ErrEmptyVariantSet)
	}
	return out, nil
}
