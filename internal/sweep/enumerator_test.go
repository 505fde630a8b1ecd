package sweep

import (
	"errors"
	"testing"

	"github.com/gridlab/quant/internal/contracts"
)

func TestEnumerateCartesianProduct(t *testing.T) {
	spec := contracts.NewParameterSpec().
		Sweep("a", 1, 2).
		Sweep("b", "x", "y", "z")

	got, err := Enumerate(spec, contracts.Assignment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("got %d assignments, want 6", len(got))
	}

	// First declared key is the outermost loop.
	wantOrder := []struct {
		a int
		b string
	}{
		{1, "x"}, {1, "y"}, {1, "z"},
		{2, "x"}, {2, "y"}, {2, "z"},
	}
	for i, w := range wantOrder {
		a, _ := got[i].Int("a")
		b, _ := got[i].String("b")
		if a != w.a || b != w.b {
			t.Errorf("assignment %d = (a=%d, b=%s), want (a=%d, b=%s)", i, a, b, w.a, w.b)
		}
	}

	// All assignments distinct.
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Equal(got[j]) {
				t.Errorf("assignments %d and %d are equal", i, j)
			}
		}
	}
}

func TestEnumerateFixedValuesAppearInEveryAssignment(t *testing.T) {
	spec := contracts.NewParameterSpec().
		Set("mode", "fast").
		Sweep("n", 10, 20)

	got, err := Enumerate(spec, contracts.Assignment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d assignments, want 2", len(got))
	}
	for i, a := range got {
		if mode, _ := a.String("mode"); mode != "fast" {
			t.Errorf("assignment %d missing fixed value, mode=%q", i, mode)
		}
	}
}

func TestEnumerateEmptySpecFallsBackToDefaults(t *testing.T) {
	defaults := contracts.NewAssignment(contracts.Field{Name: "n", Value: 14})

	got, err := Enumerate(nil, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d assignments, want exactly 1", len(got))
	}
	if !got[0].Equal(defaults) {
		t.Errorf("fallback assignment = %+v, want defaults", got[0])
	}

	got, err = Enumerate(contracts.NewParameterSpec(), defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("empty spec: got %d assignments, want exactly 1", len(got))
	}
}

func TestEnumerateEmptySweepSequenceFails(t *testing.T) {
	spec := contracts.NewParameterSpec().Sweep("n")

	_, err := Enumerate(spec, contracts.Assignment{})
	if !errors.Is(err, contracts.ErrInvalidParameterSpec) {
		t.Fatalf("expected ErrInvalidParameterSpec, got %v", err)
	}
}
