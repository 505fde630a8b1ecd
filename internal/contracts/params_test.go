package contracts

import (
	"errors"
	"testing"
)

func TestParameterSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    *ParameterSpec
		wantErr bool
	}{
		{
			name: "valid mixed spec",
			spec: NewParameterSpec().Set("mode", "fast").Sweep("n", 10, 20),
		},
		{
			name:    "empty sweep sequence",
			spec:    NewParameterSpec().Sweep("n"),
			wantErr: true,
		},
		{
			name: "nil spec",
			spec: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameterSpec) {
					t.Fatalf("expected ErrInvalidParameterSpec, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAssignmentAccessors(t *testing.T) {
	a := NewAssignment(
		Field{Name: "n", Value: 10},
		Field{Name: "factor", Value: 1.5},
		Field{Name: "mode", Value: "fast"},
		Field{Name: "enabled", Value: true},
	)

	if n, ok := a.Int("n"); !ok || n != 10 {
		t.Errorf("Int(n) = %d, %v", n, ok)
	}
	if f, ok := a.Float("factor"); !ok || f != 1.5 {
		t.Errorf("Float(factor) = %f, %v", f, ok)
	}
	// ints widen to float
	if f, ok := a.Float("n"); !ok || f != 10 {
		t.Errorf("Float(n) = %f, %v", f, ok)
	}
	// whole floats narrow to int
	b := NewAssignment(Field{Name: "n", Value: 10.0})
	if n, ok := b.Int("n"); !ok || n != 10 {
		t.Errorf("Int(n) from float = %d, %v", n, ok)
	}
	if s, ok := a.String("mode"); !ok || s != "fast" {
		t.Errorf("String(mode) = %q, %v", s, ok)
	}
	if v, ok := a.Bool("enabled"); !ok || !v {
		t.Errorf("Bool(enabled) = %v, %v", v, ok)
	}
	if _, ok := a.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestAssignmentEqualIsOrderSensitive(t *testing.T) {
	a := NewAssignment(Field{Name: "x", Value: 1}, Field{Name: "y", Value: 2})
	b := NewAssignment(Field{Name: "x", Value: 1}, Field{Name: "y", Value: 2})
	c := NewAssignment(Field{Name: "y", Value: 2}, Field{Name: "x", Value: 1})

	if !a.Equal(b) {
		t.Error("identical assignments should be equal")
	}
	if a.Equal(c) {
		t.Error("reordered assignments must not be equal")
	}
}

func TestStopParamsValidate(t *testing.T) {
	if err := (StopParams{StopLoss: 0.05, TakeProfit: 0.2}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (StopParams{StopLoss: 1.5}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if (StopParams{}).Enabled() {
		t.Error("zero stop params must be disabled")
	}
	if !(StopParams{TrailingStop: 0.1}).Enabled() {
		t.Error("trailing stop alone must enable the overlay")
	}
}
