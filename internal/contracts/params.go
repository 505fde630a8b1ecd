package contracts

import "fmt"

// Field is one named parameter value inside an assignment or label.
// Values are restricted to int, float64, string and bool.
type Field struct {
	Name  string
	Value interface{}
}

// Param is one declared parameter: either a fixed scalar or a swept
// sequence of candidate values. Declaration order is significant.
type Param struct {
	Name   string
	Values []interface{}
	Swept  bool
}

// ParameterSpec is an ordered set of parameter declarations.
// SSOT: enumeration order is the declaration order recorded here.
type ParameterSpec struct {
	params []Param
}

// NewParameterSpec creates an empty spec.
func NewParameterSpec() *ParameterSpec {
	return &ParameterSpec{}
}

// Set declares a fixed (non-swept) parameter.
func (s *ParameterSpec) Set(name string, value interface{}) *ParameterSpec {
	s.params = append(s.params, Param{Name: name, Values: []interface{}{value}})
	return s
}

// Sweep declares a swept parameter with its candidate values.
func (s *ParameterSpec) Sweep(name string, values ...interface{}) *ParameterSpec {
	s.params = append(s.params, Param{Name: name, Values: values, Swept: true})
	return s
}

// Params returns the declarations in declaration order.
func (s *ParameterSpec) Params() []Param {
	if s == nil {
		return nil
	}
	return s.params
}

// Len returns the number of declared parameters.
func (s *ParameterSpec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Validate checks that every sweep sequence is non-empty.
func (s *ParameterSpec) Validate() error {
	if s == nil {
		return nil
	}
	for _, p := range s.params {
		if len(p.Values) == 0 {
			return fmt.Errorf("%w: parameter %q has an empty sweep sequence", ErrInvalidParameterSpec, p.Name)
		}
	}
	return nil
}

// Assignment is one concrete choice of value for every parameter,
// in declaration order. Equality is structural and order-sensitive.
type Assignment struct {
	Fields []Field
}

// NewAssignment builds an assignment from fields in order.
func NewAssignment(fields ...Field) Assignment {
	return Assignment{Fields: fields}
}

// Get returns the value for name, if present.
func (a Assignment) Get(name string) (interface{}, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Int returns the value for name as an int. Float values that are
// whole numbers are accepted too, since sweep literals may mix the two.
func (a Assignment) Int(name string) (int, bool) {
	v, ok := a.Get(name)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	}
	return 0, false
}

// Float returns the value for name as a float64.
func (a Assignment) Float(name string) (float64, bool) {
	v, ok := a.Get(name)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

// String returns the value for name as a string.
func (a Assignment) String(name string) (string, bool) {
	v, ok := a.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the value for name as a bool.
func (a Assignment) Bool(name string) (bool, bool) {
	v, ok := a.Get(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Len returns the number of fields.
func (a Assignment) Len() int {
	return len(a.Fields)
}

// Equal reports structural, order-sensitive equality.
func (a Assignment) Equal(b Assignment) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name || a.Fields[i].Value != b.Fields[i].Value {
			return false
		}
	}
	return true
}

// StopParams holds the recognized stop fractions. A zero value means
// the corresponding stop is disabled.
type StopParams struct {
	StopLoss     float64 // exit when close <= entry * (1 - StopLoss)
	TrailingStop float64 // exit when close <= peak * (1 - TrailingStop)
	TakeProfit   float64 // exit when close >= entry * (1 + TakeProfit)
}

// Enabled reports whether any stop is configured.
func (p StopParams) Enabled() bool {
	return p.StopLoss > 0 || p.TrailingStop > 0 || p.TakeProfit > 0
}

// Validate checks that every configured fraction is in a sane range.
func (p StopParams) Validate() error {
	if p.StopLoss < 0 || p.StopLoss >= 1 {
		return fmt.Errorf("%w: sl_stop must be in [0, 1)", ErrInvalidArgument)
	}
	if p.TrailingStop < 0 || p.TrailingStop >= 1 {
		return fmt.Errorf("%w: ts_stop must be in [0, 1)", ErrInvalidArgument)
	}
	if p.TakeProfit < 0 {
		return fmt.Errorf("%w: tp_stop must be non-negative", ErrInvalidArgument)
	}
	return nil
}
