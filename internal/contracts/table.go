package contracts

import (
	"fmt"
	"strings"
	"time"
)

// ColumnLabel is the decoded, hierarchical identity of one output
// column: one field per parameter, in declaration order.
type ColumnLabel struct {
	Fields []Field
}

// Prefixed returns a copy of the label with every field name prefixed
// by the source name, e.g. filter "mmi" field "timeperiod" becomes
// "mmi_timeperiod".
func (l ColumnLabel) Prefixed(source string) ColumnLabel {
	out := ColumnLabel{Fields: make([]Field, len(l.Fields))}
	for i, f := range l.Fields {
		out.Fields[i] = Field{Name: source + "_" + f.Name, Value: f.Value}
	}
	return out
}

// Merge returns a new label with other's fields appended after l's.
func (l ColumnLabel) Merge(other ColumnLabel) ColumnLabel {
	fields := make([]Field, 0, len(l.Fields)+len(other.Fields))
	fields = append(fields, l.Fields...)
	fields = append(fields, other.Fields...)
	return ColumnLabel{Fields: fields}
}

// Equal reports structural, order-sensitive equality.
func (l ColumnLabel) Equal(other ColumnLabel) bool {
	if len(l.Fields) != len(other.Fields) {
		return false
	}
	for i := range l.Fields {
		if l.Fields[i].Name != other.Fields[i].Name || l.Fields[i].Value != other.Fields[i].Value {
			return false
		}
	}
	return true
}

// String renders the label for display, e.g. "timeperiod=10, factor=1.5".
func (l ColumnLabel) String() string {
	parts := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		parts[i] = fmt.Sprintf("%s=%v", f.Name, f.Value)
	}
	return strings.Join(parts, ", ")
}

// Column is one boolean signal series tagged with its provenance.
// Key is the canonical encoded form of Label.
type Column struct {
	Key    string
	Label  ColumnLabel
	Values []bool
}

// SignalTable is a time-indexed ordered set of labeled boolean columns.
// Every column shares the table's row index exactly; composition never
// reindexes.
type SignalTable struct {
	Index   []time.Time
	Columns []Column
}

// NewSignalTable creates an empty table over the given index.
func NewSignalTable(index []time.Time) *SignalTable {
	return &SignalTable{Index: index}
}

// AddColumn appends a column. The values length must match the index.
func (t *SignalTable) AddColumn(key string, label ColumnLabel, values []bool) error {
	if len(values) != len(t.Index) {
		return fmt.Errorf("%w: column %q has %d rows, index has %d",
			ErrInvalidArgument, key, len(values), len(t.Index))
	}
	t.Columns = append(t.Columns, Column{Key: key, Label: label, Values: values})
	return nil
}

// Width returns the number of columns.
func (t *SignalTable) Width() int {
	return len(t.Columns)
}

// Len returns the number of rows.
func (t *SignalTable) Len() int {
	return len(t.Index)
}

// SameIndex reports whether both tables share an identical row index.
func (t *SignalTable) SameIndex(other *SignalTable) bool {
	if len(t.Index) != len(other.Index) {
		return false
	}
	for i := range t.Index {
		if !t.Index[i].Equal(other.Index[i]) {
			return false
		}
	}
	return true
}

// Diagnostics is a two-level mapping (category -> artifact -> series or
// scalar) carried alongside a SignalTable for downstream visualization.
// Opaque to composition logic; merged by key-prefixing only.
type Diagnostics map[string]map[string]interface{}

// Add records one artifact under a category.
func (d Diagnostics) Add(category, name string, artifact interface{}) {
	m, ok := d[category]
	if !ok {
		m = make(map[string]interface{})
		d[category] = m
	}
	m[name] = artifact
}

// MergeVariant unions other into d with every artifact name qualified
// by the variant key, e.g. "sma" from variant "n=10" becomes
// "sma[n=10]". Keeps every variant's diagnostics inspectable instead of
// letting the last variant win.
func (d Diagnostics) MergeVariant(variantKey string, other Diagnostics) {
	for category, artifacts := range other {
		for name, artifact := range artifacts {
			qualified := name
			if variantKey != "" {
				qualified = name + "[" + variantKey + "]"
			}
			d.Add(category, qualified, artifact)
		}
	}
}

// MergePrefixed unions other into d with every artifact name prefixed
// by the source name, mirroring the provenance prefix on labels.
func (d Diagnostics) MergePrefixed(source string, other Diagnostics) {
	for category, artifacts := range other {
		for name, artifact := range artifacts {
			d.Add(category, source+"_"+name, artifact)
		}
	}
}
