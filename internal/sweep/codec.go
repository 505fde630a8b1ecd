package sweep

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gridlab/quant/internal/contracts"
)

// Column keys are a structured encoding of an assignment:
//
//	name=tag:value;name=tag:value;...
//
// with one typed field per parameter in declaration order. Tags are
// i (int), f (float64), s (string), b (bool). Names and string values
// are percent-escaped so the separators stay unambiguous; floats use
// strconv's shortest round-trip formatting so decode(encode(a)) == a
// holds exactly. Keys are never evaluated as code.

const (
	fieldSep = ";"
	kvSep    = "="
	tagSep   = ":"
)

// EncodeLabel encodes an assignment into its canonical column key.
func EncodeLabel(a contracts.Assignment) (string, error) {
	if len(a.Fields) == 0 {
		return "", nil
	}
	parts := make([]string, len(a.Fields))
	for i, f := range a.Fields {
		encoded, err := encodeValue(f.Value)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		parts[i] = url.QueryEscape(f.Name) + kvSep + encoded
	}
	return strings.Join(parts, fieldSep), nil
}

// DecodeLabel decodes a column key back into its assignment. It is the
// exact inverse of EncodeLabel.
func DecodeLabel(key string) (contracts.Assignment, error) {
	if key == "" {
		return contracts.Assignment{}, nil
	}

	parts := strings.Split(key, fieldSep)
	fields := make([]contracts.Field, len(parts))
	for i, part := range parts {
		kv := strings.SplitN(part, kvSep, 2)
		if len(kv) != 2 {
			return contracts.Assignment{}, fmt.Errorf("%w: key %q has no name/value separator in field %q",
				contracts.ErrColumnLabelDecode, key, part)
		}
		name, err := url.QueryUnescape(kv[0])
		if err != nil {
			return contracts.Assignment{}, fmt.Errorf("%w: key %q has unescapable field name %q",
				contracts.ErrColumnLabelDecode, key, kv[0])
		}
		value, err := decodeValue(kv[1])
		if err != nil {
			return contracts.Assignment{}, fmt.Errorf("%w: key %q field %q: %v",
				contracts.ErrColumnLabelDecode, key, name, err)
		}
		fields[i] = contracts.Field{Name: name, Value: value}
	}
	return contracts.NewAssignment(fields...), nil
}

func encodeValue(v interface{}) (string, error) {
	switch x := v.(type) {
	case int:
		return "i" + tagSep + strconv.Itoa(x), nil
	case float64:
		return "f" + tagSep + strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return "s" + tagSep + url.QueryEscape(x), nil
	case bool:
		return "b" + tagSep + strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("%w: unsupported parameter value type %T", contracts.ErrInvalidArgument, v)
	}
}

func decodeValue(s string) (interface{}, error) {
	tv := strings.SplitN(s, tagSep, 2)
	if len(tv) != 2 {
		return nil, fmt.Errorf("value %q has no type tag", s)
	}
	switch tv[0] {
	case "i":
		n, err := strconv.Atoi(tv[1])
		if err != nil {
			return nil, fmt.Errorf("bad int %q", tv[1])
		}
		return n, nil
	case "f":
		f, err := strconv.ParseFloat(tv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad float %q", tv[1])
		}
		return f, nil
	case "s":
		str, err := url.QueryUnescape(tv[1])
		if err != nil {
			return nil, fmt.Errorf("bad string %q", tv[1])
		}
		return str, nil
	case "b":
		b, err := strconv.ParseBool(tv[1])
		if err != nil {
			return nil, fmt.Errorf("bad bool %q", tv[1])
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown type tag %q", tv[0])
	}
}
