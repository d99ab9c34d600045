// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"fmt"
	"strconv"
	"strings"
)

// NotAvailableToken is the literal input that coerces to the
// unavailability sentinel, regardless of the declared type.
const NotAvailableToken = "NotAvailable"

// Coerce converts free-text input into the typed value for the
// declared data type. Narrow integer declarations (8/16 bit) are
// validated against their declared range, then widened into the 32-bit
// wire carrier: a literal that overflows the declared width fails even
// though the carrier could hold it.
//
// Array input is a bracket-delimited, comma-separated list; a single
// bad element fails the whole array. Every failure wraps ErrParse.
func Coerce(input string, dataType DataType) (Value, error) {
	if input == NotAvailableToken {
		return NotAvailable{}, nil
	}

	switch dataType {
	case TypeString:
		return String(input), nil
	case TypeBool:
		v, err := parseBoolLiteral(input)
		if err != nil {
			return nil, err
		}
		return Bool(v), nil
	case TypeInt8, TypeInt16, TypeInt32:
		v, err := parseIntLiteral(input, dataType)
		if err != nil {
			return nil, err
		}
		return Int32(v), nil
	case TypeInt64:
		v, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return nil, parseFailure(input, dataType)
		}
		return Int64(v), nil
	case TypeUint8, TypeUint16, TypeUint32:
		v, err := parseUintLiteral(input, dataType)
		if err != nil {
			return nil, err
		}
		return Uint32(v), nil
	case TypeUint64:
		v, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return nil, parseFailure(input, dataType)
		}
		return Uint64(v), nil
	case TypeFloat:
		v, err := strconv.ParseFloat(input, 32)
		if err != nil {
			return nil, parseFailure(input, dataType)
		}
		return Float(v), nil
	case TypeDouble:
		v, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return nil, parseFailure(input, dataType)
		}
		return Double(v), nil
	}

	if dataType.IsArray() {
		return coerceArray(input, dataType)
	}
	return nil, fmt.Errorf("%w: unsupported data type %s", ErrParse, dataType)
}

func parseFailure(input string, dataType DataType) error {
	return fmt.Errorf("%w: %q is not a valid %s", ErrParse, input, dataType)
}

func parseBoolLiteral(input string) (bool, error) {
	switch input {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, parseFailure(input, TypeBool)
	}
}

// parseIntLiteral validates against the declared width, then returns
// the 32-bit carrier value.
func parseIntLiteral(input string, declared DataType) (int32, error) {
	bits := 32
	switch declared {
	case TypeInt8:
		bits = 8
	case TypeInt16:
		bits = 16
	}
	v, err := strconv.ParseInt(input, 10, bits)
	if err != nil {
		return 0, parseFailure(input, declared)
	}
	return int32(v), nil
}

func parseUintLiteral(input string, declared DataType) (uint32, error) {
	bits := 32
	switch declared {
	case TypeUint8:
		bits = 8
	case TypeUint16:
		bits = 16
	}
	v, err := strconv.ParseUint(input, 10, bits)
	if err != nil {
		return 0, parseFailure(input, declared)
	}
	return uint32(v), nil
}

// coerceArray splits the bracketed literal and parses every element
// with the scalar rule for the array's element type. The sentinel
// token is not recognized inside arrays: it is either a plain string
// element (string arrays) or a parse failure (everything else),
// matching the scalar grammar of the element type.
func coerceArray(input string, dataType DataType) (Value, error) {
	elements, err := SplitArrayLiteral(input)
	if err != nil {
		return nil, err
	}

	elementType := dataType.Element()
	switch dataType {
	case TypeStringArray:
		return StringArray(elements), nil
	case TypeBoolArray:
		v, err := mapElements(elements, parseBoolLiteral)
		if err != nil {
			return nil, err
		}
		return BoolArray(v), nil
	case TypeInt8Array, TypeInt16Array, TypeInt32Array:
		v, err := mapElements(elements, func(s string) (int32, error) {
			return parseIntLiteral(s, elementType)
		})
		if err != nil {
			return nil, err
		}
		return Int32Array(v), nil
	case TypeInt64Array:
		v, err := mapElements(elements, func(s string) (int64, error) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, parseFailure(s, elementType)
			}
			return n, nil
		})
		if err != nil {
			return nil, err
		}
		return Int64Array(v), nil
	case TypeUint8Array, TypeUint16Array, TypeUint32Array:
		v, err := mapElements(elements, func(s string) (uint32, error) {
			return parseUintLiteral(s, elementType)
		})
		if err != nil {
			return nil, err
		}
		return Uint32Array(v), nil
	case TypeUint64Array:
		v, err := mapElements(elements, func(s string) (uint64, error) {
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return 0, parseFailure(s, elementType)
			}
			return n, nil
		})
		if err != nil {
			return nil, err
		}
		return Uint64Array(v), nil
	case TypeFloatArray:
		v, err := mapElements(elements, func(s string) (float32, error) {
			n, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return 0, parseFailure(s, elementType)
			}
			return float32(n), nil
		})
		if err != nil {
			return nil, err
		}
		return FloatArray(v), nil
	case TypeDoubleArray:
		v, err := mapElements(elements, func(s string) (float64, error) {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, parseFailure(s, elementType)
			}
			return n, nil
		})
		if err != nil {
			return nil, err
		}
		return DoubleArray(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported array type %s", ErrParse, dataType)
	}
}

func mapElements[E any](elements []string, parse func(string) (E, error)) ([]E, error) {
	out := make([]E, 0, len(elements))
	for _, element := range elements {
		v, err := parse(element)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SplitArrayLiteral splits a bracket-delimited, comma-separated array
// literal into its raw elements. Elements may be quoted with single or
// double quotes to protect commas and leading/trailing whitespace; a
// backslash escapes the next character inside quotes. "[]" yields no
// elements.
func SplitArrayLiteral(input string) ([]string, error) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 2 || !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("%w: array literal must be enclosed in brackets", ErrParse)
	}
	body := trimmed[1 : len(trimmed)-1]
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	var (
		elements []string
		current  strings.Builder
		quote    rune // active quote character, 0 when outside quotes
		quoted   bool // current element used quoting
		escaped  bool
	)
	flush := func() {
		element := current.String()
		if !quoted {
			element = strings.TrimSpace(element)
		}
		elements = append(elements, element)
		current.Reset()
		quoted = false
	}

	for _, r := range body {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote != 0 && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			quoted = true
		case r == ',':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if quote != 0 || escaped {
		return nil, fmt.Errorf("%w: unterminated quote in array literal", ErrParse)
	}
	flush()
	return elements, nil
}
