// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"strconv"
	"strings"
	"time"
)

// DataType is the declared wire type of a signal. Narrow integer types
// (8 and 16 bit) exist as declared types only: their values travel in
// 32-bit carriers after range validation, so there are no Int8/Int16
// Value variants.
type DataType uint8

// Declared signal data types.
const (
	TypeUnspecified DataType = iota
	TypeString
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat
	TypeDouble
	TypeStringArray
	TypeBoolArray
	TypeInt8Array
	TypeInt16Array
	TypeInt32Array
	TypeInt64Array
	TypeUint32Array
	TypeUint64Array
	TypeFloatArray
	TypeDoubleArray
	TypeUint8Array
	TypeUint16Array
)

var dataTypeNames = map[DataType]string{
	TypeUnspecified: "Unspecified",
	TypeString:      "String",
	TypeBool:        "Bool",
	TypeInt8:        "Int8",
	TypeInt16:       "Int16",
	TypeInt32:       "Int32",
	TypeInt64:       "Int64",
	TypeUint8:       "Uint8",
	TypeUint16:      "Uint16",
	TypeUint32:      "Uint32",
	TypeUint64:      "Uint64",
	TypeFloat:       "Float",
	TypeDouble:      "Double",
	TypeStringArray: "StringArray",
	TypeBoolArray:   "BoolArray",
	TypeInt8Array:   "Int8Array",
	TypeInt16Array:  "Int16Array",
	TypeInt32Array:  "Int32Array",
	TypeInt64Array:  "Int64Array",
	TypeUint8Array:  "Uint8Array",
	TypeUint16Array: "Uint16Array",
	TypeUint32Array: "Uint32Array",
	TypeUint64Array: "Uint64Array",
	TypeFloatArray:  "FloatArray",
	TypeDoubleArray: "DoubleArray",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Element returns the element type of an array type. For scalar types
// it returns the type unchanged.
func (t DataType) Element() DataType {
	switch t {
	case TypeStringArray:
		return TypeString
	case TypeBoolArray:
		return TypeBool
	case TypeInt8Array:
		return TypeInt8
	case TypeInt16Array:
		return TypeInt16
	case TypeInt32Array:
		return TypeInt32
	case TypeInt64Array:
		return TypeInt64
	case TypeUint8Array:
		return TypeUint8
	case TypeUint16Array:
		return TypeUint16
	case TypeUint32Array:
		return TypeUint32
	case TypeUint64Array:
		return TypeUint64
	case TypeFloatArray:
		return TypeFloat
	case TypeDoubleArray:
		return TypeDouble
	default:
		return t
	}
}

// IsArray reports whether t is one of the array types.
func (t DataType) IsArray() bool {
	return t != t.Element()
}

// EntryKind classifies a signal within the namespace.
type EntryKind uint8

// Signal entry kinds.
const (
	KindUnspecified EntryKind = iota
	KindSensor
	KindActuator
	KindAttribute
)

func (k EntryKind) String() string {
	switch k {
	case KindSensor:
		return "Sensor"
	case KindActuator:
		return "Actuator"
	case KindAttribute:
		return "Attribute"
	default:
		return "Unknown"
	}
}

// Descriptor describes one signal in the broker's namespace. The full
// descriptor catalogue is replaced wholesale on every metadata refresh;
// individual descriptors are never mutated.
type Descriptor struct {
	// ID is the broker-assigned numeric identifier, used by Feed.
	ID uint32
	// Name is the dotted signal path, unique within the namespace.
	Name string
	// DataType is the declared value type.
	DataType DataType
	// Kind tells sensors, actuators, and attributes apart.
	Kind EntryKind
	// Description is free-form documentation from the broker.
	Description string
}

// Value is a typed signal value: exactly one of the variant types
// below. NotAvailable is the unavailability sentinel, distinct from
// every scalar and array variant.
type Value interface {
	// String renders the value the way the interactive client
	// displays it.
	String() string

	isValue()
}

// Scalar value variants. Int8/Int16 and Uint8/Uint16 declared types
// use the Int32/Uint32 carriers.
type (
	Bool   bool
	Int32  int32
	Int64  int64
	Uint32 uint32
	Uint64 uint64
	Float  float32
	Double float64
	String string
)

// Array value variants.
type (
	BoolArray   []bool
	Int32Array  []int32
	Int64Array  []int64
	Uint32Array []uint32
	Uint64Array []uint64
	FloatArray  []float32
	DoubleArray []float64
	StringArray []string
)

// NotAvailable is the unavailability sentinel: the signal reported an
// explicit no-value condition rather than a normal value.
type NotAvailable struct{}

func (Bool) isValue()         {}
func (Int32) isValue()        {}
func (Int64) isValue()        {}
func (Uint32) isValue()       {}
func (Uint64) isValue()       {}
func (Float) isValue()        {}
func (Double) isValue()       {}
func (String) isValue()       {}
func (BoolArray) isValue()    {}
func (Int32Array) isValue()   {}
func (Int64Array) isValue()   {}
func (Uint32Array) isValue()  {}
func (Uint64Array) isValue()  {}
func (FloatArray) isValue()   {}
func (DoubleArray) isValue()  {}
func (StringArray) isValue()  {}
func (NotAvailable) isValue() {}

func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }
func (v Int32) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Int64) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Uint32) String() string { return strconv.FormatUint(uint64(v), 10) }
func (v Uint64) String() string { return strconv.FormatUint(uint64(v), 10) }

// Float renders with two decimal places; Double with the shortest
// representation that round-trips.
func (v Float) String() string  { return strconv.FormatFloat(float64(v), 'f', 2, 32) }
func (v Double) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }

func (v String) String() string { return "'" + string(v) + "'" }

func (NotAvailable) String() string { return "( NotAvailable )" }

func (v BoolArray) String() string {
	return displayArray(v, func(e bool) string { return strconv.FormatBool(e) })
}

func (v Int32Array) String() string {
	return displayArray(v, func(e int32) string { return strconv.FormatInt(int64(e), 10) })
}

func (v Int64Array) String() string {
	return displayArray(v, func(e int64) string { return strconv.FormatInt(e, 10) })
}

func (v Uint32Array) String() string {
	return displayArray(v, func(e uint32) string { return strconv.FormatUint(uint64(e), 10) })
}

func (v Uint64Array) String() string {
	return displayArray(v, func(e uint64) string { return strconv.FormatUint(e, 10) })
}

func (v FloatArray) String() string {
	return displayArray(v, func(e float32) string { return strconv.FormatFloat(float64(e), 'f', 2, 32) })
}

func (v DoubleArray) String() string {
	return displayArray(v, func(e float64) string { return strconv.FormatFloat(e, 'f', -1, 64) })
}

// String array elements display without quotes, unlike a scalar String.
func (v StringArray) String() string {
	return displayArray(v, func(e string) string { return e })
}

func displayArray[E any](elements []E, format func(E) string) string {
	var b strings.Builder
	b.WriteString("[")
	for i, e := range elements {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(format(e))
	}
	b.WriteString("]")
	return b.String()
}

// Datapoint pairs a value with its capture timestamp.
type Datapoint struct {
	Timestamp time.Time
	Value     Value
}

// Display renders the datapoint's value; a datapoint with no value at
// all (nil) renders as "None".
func (d Datapoint) Display() string {
	if d.Value == nil {
		return "None"
	}
	return d.Value.String()
}

// Entry is one path/value pair returned by a read.
type Entry struct {
	Path  string
	Value Datapoint
}

// FieldError is a per-field failure code returned by batch writes.
// The batch call itself succeeds even when individual fields are
// rejected.
type FieldError uint32

// Field-level write failure codes.
const (
	FieldErrUnknownDatapoint FieldError = iota
	FieldErrInvalidType
	FieldErrAccessDenied
	FieldErrInternalError
	FieldErrOutOfBounds
)

func (e FieldError) String() string {
	switch e {
	case FieldErrUnknownDatapoint:
		return "UnknownDatapoint"
	case FieldErrInvalidType:
		return "InvalidType"
	case FieldErrAccessDenied:
		return "AccessDenied"
	case FieldErrInternalError:
		return "InternalError"
	case FieldErrOutOfBounds:
		return "OutOfBounds"
	default:
		return "Unknown"
	}
}

// ConnState is one transition on the connection-state stream.
type ConnState int

// Connection states.
const (
	StateDisconnected ConnState = iota
	StateConnected
)

func (s ConnState) String() string {
	if s == StateConnected {
		return "Connected"
	}
	return "Disconnected"
}
