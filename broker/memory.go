// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Client = (*MemoryBroker)(nil)

// MemoryBroker is an in-process Client. Signals are defined with
// Define, values move with Publish, and subscriptions fan out inside
// the process, bypassing any network transport. Tests drive it
// directly; the memory:// scheme exposes it through Dial.
type MemoryBroker struct {
	mu        sync.Mutex
	uri       string
	connected bool
	token     string
	nextID    uint32
	signals   []Descriptor
	values    map[string]Datapoint
	subs      []*memorySubscription
	states    chan ConnState
}

type memorySubscription struct {
	paths []string
	sub   *Subscription
}

// NewMemoryBroker creates a disconnected broker with an empty
// namespace.
func NewMemoryBroker(uri string) *MemoryBroker {
	return &MemoryBroker{
		uri:    uri,
		values: make(map[string]Datapoint),
		states: make(chan ConnState, 8),
	}
}

func init() {
	RegisterTransport("memory", func(uri *url.URL) (Client, error) {
		b := NewMemoryBroker(uri.String())
		if uri.Host == "demo" {
			b.SeedDemo()
		}
		return b, nil
	})
}

// Define registers a signal and returns its assigned ID. The namespace
// is kept sorted by name, matching what a broker returns.
func (b *MemoryBroker) Define(name string, dataType DataType, kind EntryKind) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.signals = append(b.signals, Descriptor{
		ID:       b.nextID,
		Name:     name,
		DataType: dataType,
		Kind:     kind,
	})
	sort.Slice(b.signals, func(i, j int) bool { return b.signals[i].Name < b.signals[j].Name })
	return b.nextID
}

// SeedDemo populates a small vehicle namespace for offline use.
func (b *MemoryBroker) SeedDemo() {
	b.Define("Vehicle.Speed", TypeFloat, KindSensor)
	b.Define("Vehicle.AverageSpeed", TypeFloat, KindSensor)
	b.Define("Vehicle.Cabin.Seat.Row1.Pos1.Position", TypeUint32, KindActuator)
	b.Define("Vehicle.Cabin.Seat.Row1.Pos2.Position", TypeUint32, KindActuator)
	b.Define("Vehicle.Cabin.Door.Row1.Left.IsOpen", TypeBool, KindSensor)
	b.Define("Vehicle.Powertrain.Engine.RPM", TypeUint32, KindSensor)
	b.Define("Vehicle.VIN", TypeString, KindAttribute)
}

// Publish stores a new value and fans it out to every subscription
// watching the path.
func (b *MemoryBroker) Publish(name string, datapoint Datapoint) {
	b.mu.Lock()
	b.values[name] = datapoint
	var targets []*Subscription
	for _, ms := range b.subs {
		for _, p := range ms.paths {
			if p == name {
				targets = append(targets, ms.sub)
				break
			}
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.Send(Update{name: datapoint})
	}
}

// Disconnect drops the connection: every open subscription ends
// normally (the server is gone, not broken) and a Disconnected state
// transition is emitted.
func (b *MemoryBroker) Disconnect() {
	b.mu.Lock()
	b.connected = false
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ms := range subs {
		ms.sub.Close(nil)
	}
	b.pushState(StateDisconnected)
}

func (b *MemoryBroker) pushState(state ConnState) {
	select {
	case b.states <- state:
	default: // slow consumer: drop rather than block the broker
	}
}

func (b *MemoryBroker) Connect(_ context.Context) error {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	b.pushState(StateConnected)
	return nil
}

func (b *MemoryBroker) ConnectTo(ctx context.Context, uri string) error {
	b.mu.Lock()
	b.uri = uri
	b.mu.Unlock()
	return b.Connect(ctx)
}

func (b *MemoryBroker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *MemoryBroker) URI() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uri
}

func (b *MemoryBroker) SetAccessToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return &FunctionError{Message: "empty access token"}
	}
	b.mu.Lock()
	b.token = strings.TrimSpace(token)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroker) Metadata(_ context.Context, patterns []string) ([]Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, &ConnectionError{Message: "not connected"}
	}

	if len(patterns) == 0 {
		return append([]Descriptor(nil), b.signals...), nil
	}
	var out []Descriptor
	for _, d := range b.signals {
		for _, pattern := range patterns {
			re, err := CompilePathPattern(pattern)
			if err != nil {
				return nil, &StatusError{Code: StatusInvalidArgument, Message: fmt.Sprintf("invalid pattern %q", pattern)}
			}
			if re.MatchString(d.Name) {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

func (b *MemoryBroker) Get(_ context.Context, paths []string) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, &ConnectionError{Message: "not connected"}
	}

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		if dp, ok := b.values[path]; ok {
			entries = append(entries, Entry{Path: path, Value: dp})
			continue
		}
		// Known but never written, or entirely unknown: both report
		// the unavailability sentinel, like a broker with no stored
		// datapoint.
		entries = append(entries, Entry{Path: path, Value: Datapoint{
			Timestamp: time.Now(),
			Value:     NotAvailable{},
		}})
	}
	return entries, nil
}

func (b *MemoryBroker) Set(_ context.Context, updates map[string]Datapoint) (map[string]FieldError, error) {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil, &ConnectionError{Message: "not connected"}
	}

	fieldErrors := make(map[string]FieldError)
	accepted := make(map[string]Datapoint)
	for path, dp := range updates {
		descriptor, ok := b.lookupLocked(path)
		switch {
		case !ok:
			fieldErrors[path] = FieldErrUnknownDatapoint
		case descriptor.Kind != KindActuator:
			fieldErrors[path] = FieldErrAccessDenied
		case !carrierMatches(descriptor.DataType, dp.Value):
			fieldErrors[path] = FieldErrInvalidType
		default:
			accepted[path] = dp
		}
	}
	b.mu.Unlock()

	for path, dp := range accepted {
		b.Publish(path, dp)
	}
	return fieldErrors, nil
}

func (b *MemoryBroker) Feed(_ context.Context, updates map[uint32]Datapoint) (map[uint32]FieldError, error) {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil, &ConnectionError{Message: "not connected"}
	}

	fieldErrors := make(map[uint32]FieldError)
	accepted := make(map[string]Datapoint)
	for id, dp := range updates {
		descriptor, ok := b.lookupByIDLocked(id)
		switch {
		case !ok:
			fieldErrors[id] = FieldErrUnknownDatapoint
		case !carrierMatches(descriptor.DataType, dp.Value):
			fieldErrors[id] = FieldErrInvalidType
		default:
			accepted[descriptor.Name] = dp
		}
	}
	b.mu.Unlock()

	for path, dp := range accepted {
		b.Publish(path, dp)
	}
	return fieldErrors, nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, query string) (*Subscription, error) {
	paths := parseQueryPaths(query)
	if len(paths) == 0 {
		return nil, &StatusError{Code: StatusInvalidArgument, Message: "empty query"}
	}

	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil, &ConnectionError{Message: "not connected"}
	}
	initial := make(Update)
	for _, path := range paths {
		if _, ok := b.lookupLocked(path); !ok {
			b.mu.Unlock()
			return nil, &StatusError{
				Code:    StatusNotFound,
				Message: fmt.Sprintf("unknown signal %q", path),
			}
		}
		if dp, ok := b.values[path]; ok {
			initial[path] = dp
		}
	}
	sub := NewSubscription(16)
	b.subs = append(b.subs, &memorySubscription{paths: paths, sub: sub})
	b.mu.Unlock()

	if len(initial) > 0 {
		sub.Send(initial)
	}
	return sub, nil
}

func (b *MemoryBroker) ConnectionStates() <-chan ConnState {
	return b.states
}

func (b *MemoryBroker) lookupLocked(path string) (Descriptor, bool) {
	for _, d := range b.signals {
		if d.Name == path {
			return d, true
		}
	}
	return Descriptor{}, false
}

func (b *MemoryBroker) lookupByIDLocked(id uint32) (Descriptor, bool) {
	for _, d := range b.signals {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// parseQueryPaths extracts signal paths from a subscribe query. The
// query language is a SELECT list: "SELECT Vehicle.Speed,
// Vehicle.Powertrain.Engine.RPM". A bare comma-separated path list is
// accepted too.
func parseQueryPaths(query string) []string {
	trimmed := strings.TrimSpace(query)
	if rest, ok := strings.CutPrefix(trimmed, "SELECT "); ok {
		trimmed = rest
	} else if rest, ok := strings.CutPrefix(trimmed, "select "); ok {
		trimmed = rest
	}
	var paths []string
	for _, part := range strings.Split(trimmed, ",") {
		if p := strings.TrimSpace(part); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// carrierMatches checks a value against the carrier variant for the
// declared type. NotAvailable is accepted for every type.
func carrierMatches(declared DataType, value Value) bool {
	if value == nil {
		return false
	}
	if _, ok := value.(NotAvailable); ok {
		return true
	}
	switch declared {
	case TypeString:
		_, ok := value.(String)
		return ok
	case TypeBool:
		_, ok := value.(Bool)
		return ok
	case TypeInt8, TypeInt16, TypeInt32:
		_, ok := value.(Int32)
		return ok
	case TypeInt64:
		_, ok := value.(Int64)
		return ok
	case TypeUint8, TypeUint16, TypeUint32:
		_, ok := value.(Uint32)
		return ok
	case TypeUint64:
		_, ok := value.(Uint64)
		return ok
	case TypeFloat:
		_, ok := value.(Float)
		return ok
	case TypeDouble:
		_, ok := value.(Double)
		return ok
	case TypeStringArray:
		_, ok := value.(StringArray)
		return ok
	case TypeBoolArray:
		_, ok := value.(BoolArray)
		return ok
	case TypeInt8Array, TypeInt16Array, TypeInt32Array:
		_, ok := value.(Int32Array)
		return ok
	case TypeInt64Array:
		_, ok := value.(Int64Array)
		return ok
	case TypeUint8Array, TypeUint16Array, TypeUint32Array:
		_, ok := value.(Uint32Array)
		return ok
	case TypeUint64Array:
		_, ok := value.(Uint64Array)
		return ok
	case TypeFloatArray:
		_, ok := value.(FloatArray)
		return ok
	case TypeDoubleArray:
		_, ok := value.(DoubleArray)
		return ok
	default:
		return false
	}
}
