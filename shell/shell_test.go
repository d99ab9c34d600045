// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/signalgrid/sigctl/broker"
)

// fakeClient scripts broker behavior per test. Unset functions fall
// back to benign defaults; call counters expose what the dispatcher
// actually invoked.
type fakeClient struct {
	metadata  func(patterns []string) ([]broker.Descriptor, error)
	get       func(paths []string) ([]broker.Entry, error)
	set       func(updates map[string]broker.Datapoint) (map[string]broker.FieldError, error)
	feed      func(updates map[uint32]broker.Datapoint) (map[uint32]broker.FieldError, error)
	subscribe func(query string) (*broker.Subscription, error)

	setCalls  int
	feedCalls int
	states    chan broker.ConnState
}

var _ broker.Client = (*fakeClient)(nil)

func (f *fakeClient) Connect(context.Context) error                { return nil }
func (f *fakeClient) ConnectTo(_ context.Context, _ string) error  { return nil }
func (f *fakeClient) Connected() bool                              { return true }
func (f *fakeClient) URI() string                                  { return "fake://broker" }
func (f *fakeClient) SetAccessToken(string) error                  { return nil }

func (f *fakeClient) Metadata(_ context.Context, patterns []string) ([]broker.Descriptor, error) {
	if f.metadata == nil {
		return nil, nil
	}
	return f.metadata(patterns)
}

func (f *fakeClient) Get(_ context.Context, paths []string) ([]broker.Entry, error) {
	if f.get == nil {
		return nil, nil
	}
	return f.get(paths)
}

func (f *fakeClient) Set(_ context.Context, updates map[string]broker.Datapoint) (map[string]broker.FieldError, error) {
	f.setCalls++
	if f.set == nil {
		return nil, nil
	}
	return f.set(updates)
}

func (f *fakeClient) Feed(_ context.Context, updates map[uint32]broker.Datapoint) (map[uint32]broker.FieldError, error) {
	f.feedCalls++
	if f.feed == nil {
		return nil, nil
	}
	return f.feed(updates)
}

func (f *fakeClient) Subscribe(_ context.Context, query string) (*broker.Subscription, error) {
	if f.subscribe == nil {
		return nil, &broker.FunctionError{Message: "no subscribe scripted"}
	}
	return f.subscribe(query)
}

func (f *fakeClient) ConnectionStates() <-chan broker.ConnState {
	if f.states == nil {
		f.states = make(chan broker.ConnState)
	}
	return f.states
}

func vehicleDescriptors() []broker.Descriptor {
	return []broker.Descriptor{
		{ID: 1, Name: "Vehicle.Speed", DataType: broker.TypeFloat, Kind: broker.KindSensor},
		{ID: 2, Name: "Vehicle.Cabin.Seat.Position", DataType: broker.TypeUint32, Kind: broker.KindActuator},
		{ID: 3, Name: "Vehicle.IsMoving", DataType: broker.TypeBool, Kind: broker.KindSensor},
	}
}

// newTestShell wires a shell to the fake with buffered output and a
// pre-loaded namespace.
func newTestShell(t *testing.T, client *fakeClient) (*Shell, *bytes.Buffer) {
	t.Helper()
	if client.metadata == nil {
		client.metadata = func([]string) ([]broker.Descriptor, error) {
			return vehicleDescriptors(), nil
		}
	}
	s := New(client, plainStyles(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	var buf bytes.Buffer
	s.SetOutput(&buf)
	if err := s.ns.Refresh(context.Background(), client, nil); err != nil {
		t.Fatalf("priming namespace failed: %v", err)
	}
	return s, &buf
}

// output flushes the sink and returns everything printed so far.
func output(s *Shell, buf *bytes.Buffer) string {
	s.sink.Close()
	return buf.String()
}

func dispatch(t *testing.T, s *Shell, line string) {
	t.Helper()
	if err := s.dispatch(context.Background(), line); err != nil {
		t.Fatalf("dispatch(%q) failed: %v", line, err)
	}
}

func TestSetUnknownPathNeverCallsBroker(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "set Vehicle.DoesNotExist 42")

	if client.setCalls != 0 {
		t.Errorf("Set was called %d times, want 0", client.setCalls)
	}
	got := output(s, buf)
	if !strings.Contains(got, "No metadata available for Vehicle.DoesNotExist") {
		t.Errorf("output = %q, want the informational miss message", got)
	}
	if strings.Contains(got, "Error") {
		t.Errorf("unknown path must be informational, not an error: %q", got)
	}
}

func TestSetOnSensorDirectsToFeed(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "set Vehicle.Speed 50")

	if client.setCalls != 0 {
		t.Error("kind mismatch must not reach the broker")
	}
	got := output(s, buf)
	if !strings.Contains(got, "Vehicle.Speed is not an actuator.") {
		t.Errorf("output = %q, want the actuator error", got)
	}
	if !strings.Contains(got, "use `feed`") {
		t.Errorf("output = %q, want the hint toward feed", got)
	}
}

func TestSetCoercionFailure(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "set Vehicle.Cabin.Seat.Position up")

	if client.setCalls != 0 {
		t.Error("coercion failure must not reach the broker")
	}
	got := output(s, buf)
	if !strings.Contains(got, `Could not parse "up" as Uint32`) {
		t.Errorf("output = %q", got)
	}
}

func TestSetSuccessAndFieldErrors(t *testing.T) {
	t.Run("clean accept", func(t *testing.T) {
		client := &fakeClient{}
		s, buf := newTestShell(t, client)
		dispatch(t, s, "set Vehicle.Cabin.Seat.Position 7")
		if client.setCalls != 1 {
			t.Errorf("Set called %d times, want 1", client.setCalls)
		}
		if got := output(s, buf); !strings.Contains(got, "[set] OK") {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("field rejection still prints OK first", func(t *testing.T) {
		client := &fakeClient{
			set: func(map[string]broker.Datapoint) (map[string]broker.FieldError, error) {
				return map[string]broker.FieldError{
					"Vehicle.Cabin.Seat.Position": broker.FieldErrOutOfBounds,
				}, nil
			},
		}
		s, buf := newTestShell(t, client)
		dispatch(t, s, "set Vehicle.Cabin.Seat.Position 900")
		got := output(s, buf)
		okIndex := strings.Index(got, "[set] OK")
		errIndex := strings.Index(got, "Error setting Vehicle.Cabin.Seat.Position: OutOfBounds")
		if okIndex < 0 || errIndex < 0 || errIndex < okIndex {
			t.Errorf("want OK line before the field error, got %q", got)
		}
	})
}

func TestFeedResolvesID(t *testing.T) {
	var gotUpdates map[uint32]broker.Datapoint
	client := &fakeClient{
		feed: func(updates map[uint32]broker.Datapoint) (map[uint32]broker.FieldError, error) {
			gotUpdates = updates
			return nil, nil
		},
	}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "feed Vehicle.Speed 88.5")

	if len(gotUpdates) != 1 {
		t.Fatalf("got %d updates, want 1", len(gotUpdates))
	}
	dp, ok := gotUpdates[1]
	if !ok {
		t.Fatalf("update keyed %v, want descriptor ID 1", gotUpdates)
	}
	if dp.Value.String() != "88.50" {
		t.Errorf("value = %s", dp.Value)
	}
	if dp.Timestamp != time.Unix(1700000000, 0) {
		t.Errorf("timestamp = %v, want the shell clock's time", dp.Timestamp)
	}
	if got := output(s, buf); !strings.Contains(got, "[feed] OK") {
		t.Errorf("output = %q", got)
	}
}

func TestFeedFieldErrorKeepsOKSeverity(t *testing.T) {
	client := &fakeClient{
		feed: func(map[uint32]broker.Datapoint) (map[uint32]broker.FieldError, error) {
			return map[uint32]broker.FieldError{1: broker.FieldErrInternalError}, nil
		},
	}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "feed Vehicle.Speed 10")

	got := output(s, buf)
	// The batch call succeeded; field-level rejections report at OK
	// severity with the path resolved from the ID.
	if !strings.Contains(got, "[feed] Error providing Vehicle.Speed: InternalError") {
		t.Errorf("output = %q", got)
	}
}

func TestGetPrintsEntries(t *testing.T) {
	client := &fakeClient{
		get: func(paths []string) ([]broker.Entry, error) {
			return []broker.Entry{
				{Path: "Vehicle.Speed", Value: broker.Datapoint{Value: broker.Float(42)}},
				{Path: "Vehicle.IsMoving", Value: broker.Datapoint{Value: broker.Bool(true)}},
			}, nil
		},
	}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "get Vehicle.Speed Vehicle.IsMoving")

	got := output(s, buf)
	if !strings.Contains(got, "[get] OK") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "Vehicle.Speed: 42.00") || !strings.Contains(got, "Vehicle.IsMoving: true") {
		t.Errorf("output = %q", got)
	}
}

func TestGetStatusErrorRendering(t *testing.T) {
	client := &fakeClient{
		get: func([]string) ([]broker.Entry, error) {
			return nil, &broker.StatusError{Code: broker.StatusUnauthenticated, Message: "token expired"}
		},
	}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "get Vehicle.Speed")

	if got := output(s, buf); !strings.Contains(got, "[get] Status 16: token expired") {
		t.Errorf("output = %q", got)
	}
}

func TestSubscribeSpawnsNumberedSessions(t *testing.T) {
	client := &fakeClient{
		subscribe: func(string) (*broker.Subscription, error) {
			sub := broker.NewSubscription(1)
			sub.Close(nil)
			return sub, nil
		},
	}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "subscribe SELECT Vehicle.Speed")
	dispatch(t, s, "subscribe SELECT Vehicle.IsMoving")

	if len(s.sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(s.sessions))
	}
	for _, session := range s.sessions {
		select {
		case <-session.Done():
		case <-time.After(time.Second):
			t.Fatal("session did not stop")
		}
	}
	got := output(s, buf)
	if !strings.Contains(got, "identified by [1]") || !strings.Contains(got, "identified by [2]") {
		t.Errorf("output = %q, want sequential session numbers", got)
	}
}

func TestSubscribeFailureIsSynchronous(t *testing.T) {
	client := &fakeClient{
		subscribe: func(string) (*broker.Subscription, error) {
			return nil, &broker.StatusError{Code: broker.StatusInvalidArgument, Message: "bad query"}
		},
	}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "subscribe SELECT nope")

	if len(s.sessions) != 0 {
		t.Error("a failed subscribe must not create a session")
	}
	if got := output(s, buf); !strings.Contains(got, "[subscribe] Status 3: bad query") {
		t.Errorf("output = %q", got)
	}
}

func TestConcurrentSessionsDoNotSpliceBlocks(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	subA := broker.NewSubscription(64)
	subB := broker.NewSubscription(64)
	s.sessions = append(s.sessions,
		startSession(1, subA, s.printer, s.styles),
		startSession(2, subB, s.printer, s.styles),
	)

	send := func(sub *broker.Subscription, field string) {
		for i := 0; i < 100; i++ {
			sub.Send(broker.Update{
				field + ".A": {Value: broker.Int32(int32(i))},
				field + ".B": {Value: broker.Int32(int32(i))},
			})
		}
		sub.Close(nil)
	}
	go send(subA, "First")
	go send(subB, "Second")

	for _, session := range s.sessions {
		select {
		case <-session.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("session did not finish")
		}
	}

	lines := strings.Split(strings.TrimRight(output(s, buf), "\n"), "\n")
	// Every update block is two lines: a tagged first line and a
	// padded continuation. A tag line must always be followed by its
	// own continuation, never by another session's output.
	for i := 0; i < len(lines); i++ {
		switch {
		case strings.HasPrefix(lines[i], "[1] First.A:"):
			if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "    First.B:") {
				t.Fatalf("block for [1] spliced at line %d: %q", i, lines[i:min(i+2, len(lines))])
			}
			i++
		case strings.HasPrefix(lines[i], "[2] Second.A:"):
			if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "    Second.B:") {
				t.Fatalf("block for [2] spliced at line %d: %q", i, lines[i:min(i+2, len(lines))])
			}
			i++
		}
	}
}

func TestMetadataPatternFiltering(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "metadata Vehicle.Cabin.* Vehicle.[ Vehicle.Speed")

	got := output(s, buf)
	if !strings.Contains(got, "[metadata] OK") {
		t.Errorf("output = %q", got)
	}
	// The invalid pattern is reported; the valid ones still apply.
	if !strings.Contains(got, "Invalid pattern:") {
		t.Errorf("output = %q, want the invalid pattern report", got)
	}
	if !strings.Contains(got, "Vehicle.Cabin.Seat.Position") || !strings.Contains(got, "Actuator") {
		t.Errorf("output = %q, want the cabin actuator row", got)
	}
	if !strings.Contains(got, "Vehicle.Speed") {
		t.Errorf("output = %q, want the speed row", got)
	}
	if strings.Contains(got, "Vehicle.IsMoving") {
		t.Errorf("output = %q, IsMoving matches no pattern", got)
	}
}

func TestMetadataWithoutPatternHints(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "metadata")

	if got := output(s, buf); !strings.Contains(got, "use `metadata PATTERN`") {
		t.Errorf("output = %q", got)
	}
}

func TestMetadataRefreshUpdatesCompletion(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	client.metadata = func([]string) ([]broker.Descriptor, error) {
		return []broker.Descriptor{
			{ID: 9, Name: "Plant.Line1.Speed", DataType: broker.TypeFloat, Kind: broker.KindSensor},
		}, nil
	}
	dispatch(t, s, "metadata")
	output(s, buf)

	candidates := s.ns.Trie().Complete("")
	if len(candidates) != 1 || candidates[0].Display != "Plant." {
		t.Errorf("completion after refresh = %v, want [Plant.]", candidates)
	}
	if _, ok := s.ns.Lookup("Vehicle.Speed"); ok {
		t.Error("old snapshot must be replaced wholesale, not merged")
	}
}

func TestUnknownCommandAndUsage(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "frobnicate now")
	dispatch(t, s, "set")
	dispatch(t, s, "get")

	got := output(s, buf)
	if !strings.Contains(got, "Unknown command. See `help`") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "Usage: set <PATH> <VALUE>") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "Usage: get <PATH> [[PATH] ...]") {
		t.Errorf("output = %q", got)
	}
}

func TestQuitUnwindsLoop(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	if err := s.dispatch(context.Background(), "quit"); !errors.Is(err, errQuit) {
		t.Errorf("quit returned %v, want errQuit", err)
	}
	if err := s.dispatch(context.Background(), "exit"); !errors.Is(err, errQuit) {
		t.Errorf("exit returned %v, want errQuit", err)
	}
	if got := output(s, buf); !strings.Contains(got, "Bye bye!") {
		t.Errorf("output = %q", got)
	}
}

func TestHelpListsEveryCommand(t *testing.T) {
	client := &fakeClient{}
	s, buf := newTestShell(t, client)

	dispatch(t, s, "help")

	got := output(s, buf)
	for _, cmd := range commandTable {
		if !strings.Contains(got, cmd.name) {
			t.Errorf("help output missing %q", cmd.name)
		}
	}
}
