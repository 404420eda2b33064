package server

import (
	"fmt"
	"testing"
	"time"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/command"
	"github.com/sceneforge/scene-bridge/engine"
	"github.com/sceneforge/scene-bridge/engine/sceneengine"
	"github.com/sceneforge/scene-bridge/errors"
)

const testScene = `{
	"artboards": [
		{
			"name": "Main",
			"width": 400,
			"height": 300,
			"stateMachines": [
				{
					"name": "Toggle",
					"settleAfter": "100ms",
					"inputs": [{"name": "on", "type": "bool"}]
				}
			]
		}
	],
	"viewModels": [
		{
			"name": "Player",
			"properties": [{"name": "health", "type": "number", "value": 100}]
		}
	]
}`

func startTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.NewEngine == nil {
		opts.NewEngine = func() (engine.Engine, error) { return sceneengine.New(), nil }
	}
	s := New(opts)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		s.Shutdown()
		s.Join()
	})
	waitState(t, s, StateRunning)
	return s
}

func waitState(t *testing.T, s *Server, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Server never reached %v, still %v", want, s.State())
}

// awaitMessages drains the outbox until at least want messages arrived.
func awaitMessages(t *testing.T, s *Server, want int) []command.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var got []command.Message
	for time.Now().Before(deadline) {
		got = append(got, s.Outbox().Drain()...)
		if len(got) >= want {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Expected %d messages, got %d: %v", want, len(got), got)
	return nil
}

func mustEnqueue(t *testing.T, s *Server, cmd command.Command) {
	t.Helper()
	if err := s.Enqueue(cmd); err != nil {
		t.Fatalf("Enqueue %v failed: %v", cmd.Tag, err)
	}
}

func TestServer_ImportThenUse(t *testing.T) {
	s := startTestServer(t, Options{})

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}

	// The queue is FIFO, so commands may reference a handle whose creating
	// command is still in flight.
	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	mustEnqueue(t, s, command.New(2, command.ListArtboards{File: file}))

	msgs := awaitMessages(t, s, 2)
	if msgs[0].RequestID != 1 || msgs[0].Tag != command.MsgCreated {
		t.Fatalf("Unexpected first message: %+v", msgs[0])
	}
	if msgs[1].RequestID != 2 || msgs[1].Tag != command.MsgNames {
		t.Fatalf("Unexpected second message: %+v", msgs[1])
	}
	names := msgs[1].Payload.(command.Names)
	if len(names.Names) != 1 || names.Names[0] != "Main" {
		t.Fatalf("Unexpected artboard names: %v", names.Names)
	}
}

func TestServer_UnknownHandleFailsRequest(t *testing.T) {
	s := startTestServer(t, Options{})

	ghost := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 99}
	mustEnqueue(t, s, command.New(7, command.ListArtboards{File: ghost}))

	msgs := awaitMessages(t, s, 1)
	if msgs[0].Tag != command.MsgError {
		t.Fatalf("Expected failure, got %v", msgs[0].Tag)
	}
	failure := msgs[0].Payload.(command.Failure)
	if failure.Err.Code != errors.CodeInvalidHandle {
		t.Fatalf("Expected CodeInvalidHandle, got %v", failure.Err.Code)
	}
	if failure.Err.RequestID != 7 {
		t.Fatalf("Expected request id 7 on error, got %d", failure.Err.RequestID)
	}

	// The session survives an invalid handle.
	if s.State() != StateRunning {
		t.Fatalf("Expected server still running, got %v", s.State())
	}
}

func TestServer_FireAndForgetFailureBroadcast(t *testing.T) {
	s := startTestServer(t, Options{})

	ghost := scenebridge.Handle{Kind: scenebridge.KindSurface, ID: 5}
	mustEnqueue(t, s, command.Fire(command.FreeHandle{Handle: ghost}))

	msgs := awaitMessages(t, s, 1)
	if msgs[0].RequestID != 0 {
		t.Fatalf("Expected unsolicited failure, got request id %d", msgs[0].RequestID)
	}
	if msgs[0].Tag != command.MsgError {
		t.Fatalf("Expected error message, got %v", msgs[0].Tag)
	}
}

func TestServer_ProtocolViolationDrains(t *testing.T) {
	s := startTestServer(t, Options{})

	// Forged tag: payload and tag disagree.
	mustEnqueue(t, s, command.Command{Tag: command.TagImportFile, RequestID: 3, Payload: command.ListArtboards{}})

	waitState(t, s, StateStopped)

	msgs := s.Outbox().Drain()
	var sawProtocol bool
	for _, m := range msgs {
		if f, ok := m.Payload.(command.Failure); ok && f.Err.Code == errors.CodeProtocolViolation {
			sawProtocol = true
		}
	}
	if !sawProtocol {
		t.Fatalf("Expected protocol violation failure, got %v", msgs)
	}

	if err := s.Enqueue(command.New(4, command.ListArtboards{})); err == nil {
		t.Fatal("Expected enqueue to fail after drain")
	}
}

func TestServer_EngineConstructionFailure(t *testing.T) {
	s := New(Options{
		NewEngine: func() (engine.Engine, error) { return nil, fmt.Errorf("no device") },
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitState(t, s, StateStopped)

	msgs := s.Outbox().Drain()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 lifecycle failure, got %d", len(msgs))
	}
	failure := msgs[0].Payload.(command.Failure)
	if failure.Err.Code != errors.CodeLifecycle {
		t.Fatalf("Expected CodeLifecycle, got %v", failure.Err.Code)
	}
}

// gateEngine blocks its first ImportFile until released, so tests can pile
// commands up behind a busy worker.
type gateEngine struct {
	*sceneengine.SceneEngine
	gate chan struct{}
}

func (g *gateEngine) ImportFile(data []byte) (engine.File, error) {
	<-g.gate
	return g.SceneEngine.ImportFile(data)
}

func TestServer_ShutdownAbortsQueued(t *testing.T) {
	gate := make(chan struct{})
	s := New(Options{
		NewEngine: func() (engine.Engine, error) {
			return &gateEngine{SceneEngine: sceneengine.New(), gate: gate}, nil
		},
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitState(t, s, StateRunning)

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}
	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	// These sit in the queue while the worker is blocked on the gate.
	mustEnqueue(t, s, command.New(2, command.ListArtboards{File: file}))
	mustEnqueue(t, s, command.New(3, command.ListArtboards{File: file}))

	s.Shutdown()
	close(gate)
	s.Join()

	msgs := s.Outbox().Drain()
	aborted := 0
	for _, m := range msgs {
		if f, ok := m.Payload.(command.Failure); ok && f.Err.Code == errors.CodeLifecycle {
			aborted++
		}
	}
	if aborted != 2 {
		t.Fatalf("Expected 2 aborted commands, got %d in %v", aborted, msgs)
	}
}

func TestServer_SettleTransitionReportedOnce(t *testing.T) {
	s := startTestServer(t, Options{})

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}
	ab := scenebridge.Handle{Kind: scenebridge.KindArtboard, ID: 1}
	sm := scenebridge.Handle{Kind: scenebridge.KindStateMachine, ID: 1}

	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	mustEnqueue(t, s, command.New(2, command.InstanceArtboard{File: file, Artboard: ab}))
	mustEnqueue(t, s, command.New(3, command.InstanceStateMachine{Artboard: ab, StateMachine: sm}))
	awaitMessages(t, s, 3)

	// Crossing the settle window emits exactly one event, further advances
	// while settled emit nothing.
	mustEnqueue(t, s, command.Fire(command.AdvanceStateMachine{StateMachine: sm, Elapsed: 200 * time.Millisecond}))
	mustEnqueue(t, s, command.Fire(command.AdvanceStateMachine{StateMachine: sm, Elapsed: 200 * time.Millisecond}))
	mustEnqueue(t, s, command.Fire(command.AdvanceStateMachine{StateMachine: sm, Elapsed: 200 * time.Millisecond}))

	msgs := awaitMessages(t, s, 1)
	settles := 0
	for _, m := range msgs {
		if m.Tag == command.MsgSettled {
			settles++
		}
	}
	if settles != 1 {
		t.Fatalf("Expected 1 settle event, got %d", settles)
	}

	// An input change wakes the machine: settled=false transition.
	mustEnqueue(t, s, command.Fire(command.SetInput{
		StateMachine: sm, Name: "on", Value: scenebridge.Bool(true),
	}))
	msgs = awaitMessages(t, s, 1)
	wake, ok := msgs[len(msgs)-1].Payload.(command.Settled)
	if !ok || wake.Settled {
		t.Fatalf("Expected wake event, got %v", msgs)
	}
}

type matchAll struct{}

func (matchAll) Match(scenebridge.Handle, string) bool { return true }

type matchNone struct{}

func (matchNone) Match(scenebridge.Handle, string) bool { return false }

func TestServer_PropertyChangeBroadcast(t *testing.T) {
	s := startTestServer(t, Options{Watch: matchAll{}})

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}
	vm := scenebridge.Handle{Kind: scenebridge.KindBindableInstance, ID: 1}

	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	mustEnqueue(t, s, command.New(2, command.InstanceBindable{File: file, Name: "Player", Bindable: vm}))
	awaitMessages(t, s, 2)

	mustEnqueue(t, s, command.Fire(command.SetProperty{
		Bindable: vm, Path: "health", Value: scenebridge.Number(50),
	}))
	msgs := awaitMessages(t, s, 1)
	changed, ok := msgs[0].Payload.(command.PropertyChanged)
	if !ok {
		t.Fatalf("Expected PropertyChanged, got %+v", msgs[0])
	}
	if changed.Path != "health" || changed.Value.Num != 50 {
		t.Fatalf("Unexpected broadcast: %+v", changed)
	}

	// Reads go through the same queue and observe the write.
	mustEnqueue(t, s, command.New(3, command.GetProperty{Bindable: vm, Path: "health"}))
	msgs = awaitMessages(t, s, 1)
	read := msgs[0].Payload.(command.PropertyRead)
	if read.Value.Num != 50 {
		t.Fatalf("Expected 50, got %g", read.Value.Num)
	}
}

func TestServer_UnwatchedPropertySilent(t *testing.T) {
	s := startTestServer(t, Options{Watch: matchNone{}})

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}
	vm := scenebridge.Handle{Kind: scenebridge.KindBindableInstance, ID: 1}

	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	mustEnqueue(t, s, command.New(2, command.InstanceBindable{File: file, Name: "Player", Bindable: vm}))
	awaitMessages(t, s, 2)

	mustEnqueue(t, s, command.Fire(command.SetProperty{
		Bindable: vm, Path: "health", Value: scenebridge.Number(1),
	}))
	// The follow-up read is the only expected message.
	mustEnqueue(t, s, command.New(3, command.GetProperty{Bindable: vm, Path: "health"}))
	msgs := awaitMessages(t, s, 1)
	if len(msgs) != 1 || msgs[0].Tag != command.MsgPropertyRead {
		t.Fatalf("Expected only the read reply, got %v", msgs)
	}
}

func TestServer_DrawBatchSingleMessage(t *testing.T) {
	s := startTestServer(t, Options{})

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}
	ab := scenebridge.Handle{Kind: scenebridge.KindArtboard, ID: 1}
	target := scenebridge.Handle{Kind: scenebridge.KindSurface, ID: 1}

	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	mustEnqueue(t, s, command.New(2, command.InstanceArtboard{File: file, Artboard: ab}))
	mustEnqueue(t, s, command.New(3, command.CreateSurface{Width: 64, Height: 64, Surface: target}))
	awaitMessages(t, s, 3)

	entries := make([]scenebridge.DrawEntry, 100)
	for i := range entries {
		entries[i] = scenebridge.DrawEntry{Artboard: ab, Transform: scenebridge.Identity()}
	}
	mustEnqueue(t, s, command.New(4, command.DrawBatch{Target: target, Entries: entries}))

	msgs := awaitMessages(t, s, 1)
	if len(msgs) != 1 {
		t.Fatalf("Expected exactly 1 message for the batch, got %d", len(msgs))
	}
	done, ok := msgs[0].Payload.(command.DrawDone)
	if !ok {
		t.Fatalf("Expected DrawDone, got %+v", msgs[0])
	}
	if done.Entries != 100 {
		t.Fatalf("Expected 100 entries drawn, got %d", done.Entries)
	}
}

func TestServer_FreeThenUse(t *testing.T) {
	s := startTestServer(t, Options{})

	file := scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}
	mustEnqueue(t, s, command.New(1, command.ImportFile{Data: []byte(testScene), File: file}))
	awaitMessages(t, s, 1)

	mustEnqueue(t, s, command.Fire(command.FreeHandle{Handle: file}))
	mustEnqueue(t, s, command.New(2, command.ListArtboards{File: file}))

	msgs := awaitMessages(t, s, 1)
	failure, ok := msgs[len(msgs)-1].Payload.(command.Failure)
	if !ok {
		t.Fatalf("Expected failure after free, got %v", msgs)
	}
	if failure.Err.Code != errors.CodeInvalidHandle {
		t.Fatalf("Expected CodeInvalidHandle, got %v", failure.Err.Code)
	}
}

func TestServer_DoubleStart(t *testing.T) {
	s := startTestServer(t, Options{})
	if err := s.Start(); err == nil {
		t.Fatal("Expected second Start to fail")
	}
}

func TestOutbox(t *testing.T) {
	o := NewOutbox()
	if o.Len() != 0 {
		t.Fatal("Expected empty outbox")
	}
	o.Push(command.Event(command.Settled{}))
	o.Push(command.Event(command.Settled{}))
	if o.Len() != 2 {
		t.Fatalf("Expected 2 queued, got %d", o.Len())
	}

	msgs := o.Drain()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 drained, got %d", len(msgs))
	}
	if o.Len() != 0 {
		t.Fatal("Expected empty outbox after drain")
	}
	if len(o.Drain()) != 0 {
		t.Fatal("Expected nothing to drain from empty outbox")
	}
}
