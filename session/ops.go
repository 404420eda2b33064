package session

import (
	"time"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/command"
	"github.com/sceneforge/scene-bridge/errors"
)

// Selector picks an artboard from a file or a state machine from an
// artboard.
type Selector = command.Selector

// ByName selects a child object by name.
func ByName(name string) Selector {
	return Selector{Mode: command.SelectByName, Name: name}
}

// ByIndex selects a child object by position.
func ByIndex(index int) Selector {
	return Selector{Mode: command.SelectByIndex, Index: index}
}

// Default selects the default child object.
func Default() Selector {
	return Selector{Mode: command.SelectDefault}
}

// request enqueues a request/response command and wires its future into the
// correlator. Enqueue failures resolve the future immediately; nothing else
// does until a poll.
func request[T any](s *Session, p command.Payload, decode func(command.MsgPayload) (T, *errors.Error)) *Pending[T] {
	id := s.corr.allocate()
	pend := newPending(decode)
	pend.cancel = func() { s.corr.cancel(id) }
	s.corr.register(id, pend)
	if err := s.enqueue(command.New(id, p)); err != nil {
		s.corr.cancel(id)
		pend.fail(err)
	}
	return pend
}

func decodeCreated(p command.MsgPayload) (scenebridge.Handle, *errors.Error) {
	c, ok := p.(command.Created)
	if !ok {
		return scenebridge.Handle{}, errors.Protocol("expected created answer, got %T", p)
	}
	return c.Handle, nil
}

func decodeNames(p command.MsgPayload) ([]string, *errors.Error) {
	n, ok := p.(command.Names)
	if !ok {
		return nil, errors.Protocol("expected names answer, got %T", p)
	}
	return n.Names, nil
}

func decodeProperty(p command.MsgPayload) (scenebridge.PropertyValue, *errors.Error) {
	r, ok := p.(command.PropertyRead)
	if !ok {
		return scenebridge.PropertyValue{}, errors.Protocol("expected property answer, got %T", p)
	}
	return r.Value, nil
}

func decodeDrawDone(p command.MsgPayload) (int, *errors.Error) {
	d, ok := p.(command.DrawDone)
	if !ok {
		return 0, errors.Protocol("expected draw answer, got %T", p)
	}
	return d.Entries, nil
}

// ImportFile parses a scene file. The data is copied at the enqueue
// boundary, so the caller may reuse the slice. The returned handle is
// usable in follow-up calls immediately; the future carries the import
// outcome.
func (s *Session) ImportFile(data []byte) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindFile)
	buf := make([]byte, len(data))
	copy(buf, data)
	return h, request(s, command.ImportFile{Data: buf, File: h}, decodeCreated)
}

// ListArtboards enumerates artboard names of a file.
func (s *Session) ListArtboards(file scenebridge.Handle) *Pending[[]string] {
	return request(s, command.ListArtboards{File: file}, decodeNames)
}

// InstanceArtboard instantiates an artboard from a file.
func (s *Session) InstanceArtboard(file scenebridge.Handle, sel Selector) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindArtboard)
	return h, request(s, command.InstanceArtboard{File: file, Select: sel, Artboard: h}, decodeCreated)
}

// ListStateMachines enumerates state machine names of an artboard.
func (s *Session) ListStateMachines(artboard scenebridge.Handle) *Pending[[]string] {
	return request(s, command.ListStateMachines{Artboard: artboard}, decodeNames)
}

// InstanceStateMachine instantiates a state machine from an artboard.
func (s *Session) InstanceStateMachine(artboard scenebridge.Handle, sel Selector) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindStateMachine)
	return h, request(s, command.InstanceStateMachine{Artboard: artboard, Select: sel, StateMachine: h}, decodeCreated)
}

// AdvanceStateMachine advances a state machine. Fire-and-forget: settle
// transitions arrive on Settles, failures on Errors.
func (s *Session) AdvanceStateMachine(sm scenebridge.Handle, elapsed time.Duration) *errors.Error {
	return s.enqueue(command.Fire(command.AdvanceStateMachine{StateMachine: sm, Elapsed: elapsed}))
}

// SetBoolInput sets a boolean state machine input. Fire-and-forget.
func (s *Session) SetBoolInput(sm scenebridge.Handle, name string, value bool) *errors.Error {
	return s.enqueue(command.Fire(command.SetInput{StateMachine: sm, Name: name, Value: scenebridge.Bool(value)}))
}

// SetNumberInput sets a number state machine input. Fire-and-forget.
func (s *Session) SetNumberInput(sm scenebridge.Handle, name string, value float64) *errors.Error {
	return s.enqueue(command.Fire(command.SetInput{StateMachine: sm, Name: name, Value: scenebridge.Number(value)}))
}

// FireTrigger fires a trigger state machine input. Fire-and-forget.
func (s *Session) FireTrigger(sm scenebridge.Handle, name string) *errors.Error {
	return s.enqueue(command.Fire(command.SetInput{StateMachine: sm, Name: name, Value: scenebridge.Trigger()}))
}

// InstanceBindable instantiates a named view model from a file.
func (s *Session) InstanceBindable(file scenebridge.Handle, name string) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindBindableInstance)
	return h, request(s, command.InstanceBindable{File: file, Name: name, Bindable: h}, decodeCreated)
}

// BindInstance attaches a view model instance to an artboard. Fire-and-forget.
func (s *Session) BindInstance(artboard, bindable scenebridge.Handle) *errors.Error {
	return s.enqueue(command.Fire(command.BindInstance{Artboard: artboard, Bindable: bindable}))
}

// GetProperty reads a property by dotted path.
func (s *Session) GetProperty(bindable scenebridge.Handle, path string) *Pending[scenebridge.PropertyValue] {
	return request(s, command.GetProperty{Bindable: bindable, Path: path}, decodeProperty)
}

// SetProperty writes a property by dotted path. Fire-and-forget: matching
// subscriptions observe the new value, failures surface on Errors. Callers
// that must confirm a write should follow with GetProperty.
func (s *Session) SetProperty(bindable scenebridge.Handle, path string, value scenebridge.PropertyValue) *errors.Error {
	return s.enqueue(command.Fire(command.SetProperty{Bindable: bindable, Path: path, Value: value}))
}

// DecodeImage decodes an image asset from bytes.
func (s *Session) DecodeImage(data []byte) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindImage)
	buf := make([]byte, len(data))
	copy(buf, data)
	return h, request(s, command.DecodeImage{Data: buf, Image: h}, decodeCreated)
}

// DecodeAudio decodes an audio asset from bytes.
func (s *Session) DecodeAudio(data []byte) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindAudio)
	buf := make([]byte, len(data))
	copy(buf, data)
	return h, request(s, command.DecodeAudio{Data: buf, Audio: h}, decodeCreated)
}

// DecodeFont decodes a font asset from bytes.
func (s *Session) DecodeFont(data []byte) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindFont)
	buf := make([]byte, len(data))
	copy(buf, data)
	return h, request(s, command.DecodeFont{Data: buf, Font: h}, decodeCreated)
}

// RegisterAsset registers a decoded asset under a referenced name.
// Fire-and-forget.
func (s *Session) RegisterAsset(name string, asset scenebridge.Handle) *errors.Error {
	return s.enqueue(command.Fire(command.RegisterAsset{Name: name, Asset: asset}))
}

// UnregisterAsset removes a named asset registration. Fire-and-forget.
func (s *Session) UnregisterAsset(name string) *errors.Error {
	return s.enqueue(command.Fire(command.UnregisterAsset{Name: name}))
}

// CreateSurface allocates a render surface.
func (s *Session) CreateSurface(width, height uint32) (scenebridge.Handle, *Pending[scenebridge.Handle]) {
	h := s.alloc.handle(scenebridge.KindSurface)
	return h, request(s, command.CreateSurface{Width: width, Height: height, Surface: h}, decodeCreated)
}

// DrawBatch draws the entries into target as one worker dispatch and one
// answering message, however many entries there are.
func (s *Session) DrawBatch(target scenebridge.Handle, entries []scenebridge.DrawEntry, opts scenebridge.DrawOptions) *Pending[int] {
	buf := make([]scenebridge.DrawEntry, len(entries))
	copy(buf, entries)
	return request(s, command.DrawBatch{Target: target, Entries: buf, Options: opts}, decodeDrawDone)
}

// Free releases the engine object behind a handle. Fire-and-forget; freeing
// an unknown handle surfaces on Errors. Ordering with other commands against
// the same handle is the queue order.
func (s *Session) Free(h scenebridge.Handle) *errors.Error {
	return s.enqueue(command.Fire(command.FreeHandle{Handle: h}))
}
