package command

import (
	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/errors"
)

// MsgTag discriminates Message payload variants.
type MsgTag uint8

const (
	MsgInvalid MsgTag = iota
	MsgCreated
	MsgNames
	MsgPropertyRead
	MsgPropertyChanged
	MsgSettled
	MsgDrawDone
	MsgError
)

var msgTagNames = [...]string{
	MsgInvalid:         "invalid",
	MsgCreated:         "created",
	MsgNames:           "names",
	MsgPropertyRead:    "property-read",
	MsgPropertyChanged: "property-changed",
	MsgSettled:         "settled",
	MsgDrawDone:        "draw-done",
	MsgError:           "error",
}

func (t MsgTag) String() string {
	if int(t) < len(msgTagNames) {
		return msgTagNames[t]
	}
	return "msg-tag(unknown)"
}

// Message is one result or unsolicited event produced by the worker.
// Messages answering a request carry that request's id; unsolicited messages
// (property broadcasts, settle notifications, fire-and-forget failures) carry
// RequestID zero and identify their origin by handle instead.
type Message struct {
	Payload   MsgPayload
	RequestID uint64
	Tag       MsgTag
}

// MsgPayload is implemented by every message payload variant.
type MsgPayload interface {
	msgTag() MsgTag
}

// Created is the terminal success answer to a resource-allocating command.
type Created struct {
	Handle scenebridge.Handle
}

// Names answers an enumeration command.
type Names struct {
	Names []string
	Of    scenebridge.Handle
}

// PropertyRead answers a GetProperty command.
type PropertyRead struct {
	Path     string
	Value    scenebridge.PropertyValue
	Bindable scenebridge.Handle
}

// PropertyChanged is the unsolicited broadcast for a subscribed property
// mutation.
type PropertyChanged struct {
	Path     string
	Value    scenebridge.PropertyValue
	Bindable scenebridge.Handle
}

// Settled is the unsolicited notification that a state machine advance
// crossed the settled/unsettled boundary.
type Settled struct {
	StateMachine scenebridge.Handle
	Settled      bool
}

// DrawDone is the single answer to a batched draw dispatch.
type DrawDone struct {
	Target  scenebridge.Handle
	Entries int
}

// Failure carries a typed error, either answering a request or, with
// RequestID zero, reporting a fire-and-forget failure on the broadcast
// error stream.
type Failure struct {
	Err *errors.Error
}

func (Created) msgTag() MsgTag         { return MsgCreated }
func (Names) msgTag() MsgTag           { return MsgNames }
func (PropertyRead) msgTag() MsgTag    { return MsgPropertyRead }
func (PropertyChanged) msgTag() MsgTag { return MsgPropertyChanged }
func (Settled) msgTag() MsgTag         { return MsgSettled }
func (DrawDone) msgTag() MsgTag        { return MsgDrawDone }
func (Failure) msgTag() MsgTag         { return MsgError }

// Reply builds a message answering a request.
func Reply(requestID uint64, p MsgPayload) Message {
	return Message{Tag: p.msgTag(), RequestID: requestID, Payload: p}
}

// Event builds an unsolicited message.
func Event(p MsgPayload) Message {
	return Message{Tag: p.msgTag(), Payload: p}
}
