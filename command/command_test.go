package command

import (
	"testing"

	scenebridge "github.com/sceneforge/scene-bridge"
)

func TestCommand_TagMatchesPayload(t *testing.T) {
	payloads := []Payload{
		ImportFile{},
		ListArtboards{},
		InstanceArtboard{},
		ListStateMachines{},
		InstanceStateMachine{},
		AdvanceStateMachine{},
		SetInput{},
		InstanceBindable{},
		BindInstance{},
		GetProperty{},
		SetProperty{},
		DecodeImage{},
		DecodeAudio{},
		DecodeFont{},
		RegisterAsset{},
		UnregisterAsset{},
		CreateSurface{},
		DrawBatch{},
		FreeHandle{},
	}
	seen := make(map[Tag]bool)
	for _, p := range payloads {
		cmd := New(1, p)
		if !cmd.Coherent() {
			t.Fatalf("New produced incoherent command for %T", p)
		}
		if cmd.Tag == TagInvalid {
			t.Fatalf("Payload %T maps to TagInvalid", p)
		}
		if seen[cmd.Tag] {
			t.Fatalf("Tag %v assigned to more than one payload", cmd.Tag)
		}
		seen[cmd.Tag] = true
	}
}

func TestCommand_Coherent(t *testing.T) {
	cmd := New(1, ListArtboards{})
	if !cmd.Coherent() {
		t.Fatal("Expected coherent command")
	}

	// A forged tag must be detectable.
	cmd.Tag = TagImportFile
	if cmd.Coherent() {
		t.Fatal("Expected tag/payload mismatch to be incoherent")
	}

	// A nil payload too.
	if (Command{Tag: TagImportFile}).Coherent() {
		t.Fatal("Expected nil payload to be incoherent")
	}
}

func TestCommand_FireHasNoRequestID(t *testing.T) {
	cmd := Fire(FreeHandle{Handle: scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}})
	if cmd.RequestID != 0 {
		t.Fatalf("Expected zero request id, got %d", cmd.RequestID)
	}
	if !cmd.Coherent() {
		t.Fatal("Expected coherent command")
	}
}

func TestTag_String(t *testing.T) {
	if TagDrawBatch.String() != "draw-batch" {
		t.Fatalf("Unexpected name: %s", TagDrawBatch.String())
	}
	if Tag(200).String() != "tag(unknown)" {
		t.Fatalf("Unexpected name for out-of-range tag: %s", Tag(200).String())
	}
}

func TestMessage_ReplyAndEvent(t *testing.T) {
	reply := Reply(42, Created{Handle: scenebridge.Handle{Kind: scenebridge.KindFile, ID: 1}})
	if reply.RequestID != 42 {
		t.Fatalf("Expected request id 42, got %d", reply.RequestID)
	}
	if reply.Tag != MsgCreated {
		t.Fatalf("Expected MsgCreated, got %v", reply.Tag)
	}

	event := Event(Settled{StateMachine: scenebridge.Handle{Kind: scenebridge.KindStateMachine, ID: 3}, Settled: true})
	if event.RequestID != 0 {
		t.Fatalf("Expected unsolicited message, got request id %d", event.RequestID)
	}
	if event.Tag != MsgSettled {
		t.Fatalf("Expected MsgSettled, got %v", event.Tag)
	}
}
