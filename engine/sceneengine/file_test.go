package sceneengine

import (
	"testing"
	"time"
)

func importTestFile(t *testing.T, json string) *file {
	t.Helper()
	eng := New()
	f, err := eng.ImportFile([]byte(json))
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	return f.(*file)
}

func TestFile_Artboards(t *testing.T) {
	f := importTestFile(t, fullScene)

	names := f.ArtboardNames()
	if len(names) != 2 || names[0] != "Main" || names[1] != "Secondary" {
		t.Fatalf("Unexpected artboard names: %v", names)
	}

	if _, err := f.DefaultArtboard(); err != nil {
		t.Fatalf("DefaultArtboard failed: %v", err)
	}
	if _, err := f.ArtboardByName("Secondary"); err != nil {
		t.Fatalf("ArtboardByName failed: %v", err)
	}
	if _, err := f.ArtboardAt(1); err != nil {
		t.Fatalf("ArtboardAt failed: %v", err)
	}

	if _, err := f.ArtboardByName("Missing"); err == nil {
		t.Fatal("Expected error for unknown artboard")
	}
	if _, err := f.ArtboardAt(5); err == nil {
		t.Fatal("Expected error for out-of-range index")
	}
}

func TestFile_DestroyedUnusable(t *testing.T) {
	f := importTestFile(t, minimalScene)
	f.Destroy()
	if _, err := f.DefaultArtboard(); err == nil {
		t.Fatal("Expected error after Destroy")
	}
}

func TestArtboard_StateMachines(t *testing.T) {
	f := importTestFile(t, fullScene)
	ab, err := f.ArtboardByName("Main")
	if err != nil {
		t.Fatalf("ArtboardByName failed: %v", err)
	}

	names := ab.StateMachineNames()
	if len(names) != 1 || names[0] != "Toggle" {
		t.Fatalf("Unexpected machine names: %v", names)
	}
	if _, err := ab.DefaultStateMachine(); err != nil {
		t.Fatalf("DefaultStateMachine failed: %v", err)
	}
	if _, err := ab.StateMachineByName("Nope"); err == nil {
		t.Fatal("Expected error for unknown machine")
	}
}

func TestStateMachine_Settles(t *testing.T) {
	f := importTestFile(t, fullScene)
	ab, _ := f.ArtboardByName("Main")
	sm, err := ab.StateMachineByName("Toggle")
	if err != nil {
		t.Fatalf("StateMachineByName failed: %v", err)
	}

	// Window is 100ms. Three 40ms advances cross it on the third.
	for i := 0; i < 2; i++ {
		settled, err := sm.Advance(40 * time.Millisecond)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if settled {
			t.Fatalf("Settled too early at advance %d", i)
		}
	}
	settled, err := sm.Advance(40 * time.Millisecond)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !settled {
		t.Fatal("Expected machine to settle after 120ms")
	}

	// Once settled, advancing keeps reporting settled.
	settled, _ = sm.Advance(time.Millisecond)
	if !settled {
		t.Fatal("Expected machine to stay settled")
	}
}

func TestStateMachine_InputWakes(t *testing.T) {
	f := importTestFile(t, fullScene)
	ab, _ := f.ArtboardByName("Main")
	sm, _ := ab.StateMachineByName("Toggle")

	if settled, _ := sm.Advance(200 * time.Millisecond); !settled {
		t.Fatal("Expected settle")
	}

	// Setting an input re-opens the window.
	if err := sm.SetBool("on", false); err != nil {
		t.Fatalf("SetBool failed: %v", err)
	}
	if settled, _ := sm.Advance(40 * time.Millisecond); settled {
		t.Fatal("Expected machine to be active after input change")
	}
	if settled, _ := sm.Advance(100 * time.Millisecond); !settled {
		t.Fatal("Expected machine to settle again")
	}
}

func TestStateMachine_InputValidation(t *testing.T) {
	f := importTestFile(t, fullScene)
	ab, _ := f.ArtboardByName("Main")
	sm, _ := ab.StateMachineByName("Toggle")

	if err := sm.SetNumber("speed", 3); err != nil {
		t.Fatalf("SetNumber failed: %v", err)
	}
	if err := sm.FireTrigger("jump"); err != nil {
		t.Fatalf("FireTrigger failed: %v", err)
	}

	if err := sm.SetBool("speed", true); err == nil {
		t.Fatal("Expected type mismatch error")
	}
	if err := sm.SetBool("missing", true); err == nil {
		t.Fatal("Expected unknown input error")
	}
	if _, err := sm.Advance(-time.Millisecond); err == nil {
		t.Fatal("Expected error for negative elapsed")
	}
}

func TestArtboard_Bind(t *testing.T) {
	f := importTestFile(t, fullScene)
	ab, _ := f.ArtboardByName("Main")

	vm, err := f.BindableByName("Player")
	if err != nil {
		t.Fatalf("BindableByName failed: %v", err)
	}
	if err := ab.Bind(vm); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := ab.Bind(nil); err == nil {
		t.Fatal("Expected error for nil instance")
	}
}
