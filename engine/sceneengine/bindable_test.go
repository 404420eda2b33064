package sceneengine

import (
	stderrors "errors"
	"testing"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/errors"
)

func playerInstance(t *testing.T) *bindable {
	t.Helper()
	f := importTestFile(t, fullScene)
	vm, err := f.BindableByName("Player")
	if err != nil {
		t.Fatalf("BindableByName failed: %v", err)
	}
	return vm.(*bindable)
}

func TestBindable_Defaults(t *testing.T) {
	b := playerInstance(t)

	cases := []struct {
		path string
		want scenebridge.PropertyValue
	}{
		{"health", scenebridge.Number(100)},
		{"title", scenebridge.Str("hero")},
		{"alive", scenebridge.Bool(true)},
		{"mood", scenebridge.EnumOption("calm")},
		{"tint", scenebridge.Color(0xFFFF8800)},
		{"respawn", scenebridge.Trigger()},
	}
	for _, tc := range cases {
		got, err := b.Get(tc.path)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("Get(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestBindable_SetAndGet(t *testing.T) {
	b := playerInstance(t)

	if err := b.Set("health", scenebridge.Number(42)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := b.Get("health")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Num != 42 {
		t.Fatalf("Expected 42, got %g", got.Num)
	}
}

func TestBindable_TypeMismatch(t *testing.T) {
	b := playerInstance(t)

	err := b.Set("health", scenebridge.Str("oops"))
	if err == nil {
		t.Fatal("Expected type mismatch error")
	}
	var serr *errors.Error
	if !stderrors.As(err, &serr) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if serr.Code != errors.CodePropertyPath {
		t.Fatalf("Expected CodePropertyPath, got %v", serr.Code)
	}
}

func TestBindable_EnumOptions(t *testing.T) {
	b := playerInstance(t)

	if err := b.Set("mood", scenebridge.EnumOption("angry")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set("mood", scenebridge.EnumOption("elated")); err == nil {
		t.Fatal("Expected error for option outside enum")
	}
}

func TestBindable_NestedPaths(t *testing.T) {
	// Player.buddy is an instance of Player itself: the cycle is legal
	// because children materialize lazily.
	b := playerInstance(t)

	got, err := b.Get("buddy.health")
	if err != nil {
		t.Fatalf("Get nested failed: %v", err)
	}
	if got.Num != 100 {
		t.Fatalf("Expected nested default 100, got %g", got.Num)
	}

	// Two levels down, still lazy, still safe.
	if err := b.Set("buddy.buddy.title", scenebridge.Str("deep")); err != nil {
		t.Fatalf("Set nested failed: %v", err)
	}
	got, err = b.Get("buddy.buddy.title")
	if err != nil {
		t.Fatalf("Get nested failed: %v", err)
	}
	if got.Str != "deep" {
		t.Fatalf("Expected \"deep\", got %q", got.Str)
	}

	// Sibling paths are independent instances.
	top, _ := b.Get("title")
	if top.Str != "hero" {
		t.Fatalf("Expected top-level title untouched, got %q", top.Str)
	}
}

func TestBindable_PathErrors(t *testing.T) {
	b := playerInstance(t)

	cases := []string{
		"",              // empty
		"missing",       // unknown property
		"buddy",         // instance is not a value
		"health.nested", // scalar used as instance
		"buddy.missing", // unknown nested property
	}
	for _, path := range cases {
		if _, err := b.Get(path); err == nil {
			t.Fatalf("Get(%q): expected error", path)
		}
	}
}

func TestBindable_DestroyedUnusable(t *testing.T) {
	b := playerInstance(t)
	b.Destroy()
	if _, err := b.Get("health"); err == nil {
		t.Fatal("Expected error after Destroy")
	}
}
