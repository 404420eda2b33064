package sceneengine

import (
	"fmt"
	"time"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
)

type file struct {
	doc       *Document
	destroyed bool
}

func (f *file) ArtboardNames() []string {
	names := make([]string, len(f.doc.Artboards))
	for i, ab := range f.doc.Artboards {
		names[i] = ab.Name
	}
	return names
}

func (f *file) DefaultArtboard() (engine.Artboard, error) {
	return f.ArtboardAt(0)
}

func (f *file) ArtboardByName(name string) (engine.Artboard, error) {
	if f.destroyed {
		return nil, fmt.Errorf("file destroyed")
	}
	for i := range f.doc.Artboards {
		if f.doc.Artboards[i].Name == name {
			return &artboard{def: &f.doc.Artboards[i], doc: f.doc}, nil
		}
	}
	return nil, fmt.Errorf("artboard %q not found", name)
}

func (f *file) ArtboardAt(index int) (engine.Artboard, error) {
	if f.destroyed {
		return nil, fmt.Errorf("file destroyed")
	}
	if index < 0 || index >= len(f.doc.Artboards) {
		return nil, fmt.Errorf("artboard index %d out of range (%d artboards)", index, len(f.doc.Artboards))
	}
	return &artboard{def: &f.doc.Artboards[index], doc: f.doc}, nil
}

func (f *file) BindableByName(name string) (engine.BindableInstance, error) {
	if f.destroyed {
		return nil, fmt.Errorf("file destroyed")
	}
	vm, ok := f.doc.viewModel(name)
	if !ok {
		return nil, fmt.Errorf("view model %q not found", name)
	}
	return newBindable(vm, f.doc)
}

func (f *file) Destroy() {
	f.destroyed = true
}

type artboard struct {
	def       *ArtboardDef
	doc       *Document
	bound     engine.BindableInstance
	destroyed bool
}

func (a *artboard) StateMachineNames() []string {
	names := make([]string, len(a.def.StateMachines))
	for i, sm := range a.def.StateMachines {
		names[i] = sm.Name
	}
	return names
}

func (a *artboard) DefaultStateMachine() (engine.StateMachine, error) {
	return a.StateMachineAt(0)
}

func (a *artboard) StateMachineByName(name string) (engine.StateMachine, error) {
	if a.destroyed {
		return nil, fmt.Errorf("artboard destroyed")
	}
	for i := range a.def.StateMachines {
		if a.def.StateMachines[i].Name == name {
			return newStateMachine(&a.def.StateMachines[i])
		}
	}
	return nil, fmt.Errorf("state machine %q not found on artboard %q", name, a.def.Name)
}

func (a *artboard) StateMachineAt(index int) (engine.StateMachine, error) {
	if a.destroyed {
		return nil, fmt.Errorf("artboard destroyed")
	}
	if index < 0 || index >= len(a.def.StateMachines) {
		return nil, fmt.Errorf("state machine index %d out of range on artboard %q", index, a.def.Name)
	}
	return newStateMachine(&a.def.StateMachines[index])
}

func (a *artboard) Bind(instance engine.BindableInstance) error {
	if a.destroyed {
		return fmt.Errorf("artboard destroyed")
	}
	if instance == nil {
		return fmt.Errorf("nil bindable instance")
	}
	a.bound = instance
	return nil
}

func (a *artboard) Destroy() {
	a.destroyed = true
	a.bound = nil
}

type stateMachine struct {
	def       *StateMachineDef
	inputs    map[string]scenebridge.PropertyValue
	window    time.Duration
	remaining time.Duration
	destroyed bool
}

func newStateMachine(def *StateMachineDef) (*stateMachine, error) {
	window, err := def.settleAfter()
	if err != nil {
		return nil, err
	}
	sm := &stateMachine{
		def:    def,
		inputs: make(map[string]scenebridge.PropertyValue, len(def.Inputs)),
		window: window,
		// a freshly instantiated machine is active until its first window
		// elapses
		remaining: window,
	}
	for _, in := range def.Inputs {
		switch in.Type {
		case "bool":
			b, _ := in.Value.(bool)
			sm.inputs[in.Name] = scenebridge.Bool(b)
		case "number":
			n, _ := in.Value.(float64)
			sm.inputs[in.Name] = scenebridge.Number(n)
		case "trigger":
			sm.inputs[in.Name] = scenebridge.Trigger()
		}
	}
	return sm, nil
}

func (sm *stateMachine) Advance(elapsed time.Duration) (bool, error) {
	if sm.destroyed {
		return false, fmt.Errorf("state machine destroyed")
	}
	if elapsed < 0 {
		return false, fmt.Errorf("negative elapsed duration")
	}
	if sm.remaining <= 0 {
		return true, nil
	}
	sm.remaining -= elapsed
	return sm.remaining <= 0, nil
}

func (sm *stateMachine) SetBool(name string, value bool) error {
	return sm.setInput(name, scenebridge.PropertyBool, scenebridge.Bool(value))
}

func (sm *stateMachine) SetNumber(name string, value float64) error {
	return sm.setInput(name, scenebridge.PropertyNumber, scenebridge.Number(value))
}

func (sm *stateMachine) FireTrigger(name string) error {
	return sm.setInput(name, scenebridge.PropertyTrigger, scenebridge.Trigger())
}

func (sm *stateMachine) setInput(name string, want scenebridge.PropertyType, v scenebridge.PropertyValue) error {
	if sm.destroyed {
		return fmt.Errorf("state machine destroyed")
	}
	current, ok := sm.inputs[name]
	if !ok {
		return fmt.Errorf("input %q not found on machine %q", name, sm.def.Name)
	}
	if current.Type != want {
		return fmt.Errorf("input %q is %s, not %s", name, current.Type, want)
	}
	sm.inputs[name] = v
	// any input change wakes the machine for another settle window
	sm.remaining = sm.window
	return nil
}

func (sm *stateMachine) Destroy() {
	sm.destroyed = true
}
