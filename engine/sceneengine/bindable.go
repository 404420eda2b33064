package sceneengine

import (
	"fmt"
	"strings"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
	"github.com/sceneforge/scene-bridge/errors"
)

// bindable is an instantiated view model. Instance-typed properties
// materialize lazily on first access, which is what makes cyclic view model
// definitions safe to instantiate.
type bindable struct {
	name      string
	doc       *Document
	slots     map[string]*slot
	order     []string
	destroyed bool
}

type slot struct {
	value   scenebridge.PropertyValue
	options []string
	childOf string
	child   *bindable
}

func newBindable(def ViewModelDef, doc *Document) (*bindable, error) {
	b := &bindable{
		name:  def.Name,
		doc:   doc,
		slots: make(map[string]*slot, len(def.Properties)),
		order: make([]string, 0, len(def.Properties)),
	}
	for _, p := range def.Properties {
		s := &slot{options: p.Options, childOf: p.Of}
		switch p.Type {
		case "number":
			n, _ := p.Value.(float64)
			s.value = scenebridge.Number(n)
		case "string":
			str, _ := p.Value.(string)
			s.value = scenebridge.Str(str)
		case "bool":
			v, _ := p.Value.(bool)
			s.value = scenebridge.Bool(v)
		case "enum":
			option, _ := p.Value.(string)
			if option == "" {
				option = p.Options[0]
			}
			if !containsOption(p.Options, option) {
				return nil, fmt.Errorf("view model %q: enum %q default %q not in options", def.Name, p.Name, option)
			}
			s.value = scenebridge.EnumOption(option)
		case "color":
			argb, err := parseColor(p.Value)
			if err != nil {
				return nil, fmt.Errorf("view model %q, property %q: %w", def.Name, p.Name, err)
			}
			s.value = scenebridge.Color(argb)
		case "trigger":
			s.value = scenebridge.Trigger()
		case "instance":
			s.value = scenebridge.PropertyValue{}
		}
		b.slots[p.Name] = s
		b.order = append(b.order, p.Name)
	}
	return b, nil
}

// resolve walks a dotted path down through instance properties and returns
// the final slot.
func (b *bindable) resolve(path string) (*slot, *errors.Error) {
	if b.destroyed {
		return nil, errors.New(errors.StageEngine, errors.CodeNativeOpFailed).
			Detail("bindable instance destroyed").Build()
	}
	if path == "" {
		return nil, errors.PropertyPath(scenebridge.Handle{}, path, "empty path")
	}
	segments := strings.Split(path, ".")
	current := b
	for i, seg := range segments {
		s, ok := current.slots[seg]
		if !ok {
			return nil, errors.PropertyPath(scenebridge.Handle{}, path,
				fmt.Sprintf("no property %q on %q", seg, current.name))
		}
		if i == len(segments)-1 {
			if s.childOf != "" {
				return nil, errors.PropertyPath(scenebridge.Handle{}, path,
					fmt.Sprintf("%q is a nested instance, not a value", seg))
			}
			return s, nil
		}
		if s.childOf == "" {
			return nil, errors.PropertyPath(scenebridge.Handle{}, path,
				fmt.Sprintf("%q is not a nested instance", seg))
		}
		if s.child == nil {
			vm, ok := current.doc.viewModel(s.childOf)
			if !ok {
				return nil, errors.PropertyPath(scenebridge.Handle{}, path,
					fmt.Sprintf("unknown view model %q", s.childOf))
			}
			child, err := newBindable(vm, current.doc)
			if err != nil {
				return nil, errors.New(errors.StageEngine, errors.CodeNativeOpFailed).
					Cause(err).Detail("instantiate nested %q", s.childOf).Build()
			}
			s.child = child
		}
		current = s.child
	}
	return nil, errors.PropertyPath(scenebridge.Handle{}, path, "unreachable")
}

func (b *bindable) Get(path string) (scenebridge.PropertyValue, error) {
	s, err := b.resolve(path)
	if err != nil {
		return scenebridge.PropertyValue{}, err
	}
	return s.value, nil
}

func (b *bindable) Set(path string, value scenebridge.PropertyValue) error {
	s, rerr := b.resolve(path)
	if rerr != nil {
		return rerr
	}
	if s.value.Type != value.Type {
		return errors.PropertyPath(scenebridge.Handle{}, path,
			fmt.Sprintf("property is %s, got %s", s.value.Type, value.Type))
	}
	if value.Type == scenebridge.PropertyEnum && !containsOption(s.options, value.Str) {
		return errors.PropertyPath(scenebridge.Handle{}, path,
			fmt.Sprintf("option %q not in enum", value.Str))
	}
	s.value = value
	return nil
}

func (b *bindable) Destroy() {
	b.destroyed = true
}

var _ engine.BindableInstance = (*bindable)(nil)

func containsOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
