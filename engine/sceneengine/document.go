package sceneengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document is the parsed form of a scene file.
type Document struct {
	Artboards  []ArtboardDef  `json:"artboards"`
	ViewModels []ViewModelDef `json:"viewModels"`
}

// ArtboardDef declares one artboard.
type ArtboardDef struct {
	Name          string            `json:"name"`
	Width         float64           `json:"width"`
	Height        float64           `json:"height"`
	StateMachines []StateMachineDef `json:"stateMachines"`
	Assets        []string          `json:"assets"`
}

// StateMachineDef declares one state machine on an artboard.
type StateMachineDef struct {
	Name        string     `json:"name"`
	Inputs      []InputDef `json:"inputs"`
	SettleAfter string     `json:"settleAfter"`
}

// InputDef declares one state machine input.
type InputDef struct {
	Name  string `json:"name"`
	Type  string `json:"type"` // bool | number | trigger
	Value any    `json:"value,omitempty"`
}

// ViewModelDef declares one view model.
type ViewModelDef struct {
	Name       string        `json:"name"`
	Properties []PropertyDef `json:"properties"`
}

// PropertyDef declares one typed view model property. Instance properties
// reference another view model by name; cycles are allowed because child
// instances materialize lazily on first access.
type PropertyDef struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"` // number | string | bool | enum | color | trigger | instance
	Value   any      `json:"value,omitempty"`
	Options []string `json:"options,omitempty"`
	Of      string   `json:"of,omitempty"`
}

const defaultSettleAfter = 500 * time.Millisecond

// ParseDocument decodes and validates a scene document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scene document: %w", err)
	}
	if len(doc.Artboards) == 0 {
		return nil, fmt.Errorf("scene document has no artboards")
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	seenArtboards := make(map[string]bool, len(d.Artboards))
	for _, ab := range d.Artboards {
		if ab.Name == "" {
			return fmt.Errorf("artboard with empty name")
		}
		if seenArtboards[ab.Name] {
			return fmt.Errorf("duplicate artboard %q", ab.Name)
		}
		seenArtboards[ab.Name] = true
		if ab.Width <= 0 || ab.Height <= 0 {
			return fmt.Errorf("artboard %q has non-positive size", ab.Name)
		}
		seenMachines := make(map[string]bool, len(ab.StateMachines))
		for _, sm := range ab.StateMachines {
			if sm.Name == "" {
				return fmt.Errorf("artboard %q: state machine with empty name", ab.Name)
			}
			if seenMachines[sm.Name] {
				return fmt.Errorf("artboard %q: duplicate state machine %q", ab.Name, sm.Name)
			}
			seenMachines[sm.Name] = true
			if _, err := sm.settleAfter(); err != nil {
				return fmt.Errorf("artboard %q, machine %q: %w", ab.Name, sm.Name, err)
			}
			for _, in := range sm.Inputs {
				switch in.Type {
				case "bool", "number", "trigger":
				default:
					return fmt.Errorf("machine %q: input %q has unknown type %q", sm.Name, in.Name, in.Type)
				}
			}
		}
	}

	models := make(map[string]bool, len(d.ViewModels))
	for _, vm := range d.ViewModels {
		if vm.Name == "" {
			return fmt.Errorf("view model with empty name")
		}
		if models[vm.Name] {
			return fmt.Errorf("duplicate view model %q", vm.Name)
		}
		models[vm.Name] = true
	}
	for _, vm := range d.ViewModels {
		seen := make(map[string]bool, len(vm.Properties))
		for _, p := range vm.Properties {
			if seen[p.Name] {
				return fmt.Errorf("view model %q: duplicate property %q", vm.Name, p.Name)
			}
			seen[p.Name] = true
			switch p.Type {
			case "number", "string", "bool", "trigger", "color":
			case "enum":
				if len(p.Options) == 0 {
					return fmt.Errorf("view model %q: enum property %q has no options", vm.Name, p.Name)
				}
			case "instance":
				if !models[p.Of] {
					return fmt.Errorf("view model %q: instance property %q references unknown model %q", vm.Name, p.Name, p.Of)
				}
			default:
				return fmt.Errorf("view model %q: property %q has unknown type %q", vm.Name, p.Name, p.Type)
			}
		}
	}
	return nil
}

func (d *Document) viewModel(name string) (ViewModelDef, bool) {
	for _, vm := range d.ViewModels {
		if vm.Name == name {
			return vm, true
		}
	}
	return ViewModelDef{}, false
}

func (sm StateMachineDef) settleAfter() (time.Duration, error) {
	if sm.SettleAfter == "" {
		return defaultSettleAfter, nil
	}
	dur, err := time.ParseDuration(sm.SettleAfter)
	if err != nil {
		return 0, fmt.Errorf("bad settleAfter %q: %w", sm.SettleAfter, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("negative settleAfter %q", sm.SettleAfter)
	}
	return dur, nil
}

// parseColor accepts "#AARRGGBB", "#RRGGBB" (alpha assumed opaque) or a
// JSON number.
func parseColor(v any) (uint32, error) {
	switch c := v.(type) {
	case nil:
		return 0xFF000000, nil
	case float64:
		return uint32(c), nil
	case string:
		s := strings.TrimPrefix(c, "#")
		n, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("bad color %q: %w", c, err)
		}
		if len(s) <= 6 {
			n |= 0xFF000000
		}
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("bad color value %v", v)
	}
}
