package scenebridge

import "fmt"

// PropertyType identifies one of the closed set of bindable value kinds.
type PropertyType uint8

const (
	PropertyNone PropertyType = iota
	PropertyNumber
	PropertyString
	PropertyBool
	PropertyEnum
	PropertyColor
	PropertyTrigger
)

var propertyTypeNames = [...]string{
	PropertyNone:    "none",
	PropertyNumber:  "number",
	PropertyString:  "string",
	PropertyBool:    "bool",
	PropertyEnum:    "enum",
	PropertyColor:   "color",
	PropertyTrigger: "trigger",
}

func (t PropertyType) String() string {
	if int(t) < len(propertyTypeNames) {
		return propertyTypeNames[t]
	}
	return fmt.Sprintf("property-type(%d)", uint8(t))
}

// PropertyValue is a tagged variant over the closed set of bindable value
// kinds. Exactly one of the value fields is meaningful, selected by Type.
// Trigger carries no value at all; observing one is the event.
type PropertyValue struct {
	Str     string
	Num     float64
	Color   uint32
	Type    PropertyType
	Boolean bool
}

// Number builds a number value.
func Number(v float64) PropertyValue {
	return PropertyValue{Type: PropertyNumber, Num: v}
}

// Str builds a string value.
func Str(v string) PropertyValue {
	return PropertyValue{Type: PropertyString, Str: v}
}

// Bool builds a boolean value.
func Bool(v bool) PropertyValue {
	return PropertyValue{Type: PropertyBool, Boolean: v}
}

// EnumOption builds an enum-option value identified by option name.
func EnumOption(option string) PropertyValue {
	return PropertyValue{Type: PropertyEnum, Str: option}
}

// Color builds an ARGB color value.
func Color(argb uint32) PropertyValue {
	return PropertyValue{Type: PropertyColor, Color: argb}
}

// Trigger builds a one-shot trigger value.
func Trigger() PropertyValue {
	return PropertyValue{Type: PropertyTrigger}
}

func (v PropertyValue) String() string {
	switch v.Type {
	case PropertyNumber:
		return fmt.Sprintf("number(%g)", v.Num)
	case PropertyString:
		return fmt.Sprintf("string(%q)", v.Str)
	case PropertyBool:
		return fmt.Sprintf("bool(%t)", v.Boolean)
	case PropertyEnum:
		return fmt.Sprintf("enum(%s)", v.Str)
	case PropertyColor:
		return fmt.Sprintf("color(#%08X)", v.Color)
	case PropertyTrigger:
		return "trigger"
	default:
		return "property(none)"
	}
}
