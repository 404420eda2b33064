package wasmengine

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
)

type guestFile struct {
	eng    *WasmEngine
	handle uint64
}

// readNames collects count names via read. Counts are guest-reported, so a
// hostile negative value reads as an empty list.
func readNames(count int32, read func(i uint32) (string, error)) []string {
	if count <= 0 {
		return nil
	}
	names := make([]string, 0, count)
	for i := uint32(0); i < uint32(count); i++ {
		name, err := read(i)
		if err != nil {
			return names
		}
		names = append(names, name)
	}
	return names
}

func (f *guestFile) ArtboardNames() []string {
	res, err := f.eng.call("se_file_artboard_count", f.handle)
	if err != nil {
		return nil
	}
	return readNames(int32(res[0]), func(i uint32) (string, error) {
		res, err := f.eng.call("se_file_artboard_name", f.handle, uint64(i))
		if err != nil {
			return "", err
		}
		return f.eng.readPacked(res[0])
	})
}

func (f *guestFile) DefaultArtboard() (engine.Artboard, error) {
	return f.instanceAt(-1)
}

func (f *guestFile) ArtboardAt(index int) (engine.Artboard, error) {
	if index < 0 {
		return nil, fmt.Errorf("artboard index %d out of range", index)
	}
	return f.instanceAt(index)
}

func (f *guestFile) instanceAt(index int) (engine.Artboard, error) {
	res, err := f.eng.call("se_artboard_instance", f.handle, uint64(uint32(int32(index))))
	if err != nil {
		return nil, err
	}
	if res[0] == 0 {
		return nil, f.eng.lastError("instance artboard")
	}
	return &guestArtboard{eng: f.eng, handle: res[0]}, nil
}

func (f *guestFile) ArtboardByName(name string) (engine.Artboard, error) {
	h, err := f.eng.namedInstance("se_artboard_instance_named", "instance artboard", f.handle, name)
	if err != nil {
		return nil, err
	}
	return &guestArtboard{eng: f.eng, handle: h}, nil
}

func (f *guestFile) BindableByName(name string) (engine.BindableInstance, error) {
	h, err := f.eng.namedInstance("se_bindable_instance", "instance bindable", f.handle, name)
	if err != nil {
		return nil, err
	}
	return &guestBindable{eng: f.eng, handle: h}, nil
}

func (f *guestFile) Destroy() { f.eng.freeHandle(f.handle) }

type guestArtboard struct {
	eng    *WasmEngine
	handle uint64
}

func (a *guestArtboard) StateMachineNames() []string {
	res, err := a.eng.call("se_artboard_machine_count", a.handle)
	if err != nil {
		return nil
	}
	return readNames(int32(res[0]), func(i uint32) (string, error) {
		res, err := a.eng.call("se_artboard_machine_name", a.handle, uint64(i))
		if err != nil {
			return "", err
		}
		return a.eng.readPacked(res[0])
	})
}

func (a *guestArtboard) DefaultStateMachine() (engine.StateMachine, error) {
	return a.machineAt(-1)
}

func (a *guestArtboard) StateMachineAt(index int) (engine.StateMachine, error) {
	if index < 0 {
		return nil, fmt.Errorf("state machine index %d out of range", index)
	}
	return a.machineAt(index)
}

func (a *guestArtboard) machineAt(index int) (engine.StateMachine, error) {
	res, err := a.eng.call("se_machine_instance", a.handle, uint64(uint32(int32(index))))
	if err != nil {
		return nil, err
	}
	if res[0] == 0 {
		return nil, a.eng.lastError("instance state machine")
	}
	return &guestMachine{eng: a.eng, handle: res[0]}, nil
}

func (a *guestArtboard) StateMachineByName(name string) (engine.StateMachine, error) {
	h, err := a.eng.namedInstance("se_machine_instance_named", "instance state machine", a.handle, name)
	if err != nil {
		return nil, err
	}
	return &guestMachine{eng: a.eng, handle: h}, nil
}

func (a *guestArtboard) Bind(instance engine.BindableInstance) error {
	gb, ok := instance.(*guestBindable)
	if !ok {
		return fmt.Errorf("bindable %T is not from this engine", instance)
	}
	return a.eng.callStatus("bind instance", "se_artboard_bind", a.handle, gb.handle)
}

func (a *guestArtboard) Destroy() { a.eng.freeHandle(a.handle) }

type guestMachine struct {
	eng    *WasmEngine
	handle uint64
}

// Advance passes elapsed time as microseconds. The guest reports 1 when the
// machine has settled, 0 when it has not, and a negative value on failure.
func (m *guestMachine) Advance(elapsed time.Duration) (bool, error) {
	res, err := m.eng.call("se_machine_advance", m.handle, uint64(elapsed.Microseconds()))
	if err != nil {
		return false, err
	}
	state := int32(res[0])
	if state < 0 {
		return false, m.eng.lastError("advance state machine")
	}
	return state == 1, nil
}

func (m *guestMachine) SetBool(name string, value bool) error {
	ptr, n, err := m.eng.writeBytes([]byte(name))
	if err != nil {
		return err
	}
	defer m.eng.freeBytes(ptr, n)
	var v uint64
	if value {
		v = 1
	}
	return m.eng.callStatus("set bool input", "se_machine_set_bool", m.handle, uint64(ptr), uint64(n), v)
}

func (m *guestMachine) SetNumber(name string, value float64) error {
	ptr, n, err := m.eng.writeBytes([]byte(name))
	if err != nil {
		return err
	}
	defer m.eng.freeBytes(ptr, n)
	return m.eng.callStatus("set number input", "se_machine_set_number",
		m.handle, uint64(ptr), uint64(n), math.Float64bits(value))
}

func (m *guestMachine) FireTrigger(name string) error {
	ptr, n, err := m.eng.writeBytes([]byte(name))
	if err != nil {
		return err
	}
	defer m.eng.freeBytes(ptr, n)
	return m.eng.callStatus("fire trigger", "se_machine_fire", m.handle, uint64(ptr), uint64(n))
}

func (m *guestMachine) Destroy() { m.eng.freeHandle(m.handle) }

type guestBindable struct {
	eng    *WasmEngine
	handle uint64
}

// Property values cross the boundary as a 32-byte record in guest memory:
//
//	[0:4]   type
//	[4:8]   bool
//	[8:16]  number (f64)
//	[16:20] color (ARGB)
//	[20:24] reserved
//	[24:28] string ptr
//	[28:32] string len
//
// The string buffer is owned by whoever wrote the record.
func (b *guestBindable) Get(path string) (scenebridge.PropertyValue, error) {
	var zero scenebridge.PropertyValue

	pathPtr, pathLen, err := b.eng.writeBytes([]byte(path))
	if err != nil {
		return zero, err
	}
	defer b.eng.freeBytes(pathPtr, pathLen)

	recPtr, recLen, err := b.eng.writeBytes(make([]byte, propertyRecordSize))
	if err != nil {
		return zero, err
	}
	defer b.eng.freeBytes(recPtr, recLen)

	if err := b.eng.callStatus("get property", "se_property_get",
		b.handle, uint64(pathPtr), uint64(pathLen), uint64(recPtr)); err != nil {
		return zero, err
	}

	rec, ok := b.eng.mod.Memory().Read(recPtr, propertyRecordSize)
	if !ok {
		return zero, fmt.Errorf("read property record at guest offset %d out of range", recPtr)
	}
	value := scenebridge.PropertyValue{
		Type:    scenebridge.PropertyType(binary.LittleEndian.Uint32(rec[0:])),
		Boolean: binary.LittleEndian.Uint32(rec[4:]) != 0,
		Num:     math.Float64frombits(binary.LittleEndian.Uint64(rec[8:])),
		Color:   binary.LittleEndian.Uint32(rec[16:]),
	}
	strPacked := uint64(binary.LittleEndian.Uint32(rec[24:]))<<32 | uint64(binary.LittleEndian.Uint32(rec[28:]))
	value.Str, err = b.eng.readPacked(strPacked)
	if err != nil {
		return zero, err
	}
	return value, nil
}

func (b *guestBindable) Set(path string, value scenebridge.PropertyValue) error {
	pathPtr, pathLen, err := b.eng.writeBytes([]byte(path))
	if err != nil {
		return err
	}
	defer b.eng.freeBytes(pathPtr, pathLen)

	var strPtr, strLen uint32
	if value.Str != "" {
		strPtr, strLen, err = b.eng.writeBytes([]byte(value.Str))
		if err != nil {
			return err
		}
		defer b.eng.freeBytes(strPtr, strLen)
	}

	rec := make([]byte, propertyRecordSize)
	binary.LittleEndian.PutUint32(rec[0:], uint32(value.Type))
	var boolVal uint32
	if value.Boolean {
		boolVal = 1
	}
	binary.LittleEndian.PutUint32(rec[4:], boolVal)
	binary.LittleEndian.PutUint64(rec[8:], math.Float64bits(value.Num))
	binary.LittleEndian.PutUint32(rec[16:], value.Color)
	binary.LittleEndian.PutUint32(rec[24:], strPtr)
	binary.LittleEndian.PutUint32(rec[28:], strLen)

	recPtr, recLen, err := b.eng.writeBytes(rec)
	if err != nil {
		return err
	}
	defer b.eng.freeBytes(recPtr, recLen)

	return b.eng.callStatus("set property", "se_property_set",
		b.handle, uint64(pathPtr), uint64(pathLen), uint64(recPtr))
}

func (b *guestBindable) Destroy() { b.eng.freeHandle(b.handle) }

type guestAsset struct {
	eng    *WasmEngine
	handle uint64
	kind   scenebridge.Kind
}

func (a *guestAsset) Kind() scenebridge.Kind { return a.kind }

func (a *guestAsset) Destroy() { a.eng.freeHandle(a.handle) }

type guestSurface struct {
	eng           *WasmEngine
	handle        uint64
	width, height uint32
}

func (s *guestSurface) Width() uint32  { return s.width }
func (s *guestSurface) Height() uint32 { return s.height }

func (s *guestSurface) Destroy() { s.eng.freeHandle(s.handle) }

// namedInstance covers the instance-by-name exports, which all take
// (parent handle, name ptr, name len) and return a handle.
func (e *WasmEngine) namedInstance(export, op string, parent uint64, name string) (uint64, error) {
	ptr, n, err := e.writeBytes([]byte(name))
	if err != nil {
		return 0, err
	}
	defer e.freeBytes(ptr, n)

	res, err := e.call(export, parent, uint64(ptr), uint64(n))
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return 0, e.lastError(op)
	}
	return res[0], nil
}
