package wasmengine

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
)

// Guest ABI. Strings and buffers cross the boundary as (ptr, len) pairs in
// guest linear memory, allocated with se_alloc and released with se_free by
// whichever side did not allocate them. Object handles are guest-owned i64
// values, 0 meaning failure. Functions returning i32 status use 0 for
// success; the message behind a failure is fetched with se_last_error.
var requiredExports = []string{
	"se_alloc",
	"se_free",
	"se_last_error",
	"se_file_import",
	"se_file_artboard_count",
	"se_file_artboard_name",
	"se_artboard_instance",
	"se_artboard_instance_named",
	"se_artboard_machine_count",
	"se_artboard_machine_name",
	"se_machine_instance",
	"se_machine_instance_named",
	"se_machine_advance",
	"se_machine_set_bool",
	"se_machine_set_number",
	"se_machine_fire",
	"se_bindable_instance",
	"se_artboard_bind",
	"se_property_get",
	"se_property_set",
	"se_asset_decode",
	"se_asset_register",
	"se_asset_unregister",
	"se_surface_create",
	"se_draw",
	"se_handle_free",
	"se_close",
}

const (
	assetKindImage = 0
	assetKindAudio = 1
	assetKindFont  = 2

	propertyRecordSize = 32
	drawEntrySize      = 40
	drawOptionsSize    = 20
)

// Option configures a WasmEngine.
type Option func(*WasmEngine)

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *WasmEngine) { e.logger = l }
}

// WithMemoryLimitPages caps guest memory in 64KB pages. 0 keeps the wazero
// default.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *WasmEngine) { e.memoryLimitPages = pages }
}

// WasmEngine drives a scene engine compiled to WebAssembly through the se_*
// guest ABI. It satisfies engine.Engine. Like every engine it is confined to
// the goroutine that constructed it.
type WasmEngine struct {
	ctx     context.Context
	runtime wazero.Runtime
	mod     api.Module
	fns     map[string]api.Function
	logger  *zap.Logger

	memoryLimitPages uint32
	closed           bool
}

// New compiles and instantiates the engine module. Construction fails when
// the module does not export linear memory or any function in the se_* ABI.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*WasmEngine, error) {
	e := &WasmEngine{
		ctx:    ctx,
		fns:    make(map[string]api.Function, len(requiredExports)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if e.memoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.memoryLimitPages)
	}
	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	builder := e.runtime.NewHostModuleBuilder("wasi_snapshot_preview1")
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	if _, err := builder.Instantiate(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = e.runtime.Close(ctx)
		return nil, fmt.Errorf("compile engine module: %w", err)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("scene-engine").WithStartFunctions("_initialize", "_start"))
	if err != nil {
		_ = e.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate engine module: %w", err)
	}
	e.mod = mod

	if mod.Memory() == nil {
		_ = e.runtime.Close(ctx)
		return nil, fmt.Errorf("engine module exports no memory")
	}
	for _, name := range requiredExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			_ = e.runtime.Close(ctx)
			return nil, fmt.Errorf("engine module missing export %q", name)
		}
		e.fns[name] = fn
	}

	e.logger.Debug("wasm engine instantiated",
		zap.Int("module_bytes", len(wasmBytes)),
		zap.Uint32("memory_pages", mod.Memory().Size()/65536))
	return e, nil
}

func (e *WasmEngine) ImportFile(data []byte) (engine.File, error) {
	ptr, n, err := e.writeBytes(data)
	if err != nil {
		return nil, err
	}
	defer e.freeBytes(ptr, n)

	res, err := e.call("se_file_import", uint64(ptr), uint64(n))
	if err != nil {
		return nil, err
	}
	h := res[0]
	if h == 0 {
		return nil, e.lastError("import file")
	}
	return &guestFile{eng: e, handle: h}, nil
}

func (e *WasmEngine) DecodeImage(data []byte) (engine.Asset, error) {
	return e.decodeAsset(assetKindImage, scenebridge.KindImage, data)
}

func (e *WasmEngine) DecodeAudio(data []byte) (engine.Asset, error) {
	return e.decodeAsset(assetKindAudio, scenebridge.KindAudio, data)
}

func (e *WasmEngine) DecodeFont(data []byte) (engine.Asset, error) {
	return e.decodeAsset(assetKindFont, scenebridge.KindFont, data)
}

func (e *WasmEngine) decodeAsset(abiKind uint64, kind scenebridge.Kind, data []byte) (engine.Asset, error) {
	ptr, n, err := e.writeBytes(data)
	if err != nil {
		return nil, err
	}
	defer e.freeBytes(ptr, n)

	res, err := e.call("se_asset_decode", abiKind, uint64(ptr), uint64(n))
	if err != nil {
		return nil, err
	}
	h := res[0]
	if h == 0 {
		return nil, e.lastError("decode asset")
	}
	return &guestAsset{eng: e, handle: h, kind: kind}, nil
}

func (e *WasmEngine) RegisterAsset(name string, asset engine.Asset) error {
	ga, ok := asset.(*guestAsset)
	if !ok {
		return fmt.Errorf("asset %T is not from this engine", asset)
	}
	ptr, n, err := e.writeBytes([]byte(name))
	if err != nil {
		return err
	}
	defer e.freeBytes(ptr, n)
	return e.callStatus("register asset", "se_asset_register", uint64(ptr), uint64(n), ga.handle)
}

func (e *WasmEngine) UnregisterAsset(name string) error {
	ptr, n, err := e.writeBytes([]byte(name))
	if err != nil {
		return err
	}
	defer e.freeBytes(ptr, n)
	return e.callStatus("unregister asset", "se_asset_unregister", uint64(ptr), uint64(n))
}

func (e *WasmEngine) CreateSurface(width, height uint32) (engine.Surface, error) {
	res, err := e.call("se_surface_create", uint64(width), uint64(height))
	if err != nil {
		return nil, err
	}
	h := res[0]
	if h == 0 {
		return nil, e.lastError("create surface")
	}
	return &guestSurface{eng: e, handle: h, width: width, height: height}, nil
}

// Draw serializes the batch into guest memory as one entries array plus an
// options record and dispatches it in a single call.
func (e *WasmEngine) Draw(target engine.Surface, entries []engine.DrawEntry, opts scenebridge.DrawOptions) error {
	gs, ok := target.(*guestSurface)
	if !ok {
		return fmt.Errorf("surface %T is not from this engine", target)
	}

	buf := make([]byte, len(entries)*drawEntrySize)
	for i, entry := range entries {
		ab, ok := entry.Artboard.(*guestArtboard)
		if !ok {
			return fmt.Errorf("artboard %T is not from this engine", entry.Artboard)
		}
		var sm uint64
		if entry.StateMachine != nil {
			gm, ok := entry.StateMachine.(*guestMachine)
			if !ok {
				return fmt.Errorf("state machine %T is not from this engine", entry.StateMachine)
			}
			sm = gm.handle
		}
		off := i * drawEntrySize
		binary.LittleEndian.PutUint64(buf[off:], ab.handle)
		binary.LittleEndian.PutUint64(buf[off+8:], sm)
		m := entry.Transform
		for j, f := range [6]float32{m.XX, m.XY, m.YX, m.YY, m.TX, m.TY} {
			binary.LittleEndian.PutUint32(buf[off+16+j*4:], math.Float32bits(f))
		}
	}

	optsBuf := make([]byte, drawOptionsSize)
	binary.LittleEndian.PutUint32(optsBuf[0:], uint32(opts.Fit))
	binary.LittleEndian.PutUint32(optsBuf[4:], uint32(opts.Align))
	binary.LittleEndian.PutUint32(optsBuf[8:], opts.ClearColor)
	var clear uint32
	if opts.Clear {
		clear = 1
	}
	binary.LittleEndian.PutUint32(optsBuf[12:], clear)
	binary.LittleEndian.PutUint32(optsBuf[16:], math.Float32bits(opts.Scale))

	entriesPtr, entriesLen, err := e.writeBytes(buf)
	if err != nil {
		return err
	}
	defer e.freeBytes(entriesPtr, entriesLen)
	optsPtr, optsLen, err := e.writeBytes(optsBuf)
	if err != nil {
		return err
	}
	defer e.freeBytes(optsPtr, optsLen)

	return e.callStatus("draw", "se_draw",
		gs.handle, uint64(entriesPtr), uint64(len(entries)), uint64(optsPtr))
}

func (e *WasmEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	_, err := e.call("se_close")
	closeErr := e.runtime.Close(e.ctx)
	if err != nil {
		return err
	}
	return closeErr
}

func (e *WasmEngine) call(name string, args ...uint64) ([]uint64, error) {
	res, err := e.fns[name].Call(e.ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return res, nil
}

// callStatus invokes a function returning an i32 status, 0 meaning success.
func (e *WasmEngine) callStatus(op, name string, args ...uint64) error {
	res, err := e.call(name, args...)
	if err != nil {
		return err
	}
	if int32(res[0]) != 0 {
		return e.lastError(op)
	}
	return nil
}

// writeBytes copies data into a guest buffer obtained from se_alloc. The
// caller releases it with freeBytes.
func (e *WasmEngine) writeBytes(data []byte) (ptr, length uint32, err error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	res, err := e.call("se_alloc", uint64(len(data)))
	if err != nil {
		return 0, 0, err
	}
	ptr = uint32(res[0])
	if ptr == 0 {
		return 0, 0, fmt.Errorf("se_alloc(%d) returned null", len(data))
	}
	if !e.mod.Memory().Write(ptr, data) {
		e.freeBytes(ptr, uint32(len(data)))
		return 0, 0, fmt.Errorf("write %d bytes at guest offset %d out of range", len(data), ptr)
	}
	return ptr, uint32(len(data)), nil
}

func (e *WasmEngine) freeBytes(ptr, length uint32) {
	if ptr == 0 {
		return
	}
	if _, err := e.call("se_free", uint64(ptr), uint64(length)); err != nil {
		e.logger.Warn("se_free failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// readPacked reads a guest string packed as ptr<<32|len and frees it.
func (e *WasmEngine) readPacked(packed uint64) (string, error) {
	ptr := uint32(packed >> 32)
	length := uint32(packed)
	if ptr == 0 || length == 0 {
		return "", nil
	}
	data, ok := e.mod.Memory().Read(ptr, length)
	if !ok {
		return "", fmt.Errorf("read %d bytes at guest offset %d out of range", length, ptr)
	}
	s := string(data)
	e.freeBytes(ptr, length)
	return s, nil
}

// lastError fetches the guest's failure message for the preceding call.
func (e *WasmEngine) lastError(op string) error {
	res, err := e.call("se_last_error")
	if err != nil {
		return fmt.Errorf("%s failed, se_last_error also failed: %w", op, err)
	}
	msg, err := e.readPacked(res[0])
	if err != nil || msg == "" {
		return fmt.Errorf("%s failed", op)
	}
	return fmt.Errorf("%s: %s", op, msg)
}

func (e *WasmEngine) freeHandle(h uint64) {
	if e.closed {
		return
	}
	if _, err := e.call("se_handle_free", h); err != nil {
		e.logger.Warn("se_handle_free failed", zap.Uint64("handle", h), zap.Error(err))
	}
}
