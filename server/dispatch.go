package server

import (
	"go.uber.org/zap"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/command"
	"github.com/sceneforge/scene-bridge/engine"
	"github.com/sceneforge/scene-bridge/errors"
)

// smEntry wraps a state machine with the last settle flag the worker
// observed, so settle notifications fire on the transition, not every frame.
type smEntry struct {
	sm      engine.StateMachine
	settled bool
}

func (e *smEntry) Destroy() {
	e.sm.Destroy()
}

// dispatch executes one command against the engine and registry. It returns
// true only for protocol violations, which poison the session.
func (s *Server) dispatch(eng engine.Engine, cmd command.Command) bool {
	if !cmd.Coherent() {
		err := errors.Protocol("command tag %s does not match payload", cmd.Tag)
		s.logger.Error("protocol violation, draining", zap.Error(err))
		s.fail(cmd, err)
		return true
	}

	switch p := cmd.Payload.(type) {
	case command.ImportFile:
		s.handleImportFile(eng, cmd, p)
	case command.ListArtboards:
		s.handleListArtboards(cmd, p)
	case command.InstanceArtboard:
		s.handleInstanceArtboard(cmd, p)
	case command.ListStateMachines:
		s.handleListStateMachines(cmd, p)
	case command.InstanceStateMachine:
		s.handleInstanceStateMachine(cmd, p)
	case command.AdvanceStateMachine:
		s.handleAdvance(cmd, p)
	case command.SetInput:
		s.handleSetInput(cmd, p)
	case command.InstanceBindable:
		s.handleInstanceBindable(cmd, p)
	case command.BindInstance:
		s.handleBindInstance(cmd, p)
	case command.GetProperty:
		s.handleGetProperty(cmd, p)
	case command.SetProperty:
		s.handleSetProperty(cmd, p)
	case command.DecodeImage:
		s.handleDecode(cmd, p.Image, func() (engine.Asset, error) { return eng.DecodeImage(p.Data) })
	case command.DecodeAudio:
		s.handleDecode(cmd, p.Audio, func() (engine.Asset, error) { return eng.DecodeAudio(p.Data) })
	case command.DecodeFont:
		s.handleDecode(cmd, p.Font, func() (engine.Asset, error) { return eng.DecodeFont(p.Data) })
	case command.RegisterAsset:
		s.handleRegisterAsset(eng, cmd, p)
	case command.UnregisterAsset:
		s.handleUnregisterAsset(eng, cmd, p)
	case command.CreateSurface:
		s.handleCreateSurface(eng, cmd, p)
	case command.DrawBatch:
		s.handleDrawBatch(eng, cmd, p)
	case command.FreeHandle:
		s.handleFreeHandle(cmd, p)
	default:
		err := errors.Protocol("unrecognized command tag %s", cmd.Tag)
		s.logger.Error("protocol violation, draining", zap.Error(err))
		s.fail(cmd, err)
		return true
	}
	return false
}

// enrich converts an engine error into a typed error message, preserving
// already-typed errors (property path failures) and wrapping the rest.
func enrich(h scenebridge.Handle, op string, err error) *errors.Error {
	if typed, ok := err.(*errors.Error); ok {
		if typed.Handle.IsZero() {
			typed.Handle = h
		}
		return typed
	}
	return errors.NativeFailed(h, op, err)
}

func (s *Server) resolveFile(h scenebridge.Handle) (engine.File, *errors.Error) {
	v, err := s.registry.Resolve(h, scenebridge.KindFile)
	if err != nil {
		return nil, err
	}
	return v.(engine.File), nil
}

func (s *Server) resolveArtboard(h scenebridge.Handle) (engine.Artboard, *errors.Error) {
	v, err := s.registry.Resolve(h, scenebridge.KindArtboard)
	if err != nil {
		return nil, err
	}
	return v.(engine.Artboard), nil
}

func (s *Server) resolveMachine(h scenebridge.Handle) (*smEntry, *errors.Error) {
	v, err := s.registry.Resolve(h, scenebridge.KindStateMachine)
	if err != nil {
		return nil, err
	}
	return v.(*smEntry), nil
}

func (s *Server) resolveBindable(h scenebridge.Handle) (engine.BindableInstance, *errors.Error) {
	v, err := s.registry.Resolve(h, scenebridge.KindBindableInstance)
	if err != nil {
		return nil, err
	}
	return v.(engine.BindableInstance), nil
}

func (s *Server) resolveSurface(h scenebridge.Handle) (engine.Surface, *errors.Error) {
	v, err := s.registry.Resolve(h, scenebridge.KindSurface)
	if err != nil {
		return nil, err
	}
	return v.(engine.Surface), nil
}

func (s *Server) resolveAsset(h scenebridge.Handle) (engine.Asset, *errors.Error) {
	switch h.Kind {
	case scenebridge.KindImage, scenebridge.KindAudio, scenebridge.KindFont:
	default:
		return nil, errors.New(errors.StageDispatch, errors.CodeInvalidHandle).
			Handle(h).Detail("expected an asset handle").Build()
	}
	v, err := s.registry.Resolve(h, h.Kind)
	if err != nil {
		return nil, err
	}
	return v.(engine.Asset), nil
}

func (s *Server) handleImportFile(eng engine.Engine, cmd command.Command, p command.ImportFile) {
	file, err := eng.ImportFile(p.Data)
	if err != nil {
		s.fail(cmd, enrich(p.File, "import file", err))
		return
	}
	if err := s.registry.Put(p.File, file); err != nil {
		file.Destroy()
		s.fail(cmd, err)
		return
	}
	s.reply(cmd, command.Created{Handle: p.File})
}

func (s *Server) handleListArtboards(cmd command.Command, p command.ListArtboards) {
	file, err := s.resolveFile(p.File)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	s.reply(cmd, command.Names{Of: p.File, Names: file.ArtboardNames()})
}

func selectArtboard(file engine.File, sel command.Selector) (engine.Artboard, error) {
	switch sel.Mode {
	case command.SelectByName:
		return file.ArtboardByName(sel.Name)
	case command.SelectByIndex:
		return file.ArtboardAt(sel.Index)
	default:
		return file.DefaultArtboard()
	}
}

func (s *Server) handleInstanceArtboard(cmd command.Command, p command.InstanceArtboard) {
	file, err := s.resolveFile(p.File)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	ab, aerr := selectArtboard(file, p.Select)
	if aerr != nil {
		s.fail(cmd, enrich(p.File, "instance artboard", aerr))
		return
	}
	if err := s.registry.Put(p.Artboard, ab); err != nil {
		ab.Destroy()
		s.fail(cmd, err)
		return
	}
	s.reply(cmd, command.Created{Handle: p.Artboard})
}

func (s *Server) handleListStateMachines(cmd command.Command, p command.ListStateMachines) {
	ab, err := s.resolveArtboard(p.Artboard)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	s.reply(cmd, command.Names{Of: p.Artboard, Names: ab.StateMachineNames()})
}

func selectMachine(ab engine.Artboard, sel command.Selector) (engine.StateMachine, error) {
	switch sel.Mode {
	case command.SelectByName:
		return ab.StateMachineByName(sel.Name)
	case command.SelectByIndex:
		return ab.StateMachineAt(sel.Index)
	default:
		return ab.DefaultStateMachine()
	}
}

func (s *Server) handleInstanceStateMachine(cmd command.Command, p command.InstanceStateMachine) {
	ab, err := s.resolveArtboard(p.Artboard)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	sm, serr := selectMachine(ab, p.Select)
	if serr != nil {
		s.fail(cmd, enrich(p.Artboard, "instance state machine", serr))
		return
	}
	if err := s.registry.Put(p.StateMachine, &smEntry{sm: sm}); err != nil {
		sm.Destroy()
		s.fail(cmd, err)
		return
	}
	s.reply(cmd, command.Created{Handle: p.StateMachine})
}

func (s *Server) handleAdvance(cmd command.Command, p command.AdvanceStateMachine) {
	entry, err := s.resolveMachine(p.StateMachine)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	settled, aerr := entry.sm.Advance(p.Elapsed)
	if aerr != nil {
		s.fail(cmd, enrich(p.StateMachine, "advance", aerr))
		return
	}
	if settled != entry.settled {
		entry.settled = settled
		s.outbox.Push(command.Event(command.Settled{
			StateMachine: p.StateMachine,
			Settled:      settled,
		}))
	}
}

func (s *Server) handleSetInput(cmd command.Command, p command.SetInput) {
	entry, err := s.resolveMachine(p.StateMachine)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	var serr error
	switch p.Value.Type {
	case scenebridge.PropertyBool:
		serr = entry.sm.SetBool(p.Name, p.Value.Boolean)
	case scenebridge.PropertyNumber:
		serr = entry.sm.SetNumber(p.Name, p.Value.Num)
	case scenebridge.PropertyTrigger:
		serr = entry.sm.FireTrigger(p.Name)
	default:
		s.fail(cmd, errors.New(errors.StageDispatch, errors.CodeNativeOpFailed).
			Handle(p.StateMachine).
			Detail("input %q: unsupported value type %s", p.Name, p.Value.Type).Build())
		return
	}
	if serr != nil {
		s.fail(cmd, enrich(p.StateMachine, "set input", serr))
		return
	}
	// an input change can wake a settled machine
	if entry.settled {
		entry.settled = false
		s.outbox.Push(command.Event(command.Settled{
			StateMachine: p.StateMachine,
			Settled:      false,
		}))
	}
}

func (s *Server) handleInstanceBindable(cmd command.Command, p command.InstanceBindable) {
	file, err := s.resolveFile(p.File)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	bindable, berr := file.BindableByName(p.Name)
	if berr != nil {
		s.fail(cmd, enrich(p.File, "instance bindable", berr))
		return
	}
	if err := s.registry.Put(p.Bindable, bindable); err != nil {
		bindable.Destroy()
		s.fail(cmd, err)
		return
	}
	s.reply(cmd, command.Created{Handle: p.Bindable})
}

func (s *Server) handleBindInstance(cmd command.Command, p command.BindInstance) {
	ab, err := s.resolveArtboard(p.Artboard)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	bindable, err := s.resolveBindable(p.Bindable)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	if berr := ab.Bind(bindable); berr != nil {
		s.fail(cmd, enrich(p.Artboard, "bind instance", berr))
	}
}

func (s *Server) handleGetProperty(cmd command.Command, p command.GetProperty) {
	bindable, err := s.resolveBindable(p.Bindable)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	value, gerr := bindable.Get(p.Path)
	if gerr != nil {
		s.fail(cmd, enrich(p.Bindable, "get property", gerr))
		return
	}
	s.reply(cmd, command.PropertyRead{Bindable: p.Bindable, Path: p.Path, Value: value})
}

func (s *Server) handleSetProperty(cmd command.Command, p command.SetProperty) {
	bindable, err := s.resolveBindable(p.Bindable)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	if serr := bindable.Set(p.Path, p.Value); serr != nil {
		s.fail(cmd, enrich(p.Bindable, "set property", serr))
		return
	}
	if s.watch != nil && s.watch.Match(p.Bindable, p.Path) {
		s.outbox.Push(command.Event(command.PropertyChanged{
			Bindable: p.Bindable,
			Path:     p.Path,
			Value:    p.Value,
		}))
	}
}

func (s *Server) handleDecode(cmd command.Command, h scenebridge.Handle, decode func() (engine.Asset, error)) {
	asset, err := decode()
	if err != nil {
		s.fail(cmd, enrich(h, "decode asset", err))
		return
	}
	if rerr := s.registry.Put(h, asset); rerr != nil {
		asset.Destroy()
		s.fail(cmd, rerr)
		return
	}
	s.reply(cmd, command.Created{Handle: h})
}

func (s *Server) handleRegisterAsset(eng engine.Engine, cmd command.Command, p command.RegisterAsset) {
	asset, err := s.resolveAsset(p.Asset)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	if rerr := eng.RegisterAsset(p.Name, asset); rerr != nil {
		s.fail(cmd, enrich(p.Asset, "register asset", rerr))
	}
}

func (s *Server) handleUnregisterAsset(eng engine.Engine, cmd command.Command, p command.UnregisterAsset) {
	if err := eng.UnregisterAsset(p.Name); err != nil {
		s.fail(cmd, enrich(scenebridge.Handle{}, "unregister asset", err))
	}
}

func (s *Server) handleCreateSurface(eng engine.Engine, cmd command.Command, p command.CreateSurface) {
	sf, err := eng.CreateSurface(p.Width, p.Height)
	if err != nil {
		s.fail(cmd, enrich(p.Surface, "create surface", err))
		return
	}
	if rerr := s.registry.Put(p.Surface, sf); rerr != nil {
		sf.Destroy()
		s.fail(cmd, rerr)
		return
	}
	s.reply(cmd, command.Created{Handle: p.Surface})
}

func (s *Server) handleDrawBatch(eng engine.Engine, cmd command.Command, p command.DrawBatch) {
	target, err := s.resolveSurface(p.Target)
	if err != nil {
		s.fail(cmd, err)
		return
	}
	entries := make([]engine.DrawEntry, 0, len(p.Entries))
	for _, e := range p.Entries {
		ab, aerr := s.resolveArtboard(e.Artboard)
		if aerr != nil {
			s.fail(cmd, aerr)
			return
		}
		entry := engine.DrawEntry{Artboard: ab, Transform: e.Transform}
		if !e.StateMachine.IsZero() {
			machine, merr := s.resolveMachine(e.StateMachine)
			if merr != nil {
				s.fail(cmd, merr)
				return
			}
			entry.StateMachine = machine.sm
		}
		entries = append(entries, entry)
	}
	if derr := eng.Draw(target, entries, p.Options); derr != nil {
		s.fail(cmd, enrich(p.Target, "draw batch", derr))
		return
	}
	s.reply(cmd, command.DrawDone{Target: p.Target, Entries: len(entries)})
}

func (s *Server) handleFreeHandle(cmd command.Command, p command.FreeHandle) {
	if err := s.registry.Free(p.Handle); err != nil {
		s.fail(cmd, err)
	}
}
