//go:build js && wasm

// Command wasm is the browser build. It registers the decode operations on
// globalThis.revealBridge and then blocks.
//
//	GOOS=js GOARCH=wasm go build -o reveal.wasm ./cmd/wasm
package main

import (
	"syscall/js"

	"go.uber.org/zap"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/config"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/mesh"
	"github.com/wippyai/reveal-bridge/resource"
	"github.com/wippyai/reveal-bridge/scene"
	"github.com/wippyai/reveal-bridge/sector"
)

// throwing wraps a Go callback so that a returned {error} object becomes a
// thrown Error on the JavaScript side.
const throwing = `return function(...args) {
	const r = fn(...args);
	if (r.error !== undefined) {
		const e = new Error(r.error);
		e.kind = r.kind;
		throw e;
	}
	return r.value;
};`

type bridge struct {
	sectors *resource.Table[*sector.Handle]
	scenes  *scene.Decoder
}

func main() {
	cfg := config.Default()
	logger, err := cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	mesh.SetLogger(logger.Named("mesh"))
	sector.SetLogger(logger.Named("sector"))
	scene.SetLogger(logger.Named("scene"))
	if err := alloc.Configure(cfg.AllocConfig()); err != nil {
		panic(err)
	}

	b := &bridge{
		sectors: resource.NewTable[*sector.Handle](),
		scenes:  scene.NewDecoder(scene.I3DF, scene.Renderables, scene.WithMaxSectors(cfg.Limits.MaxSectors)),
	}

	wrap := js.Global().Get("Function").New("fn", throwing)
	funcs := map[string]func(args []js.Value) (any, error){
		"loadCtm":         b.loadCtm,
		"parseRootSector": b.parseRootSector,
		"parseSector":     b.parseSector,
		"convertSector":   b.convertSector,
		"loadI3df":        b.loadI3df,
		"dropSector":      b.dropSector,
	}
	exports := js.Global().Get("Object").New()
	for name, fn := range funcs {
		exports.Set(name, wrap.Invoke(export(fn)))
	}
	js.Global().Set("revealBridge", exports)
	logger.Info("reveal bridge ready", zap.Int("exports", len(funcs)))

	select {}
}

func export(fn func(args []js.Value) (any, error)) js.Func {
	return js.FuncOf(func(_ js.Value, args []js.Value) any {
		v, err := fn(args)
		if err != nil {
			kind := ""
			var e *errors.Error
			if errors.As(err, &e) {
				kind = string(e.Kind)
			}
			return map[string]any{"error": err.Error(), "kind": kind}
		}
		return map[string]any{"value": v}
	})
}

func (b *bridge) loadCtm(args []js.Value) (any, error) {
	data := binaryArg(args, 0)
	out, err := mesh.Decode(data)
	if err != nil {
		return nil, err
	}
	return toJS(out)
}

func (b *bridge) parseRootSector(args []js.Value) (any, error) {
	data := binaryArg(args, 0)
	h, err := sector.DecodeRoot(data)
	if err != nil {
		return nil, err
	}
	return b.insert(h)
}

func (b *bridge) parseSector(args []js.Value) (any, error) {
	token, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	if !b.sectors.Borrow(token) {
		return nil, errors.InvalidHandle(errors.PhaseHost, uint32(token))
	}
	defer b.sectors.ReturnBorrow(token)
	root, _ := b.sectors.Get(token)
	data := binaryArg(args, 1)

	h, err := sector.DecodeChild(root, data)
	if err != nil {
		return nil, err
	}
	return b.insert(h)
}

func (b *bridge) convertSector(args []js.Value) (any, error) {
	token, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	h, ok := b.sectors.Get(token)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseHost, uint32(token))
	}
	return toJS(sector.Convert(h))
}

func (b *bridge) loadI3df(args []js.Value) (any, error) {
	data := binaryArg(args, 0)
	sc, err := b.scenes.Decode(data)
	if err != nil {
		return nil, err
	}
	return toJS(sc)
}

func (b *bridge) dropSector(args []js.Value) (any, error) {
	token, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	if _, err := b.sectors.Remove(token); err != nil {
		return nil, errors.InvalidHandle(errors.PhaseHost, uint32(token))
	}
	return nil, nil
}

func (b *bridge) insert(h *sector.Handle) (any, error) {
	token := b.sectors.Insert(h)
	if token == 0 {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Detail("sector table is full").
			Build()
	}
	return uint32(token), nil
}
