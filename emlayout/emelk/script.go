package emelk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dop251/goja"

	"oss.terrastruct.com/xdefer"
)

// ScriptEngine runs a JavaScript layout bundle in an embedded VM. The bundle
// must define a global synchronous function layout(graph) returning the laid
// out graph. The VM is created once and reused for every call.
type ScriptEngine struct {
	mu sync.Mutex
	vm *goja.Runtime
}

func NewScriptEngine(src string) (_ *ScriptEngine, err error) {
	defer xdefer.Errorf(&err, "failed to load layout script")

	vm := goja.New()
	console, err := newConsole(vm)
	if err != nil {
		return nil, err
	}
	if err := vm.Set("console", console); err != nil {
		return nil, err
	}

	if _, err := vm.RunString(src); err != nil {
		return nil, err
	}
	ok, err := vm.RunString(`typeof layout === "function"`)
	if err != nil {
		return nil, err
	}
	if !ok.ToBoolean() {
		return nil, fmt.Errorf("script does not define layout(graph)")
	}

	return &ScriptEngine{vm: vm}, nil
}

func (e *ScriptEngine) Layout(ctx context.Context, g *Graph) (_ *Graph, err error) {
	defer xdefer.Errorf(&err, "layout script failed")

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	// The watcher must be fully stopped before clearing, or an in-flight
	// interrupt could poison the next call on the reused VM.
	defer func() {
		close(done)
		<-watcher
		e.vm.ClearInterrupt()
	}()

	if _, err := e.vm.RunString(fmt.Sprintf("var graph = %s", raw)); err != nil {
		return nil, err
	}
	val, err := e.vm.RunString(`JSON.stringify(layout(graph))`)
	if err != nil {
		return nil, err
	}

	var out Graph
	if err := json.Unmarshal([]byte(val.String()), &out); err != nil {
		return nil, fmt.Errorf("bad script output: %w", err)
	}
	return &out, nil
}

func newConsole(vm *goja.Runtime) (*goja.Object, error) {
	console := vm.NewObject()

	err := console.Set("log", vm.ToValue(func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		fmt.Fprintln(os.Stderr, args...)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	err = console.Set("error", vm.ToValue(func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		fmt.Fprintln(os.Stderr, args...)
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return console, nil
}
