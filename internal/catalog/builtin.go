package catalog

import (
	_ "embed"
	"sync"

	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
)

//go:embed builtin.cue
var builtinSource string

// BuiltinSource returns the CUE source of the built-in catalog.
func BuiltinSource() string {
	return builtinSource
}

// Builtin compiles the built-in catalog. Every call returns fresh variants.
func Builtin() ([]registry.FuncDef, error) {
	return CompileString("builtin.cue", builtinSource)
}

var builtinRegistry = sync.OnceValues(func() (*registry.Registry, error) {
	defs, err := Builtin()
	if err != nil {
		return nil, err
	}
	return NewRegistry(defs), nil
})

// BuiltinRegistry returns the registry of the built-in catalog. It is built
// once and shared.
func BuiltinRegistry() (*registry.Registry, error) {
	return builtinRegistry()
}
