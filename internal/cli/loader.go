package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/datalens-tech/datalens-backend-sub013/internal/catalog"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
)

// LoadMode controls how errors are handled while loading a catalog.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every definition and reports all errors.
	LoadModeCollectAll
)

func (m LoadMode) catalogMode() catalog.Mode {
	if m == LoadModeCollectAll {
		return catalog.CollectAll
	}
	return catalog.FailFast
}

// LoadResult is a catalog directory compiled into definitions.
type LoadResult struct {
	Defs      []registry.FuncDef
	CUEValue  cue.Value
	FileCount int
}

// Variants counts the variants of every definition.
func (r *LoadResult) Variants() int {
	n := 0
	for _, def := range r.Defs {
		n += len(def.Variants)
	}
	return n
}

// LoadError is a catalog loading problem with its CLI error code.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalog loads the CUE package in dir and compiles it into registry
// definitions.
//
// A nil result means the directory could not be loaded at all; the single
// error says why. Otherwise the result holds every definition that compiled
// and the errors list the ones that did not.
func LoadCatalog(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}
	defs, compileErrs := catalog.Compile(value, mode.catalogMode())
	result.Defs = defs

	errs := make([]error, 0, len(compileErrs))
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err))
	}
	return result, errs
}

// LoadRegistry returns the registry for dir, or the built-in registry when
// dir is empty.
func LoadRegistry(dir string) (*registry.Registry, error) {
	if dir == "" {
		reg, err := catalog.BuiltinRegistry()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("built-in catalog: %v", err)}
		}
		return reg, nil
	}
	result, errs := LoadCatalog(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return catalog.NewRegistry(result.Defs), nil
}

func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertCompileError(err error) *LoadError {
	var compileErr *catalog.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error codes shared by all commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // Database or file write error

	// Catalog errors
	ErrCodeEmptyCatalog   = "E101" // No functions, window functions or operators
	ErrCodeSchema         = "E102" // Value does not match the catalog schema
	ErrCodeNoVariants     = "E103" // Definition without variants
	ErrCodeInvalidPattern = "E104" // Bad args, alternatives or for_all
	ErrCodeInvalidDialect = "E105" // Bad dialect label or template
	ErrCodeInvalidReturn  = "E106" // Bad return rule
	ErrCodeInvalidScope   = "E107" // Unknown scope name

	// Scenario errors
	ErrCodeScenarioLoad = "E201" // Scenario file is malformed
	ErrCodeScenarioRun  = "E202" // Scenario could not be executed
	ErrCodeScenarioFail = "E203" // Scenario expectations did not match
)

// MapFieldToErrorCode maps a catalog error field to an error code.
// Fields look like "function.sum.variants[0].dialects.ANY".
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "catalog":
		return ErrCodeEmptyCatalog
	case field == "cue":
		return ErrCodeSchema
	case strings.HasSuffix(field, ".scopes"):
		return ErrCodeInvalidScope
	case strings.HasSuffix(field, ".return"):
		return ErrCodeInvalidReturn
	case strings.Contains(field, ".dialects"):
		return ErrCodeInvalidDialect
	case strings.Contains(field, ".variants["):
		return ErrCodeInvalidPattern
	case strings.Count(field, ".") == 1:
		return ErrCodeNoVariants
	default:
		return ErrCodeGeneric
	}
}
