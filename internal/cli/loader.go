package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/seqscore/internal/compiler"
	"github.com/roach88/seqscore/internal/ir"
)

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeParse        = "E008" // Malformed manifest
	ErrCodeUnknownType  = "E009" // Manifest references an undeclared handle type
	ErrCodeConfig       = "E010" // Invalid configuration
	ErrCodeStore        = "E011" // History database error
	ErrCodeRunCancelled = "E012" // Analysis interrupted

	ErrCodeConformFailed = "E013" // One or more scenarios failed
)

// LoadError represents an error that occurred while loading a manifest.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadModel loads an interface model from a single .cue file or from a
// directory holding one CUE package.
func LoadModel(path string) (*ir.InterfaceModel, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest: %v", err), Err: err}
	}

	if !info.IsDir() {
		model, err := compiler.LoadManifest(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return model, nil
	}

	cueFiles, err := FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Err: err}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err), Err: inst.Err}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), Err: err}
	}

	model, err := compiler.CompileManifest(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return model, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
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
	sort.Strings(files)
	return files, err
}

// loadErrorCode returns the CLI error code carried by err.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

func convertCompileError(err error) *LoadError {
	switch {
	case compiler.IsUnknownHandleType(err):
		return &LoadError{Code: ErrCodeUnknownType, Message: err.Error(), Err: err}
	case compiler.IsParseError(err):
		return &LoadError{Code: ErrCodeParse, Message: err.Error(), Err: err}
	default:
		return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
}
