// Package config holds the interpreter-wide constants and the optional
// per-user rc file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	Version       = "0.1.0"
	SourceFileExt = ".falcon"
	ReplPrompt    = ">>> "
)

// Exit codes are part of the command-line contract
const (
	ExitOK           = 0
	ExitUsageError   = 1
	ExitCompileError = 2
	ExitRuntimeError = 3
	ExitMemoryError  = 4
	ExitOSError      = 5
)

const rcFileName = ".falconrc.yaml"

// RC is the optional per-user configuration read from ~/.falconrc.yaml.
type RC struct {
	Prompt string `yaml:"prompt"`
	GC     struct {
		// Stress runs a full collection before every allocation
		Stress bool `yaml:"stress"`
		// Log traces collection begin/end and byte counts
		Log bool `yaml:"log"`
		// NextMB overrides the first collection threshold, in MiB
		NextMB int `yaml:"next_mb"`
	} `yaml:"gc"`
}

// DefaultRC returns the configuration used when no rc file exists.
func DefaultRC() *RC {
	return &RC{Prompt: ReplPrompt}
}

// LoadRC reads the user's rc file. A missing file or unknown home
// directory is not an error; a malformed file is.
func LoadRC() (*RC, error) {
	rc := DefaultRC()

	home, err := os.UserHomeDir()
	if err != nil {
		return rc, nil
	}

	data, err := os.ReadFile(filepath.Join(home, rcFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rc, nil
		}
		return rc, err
	}

	if err := yaml.Unmarshal(data, rc); err != nil {
		return rc, fmt.Errorf("parsing %s: %w", rcFileName, err)
	}
	if rc.Prompt == "" {
		rc.Prompt = ReplPrompt
	}
	return rc, nil
}
