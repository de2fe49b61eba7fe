// Package manifest handles loxy.toml project configuration.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a loxy.toml configuration file.
type Manifest struct {
	VM   VMConfig   `toml:"vm"`
	REPL REPLConfig `toml:"repl"`

	// Dir is the directory containing the loxy.toml file (set at load time).
	Dir string `toml:"-"`
}

type VMConfig struct {
	// GCThreshold overrides the initial collection threshold, in bytes.
	GCThreshold int `toml:"gc-threshold"`

	// Trace logs each executed instruction at debug level.
	Trace bool `toml:"trace"`

	// DumpCode disassembles every chunk after compilation.
	DumpCode bool `toml:"dump-code"`
}

type REPLConfig struct {
	// History is the path of the REPL history file.
	History string `toml:"history"`
}

// Default returns the configuration used when no loxy.toml exists.
func Default() *Manifest {
	return &Manifest{
		REPL: REPLConfig{History: defaultHistoryPath()},
	}
}

// Load parses a loxy.toml file from the given directory. A missing file is
// not an error: the defaults are returned.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "loxy.toml")

	m := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m, nil
	}

	if _, err := toml.DecodeFile(path, m); err != nil {
		return nil, err
	}

	m.Dir = dir
	if m.REPL.History == "" {
		m.REPL.History = defaultHistoryPath()
	}
	return m, nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".loxy_history"
	}
	return filepath.Join(home, ".loxy_history")
}
