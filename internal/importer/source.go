package importer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture is one game file. Its YAML layout is:
//
//	game:
//	  id: 0b6b4c1e-...        # optional; makes re-imports idempotent
//	  name: Friday League
//	  location: Sunset Lanes
//	  date: 2025-06-20T18:00:00Z
//	  created_by: desk@example.com
//	  active: false
//	  players:
//	    - name: Ana
//	      rolls: [10, 7, 3, 9, 0]
type Fixture struct {
	Game GameSpec `yaml:"game"`
	// Path is the file the fixture was read from.
	Path string `yaml:"-"`
}

// GameSpec holds a game's metadata and each player's rolls in bowling order.
type GameSpec struct {
	ID        string       `yaml:"id,omitempty"`
	Name      string       `yaml:"name"`
	Location  string       `yaml:"location,omitempty"`
	Date      time.Time    `yaml:"date,omitempty"`
	CreatedBy string       `yaml:"created_by,omitempty"`
	Active    *bool        `yaml:"active,omitempty"`
	Players   []PlayerSpec `yaml:"players"`
}

// PlayerSpec is one bowler's name and the pins of every roll, first to last.
type PlayerSpec struct {
	Name  string `yaml:"name"`
	Rolls []int  `yaml:"rolls,omitempty"`
}

// Source loads fixtures from a file or directory.
//
// Postcondition: returns the fixtures in a stable order, or a non-nil error.
type Source interface {
	Load(path string) ([]*Fixture, error)
}

// ParseFixture parses one fixture file.
//
// Precondition: data must be valid YAML.
// Postcondition: returns a non-nil Fixture or a non-nil error.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

// FileSource reads *.yaml and *.yml fixtures from a directory, or a single
// fixture file.
type FileSource struct{}

// NewFileSource returns a FileSource.
func NewFileSource() *FileSource { return &FileSource{} }

// Load implements Source. Directory entries are read in name order and
// subdirectories are ignored.
func (FileSource) Load(path string) ([]*Fixture, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", path, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fixture files in %s", path)
	}

	fixtures := make([]*Fixture, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		f, err := ParseFixture(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		f.Path = file
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}
