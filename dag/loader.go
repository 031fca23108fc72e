package dag

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/parbuild/errors"
)

// Loader loads graph definitions by name.
type Loader interface {
	Load(name string) (*Definition, error)
}

// FileLoader loads definitions from {name}.yaml or {name}.yml files.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories,
// including their subdirectories, in order.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

var errFound = stderrors.New("found")

// Load returns the first matching definition. Direct children of a directory
// win over files in its subdirectories.
func (l *FileLoader) Load(name string) (*Definition, error) {
	targets := map[string]bool{name + ".yaml": true, name + ".yml": true}
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		var match string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && targets[d.Name()] {
				match = path
				return errFound
			}
			return nil
		})
		if err != nil && !stderrors.Is(err, errFound) {
			return nil, err
		}
		if match != "" {
			return LoadFile(match)
		}
	}
	return nil, errors.NotFound("graph", name).WithDetail("dirs", l.dirs)
}

// LoadFile parses and validates a definition file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dag: reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a YAML definition; source names it in errors.
func Parse(data []byte, source string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.InvalidGraph("parsing %s", source).WithCause(err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("dag: %s: %w", source, err)
	}
	return &def, nil
}

// CommandBuilder turns subprocess specs into work functions.
type CommandBuilder interface {
	// Command runs one subprocess as the action's work.
	Command(spec CommandSpec) WorkFunc
	// FanOut runs every spec as a sub-task of the action.
	FanOut(specs []CommandSpec) WorkFunc
}

// ResolveOption configures Resolve.
type ResolveOption func(*resolver)

// WithCommands sets the builder used for command and tasks actions.
func WithCommands(b CommandBuilder) ResolveOption {
	return func(r *resolver) { r.commands = b }
}

type resolver struct {
	registry *Registry
	loader   Loader
	commands CommandBuilder

	stack    map[string]bool // current include path
	resolved map[string]bool // definitions already merged
	seen     map[ActionID]bool
	defs     []ActionDef
}

// Resolve converts a definition into an unfrozen Graph. Includes are
// loaded through loader and merged first, recursively; a definition included
// twice (diamond) is merged once, and the first definition of an action id
// wins. Circular includes fail with INVALID_GRAPH.
func Resolve(def *Definition, registry *Registry, loader Loader, opts ...ResolveOption) (*Graph, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	r := &resolver{
		registry: registry,
		loader:   loader,
		stack:    make(map[string]bool),
		resolved: make(map[string]bool),
		seen:     make(map[ActionID]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.collect(def); err != nil {
		return nil, err
	}

	g := NewGraph(def.Name)
	for _, d := range r.defs {
		work, err := r.workFor(d)
		if err != nil {
			return nil, err
		}
		deps := make([]ActionID, len(d.DependsOn))
		for i, dep := range d.DependsOn {
			deps[i] = ActionID(dep)
		}
		a := NewAction(d.ActionID(), work)
		a.Description = d.Description
		if err := g.AddAction(a, deps...); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (r *resolver) collect(def *Definition) error {
	if r.stack[def.Name] {
		return errors.InvalidGraph("circular include of graph %q", def.Name)
	}
	r.stack[def.Name] = true
	defer delete(r.stack, def.Name)

	for _, name := range def.Includes {
		if r.resolved[name] {
			continue
		}
		if r.loader == nil {
			return errors.InvalidGraph("graph %q includes %q but no loader is configured", def.Name, name)
		}
		sub, err := r.loader.Load(name)
		if err != nil {
			return fmt.Errorf("dag: loading include %q: %w", name, err)
		}
		if err := r.collect(sub); err != nil {
			return err
		}
	}

	for _, d := range def.Actions {
		id := d.ActionID()
		if r.seen[id] {
			continue
		}
		r.seen[id] = true
		r.defs = append(r.defs, d)
	}
	r.resolved[def.Name] = true
	return nil
}

func (r *resolver) workFor(d ActionDef) (WorkFunc, error) {
	switch {
	case d.Uses != "":
		if r.registry == nil {
			return nil, errors.NotFound("component", d.Uses)
		}
		work, ok := r.registry.Get(d.Uses)
		if !ok {
			return nil, errors.NotFound("component", d.Uses).WithDetail("action", string(d.ActionID()))
		}
		return work, nil
	case d.Command != nil || len(d.Tasks) > 0:
		if r.commands == nil {
			return nil, errors.InvalidGraph("action %q runs commands but no command builder is configured", d.ActionID())
		}
		if d.Command != nil {
			return r.commands.Command(*d.Command), nil
		}
		return r.commands.FanOut(d.Tasks), nil
	default:
		return nil, errors.InvalidGraph("action %q has no work", d.ActionID())
	}
}
