package dag

import (
	"fmt"
	"strings"

	"github.com/kbukum/parbuild/errors"
	"github.com/kbukum/parbuild/validation"
)

// Definition is a graph described in YAML.
//
//	name: std
//	includes: [runtime]
//	actions:
//	  - id: compile:fmt
//	    depends_on: [compile:runtime]
//	    command: {binary: go, args: [tool, compile, ./fmt]}
//	  - id: cgo:net
//	    tasks:
//	      - {binary: cc, args: [-c, a.c]}
//	      - {binary: cc, args: [-c, b.c]}
//	  - uses: link
//	    depends_on: [compile:fmt, cgo:net]
type Definition struct {
	// Name is the graph identifier; includes refer to it.
	Name string `yaml:"name"`
	// Description is shown by plan output.
	Description string `yaml:"description,omitempty"`
	// Includes lists other definitions whose actions are merged in first.
	Includes []string `yaml:"includes,omitempty"`
	// Actions defines the graph's own actions.
	Actions []ActionDef `yaml:"actions"`
}

// ActionDef defines one action. Exactly one of Uses, Command or Tasks is set.
type ActionDef struct {
	// ID defaults to Uses when empty.
	ID          string   `yaml:"id,omitempty"`
	Description string   `yaml:"description,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	// Uses names a registry component.
	Uses string `yaml:"uses,omitempty"`
	// Command runs a single subprocess.
	Command *CommandSpec `yaml:"command,omitempty"`
	// Tasks run as parallel sub-tasks through the pool.
	Tasks []CommandSpec `yaml:"tasks,omitempty"`
}

// CommandSpec describes a subprocess.
type CommandSpec struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args,omitempty"`
	Dir    string   `yaml:"dir,omitempty"`
	Env    []string `yaml:"env,omitempty"`
}

func (c CommandSpec) String() string {
	return strings.TrimSpace(c.Binary + " " + strings.Join(c.Args, " "))
}

// ActionID returns the effective id of the definition.
func (d ActionDef) ActionID() ActionID {
	if d.ID != "" {
		return ActionID(d.ID)
	}
	return ActionID(d.Uses)
}

// Validate checks the definition's own fields. Dependencies and cycles are
// checked when the resolved graph is frozen.
func (d *Definition) Validate() error {
	v := validation.NewFor(errors.ErrCodeInvalidGraph)
	v.Required("name", d.Name)

	ids := make([]string, 0, len(d.Actions))
	for i, a := range d.Actions {
		field := fmt.Sprintf("actions[%d]", i)
		id := string(a.ActionID())
		v.Required(field+".id", id).Pattern(field+".id", id, validation.ActionIDPattern)
		v.Unique(field+".depends_on", a.DependsOn)

		kinds := 0
		if a.Uses != "" {
			kinds++
		}
		if a.Command != nil {
			kinds++
			v.Required(field+".command.binary", a.Command.Binary)
		}
		if len(a.Tasks) > 0 {
			kinds++
			for j, t := range a.Tasks {
				v.Required(fmt.Sprintf("%s.tasks[%d].binary", field, j), t.Binary)
			}
		}
		v.Custom(kinds == 1, field, "exactly one of uses, command or tasks is required")
		ids = append(ids, id)
	}
	v.Unique("actions.id", ids)
	return v.Err()
}
