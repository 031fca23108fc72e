package logger

import "sync"

// components holds the loggers handed out by Get, keyed by component name.
var components sync.Map

// DefaultComponents are the component loggers parbuild packages ask for.
var DefaultComponents = []string{"scheduler", "dag", "process", "cli"}

// Register makes Get(name) return l.
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger registered for a component. Unregistered names get
// the Init logger tagged with the component, so packages can call Get at
// construction time before the CLI has configured logging.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	return current().WithComponent(name)
}

// RegisterDefaults re-derives the component loggers from the Init logger,
// for DefaultComponents when no names are given. Call it after Init.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = DefaultComponents
	}
	base := current()
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}
