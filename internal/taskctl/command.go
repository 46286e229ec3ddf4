// Package taskctl implements the taskctl command line client.
package taskctl

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"caseworker-tasks/internal/client"
)

// Exit codes.
const (
	Success      = 0
	UserError    = 1
	AuthError    = 2
	BackendError = 3
)

// Env is what a command runs against. Client carries the stored token
// when there is one.
type Env struct {
	Client  *client.Client
	Session *Session
	Dir     string
	Out     io.Writer
	Err     io.Writer
}

func (e *Env) errorf(code int, format string, args ...any) int {
	fmt.Fprintf(e.Err, "error: "+format+"\n", args...)
	return code
}

type Command interface {
	Name() string
	Synopsis() string
	Usage() string
	// NeedsAuth commands fail early when no token is stored.
	NeedsAuth() bool
	RegisterFlags(fs *flag.FlagSet)
	Run(ctx context.Context, env *Env, args []string) int
}

type Registry struct {
	cmds map[string]func() Command
}

func NewRegistry() *Registry { return &Registry{cmds: map[string]func() Command{}} }

// Register takes a constructor so every run gets fresh flag fields.
func (r *Registry) Register(newCmd func() Command) {
	name := newCmd().Name()
	if _, dup := r.cmds[name]; dup {
		panic("taskctl: command registered twice: " + name)
	}
	r.cmds[name] = newCmd
}

func (r *Registry) Find(name string) (Command, bool) {
	f, ok := r.cmds[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

func (r *Registry) All() []Command {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Command, 0, len(names))
	for _, n := range names {
		out = append(out, r.cmds[n]())
	}
	return out
}
