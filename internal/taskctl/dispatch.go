package taskctl

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"caseworker-tasks/internal/client"
)

// Dispatcher parses the command line and runs one command.
type Dispatcher struct {
	reg *Registry
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg, Getenv: os.Getenv}
}

// Run returns the process exit code. With no arguments it lists tasks.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		args = []string{"list"}
	}
	name := args[0]
	switch name {
	case "help", "-h", "--help":
		d.help(out)
		return Success
	}
	if strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return UserError
	}
	cmd, ok := d.reg.Find(name)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return UserError
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var server, dir string
	fs.StringVar(&server, "server", "", "")
	fs.StringVar(&dir, "config", "", "")
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(errOut, "error: %v\nusage: %s\n", err, cmd.Usage())
		return UserError
	}

	if dir == "" {
		def, err := DefaultDir()
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return UserError
		}
		dir = def
	}
	sess, err := LoadSession(dir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return AuthError
	}
	if server == "" {
		server = d.getenv("TASKCTL_SERVER")
	}
	if server == "" {
		server = sess.Server
	}
	if server == "" {
		server = client.DefaultBaseURL
	}
	if cmd.NeedsAuth() && sess.Token == "" {
		fmt.Fprintln(errOut, "error: not logged in (run: taskctl login)")
		return AuthError
	}

	env := &Env{
		Client:  client.New(server, client.WithToken(sess.Token)),
		Session: sess,
		Dir:     dir,
		Out:     out,
		Err:     errOut,
	}
	env.Session.Server = server
	return cmd.Run(ctx, env, fs.Args())
}

func (d *Dispatcher) getenv(k string) string {
	if d.Getenv == nil {
		return os.Getenv(k)
	}
	return d.Getenv(k)
}

func (d *Dispatcher) help(out io.Writer) {
	fmt.Fprintln(out, "Usage: taskctl <command> [--server URL] [--config DIR] [flags] [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range d.reg.All() {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name(), c.Synopsis())
	}
	_ = tw.Flush()
}
