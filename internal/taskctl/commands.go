package taskctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"caseworker-tasks/internal/client"
	"caseworker-tasks/internal/domain"
)

// Commands returns a registry holding every taskctl command.
func Commands() *Registry {
	r := NewRegistry()
	r.Register(func() Command { return &registerCmd{} })
	r.Register(func() Command { return &loginCmd{} })
	r.Register(func() Command { return &logoutCmd{} })
	r.Register(func() Command { return &profileCmd{} })
	r.Register(func() Command { return &listCmd{} })
	r.Register(func() Command { return &addCmd{} })
	r.Register(func() Command { return &editCmd{} })
	r.Register(func() Command { return &rmCmd{} })
	r.Register(func() Command { return &statsCmd{} })
	for _, s := range statusCmds {
		r.Register(func() Command { c := s; return &c })
	}
	return r
}

// optString remembers whether the flag was given, so "" can mean clear.
type optString struct {
	set bool
	v   string
}

func (o *optString) String() string { return o.v }
func (o *optString) Set(s string) error {
	o.set, o.v = true, s
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.v
	return &v
}

// apiFailure maps a client error to a message and exit code.
func apiFailure(env *Env, err error) int {
	var ae *client.APIError
	if !errors.As(err, &ae) {
		return env.errorf(BackendError, "%v", err)
	}
	switch {
	case ae.Status == http.StatusUnauthorized:
		return env.errorf(AuthError, "%s (run: taskctl login)", ae.Message)
	case ae.Status >= http.StatusInternalServerError:
		return env.errorf(BackendError, "%s", ae.Message)
	}
	msg := ae.Message
	for _, d := range ae.Details {
		msg += "\n  " + d.Field + ": " + d.Message
	}
	return env.errorf(UserError, "%s", msg)
}

const refPageSize = 100

// resolveRef turns a list number into a task id. Anything else is taken
// as an id. Numbers follow the unfiltered list order.
func resolveRef(ctx context.Context, env *Env, args []string) (string, int) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", env.errorf(UserError, "task reference required")
	}
	ref := strings.TrimSpace(args[0])
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, Success
	}
	if n < 1 {
		return "", env.errorf(UserError, "task number out of range: %d", n)
	}
	page, err := env.Client.ListTasks(ctx, client.ListQuery{Page: (n-1)/refPageSize + 1, Limit: refPageSize})
	if err != nil {
		return "", apiFailure(env, err)
	}
	i := (n - 1) % refPageSize
	if i >= len(page.Tasks) {
		return "", env.errorf(UserError, "task number out of range: %d", n)
	}
	return page.Tasks[i].ID, Success
}

func saveLogin(env *Env, res *client.AuthResult) int {
	env.Session.Token = res.Token
	env.Session.Email = res.User.Email
	if err := env.Session.Save(env.Dir); err != nil {
		return env.errorf(AuthError, "%v", err)
	}
	return Success
}

type registerCmd struct {
	name, email, password, role string
}

func (c *registerCmd) Name() string     { return "register" }
func (c *registerCmd) Synopsis() string { return "Create an account and log in" }
func (c *registerCmd) Usage() string {
	return "taskctl register --name NAME --email EMAIL --password PASSWORD [--role ROLE]"
}
func (c *registerCmd) NeedsAuth() bool { return false }

func (c *registerCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.role, "role", "", "")
}

func (c *registerCmd) Run(ctx context.Context, env *Env, _ []string) int {
	if c.email == "" || c.password == "" || c.name == "" {
		return env.errorf(UserError, "usage: %s", c.Usage())
	}
	res, err := env.Client.Register(ctx, client.Registration{
		Name: c.name, Email: c.email, Password: c.password, Role: domain.Role(c.role),
	})
	if err != nil {
		return apiFailure(env, err)
	}
	if code := saveLogin(env, res); code != Success {
		return code
	}
	fmt.Fprintf(env.Out, "registered %s (%s)\n", res.User.Email, res.User.Role)
	return Success
}

type loginCmd struct {
	email, password string
}

func (c *loginCmd) Name() string     { return "login" }
func (c *loginCmd) Synopsis() string { return "Log in and store the token" }
func (c *loginCmd) Usage() string    { return "taskctl login --email EMAIL --password PASSWORD" }
func (c *loginCmd) NeedsAuth() bool  { return false }

func (c *loginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *loginCmd) Run(ctx context.Context, env *Env, _ []string) int {
	if c.email == "" || c.password == "" {
		return env.errorf(UserError, "usage: %s", c.Usage())
	}
	res, err := env.Client.Login(ctx, c.email, c.password)
	if err != nil {
		return apiFailure(env, err)
	}
	if code := saveLogin(env, res); code != Success {
		return code
	}
	fmt.Fprintf(env.Out, "logged in as %s\n", res.User.Email)
	return Success
}

type logoutCmd struct{}

func (c *logoutCmd) Name() string                 { return "logout" }
func (c *logoutCmd) Synopsis() string             { return "Forget the stored token" }
func (c *logoutCmd) Usage() string                { return "taskctl logout" }
func (c *logoutCmd) NeedsAuth() bool              { return false }
func (c *logoutCmd) RegisterFlags(*flag.FlagSet) {}

func (c *logoutCmd) Run(_ context.Context, env *Env, _ []string) int {
	removed, err := RemoveSession(env.Dir)
	if err != nil {
		return env.errorf(AuthError, "%v", err)
	}
	if !removed {
		fmt.Fprintln(env.Out, "not logged in")
		return Success
	}
	fmt.Fprintln(env.Out, "ok")
	return Success
}

type profileCmd struct {
	name, email optString
}

func (c *profileCmd) Name() string     { return "profile" }
func (c *profileCmd) Synopsis() string { return "Show or update your profile" }
func (c *profileCmd) Usage() string    { return "taskctl profile [--name NAME] [--email EMAIL]" }
func (c *profileCmd) NeedsAuth() bool  { return true }

func (c *profileCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.name, "name", "")
	fs.Var(&c.email, "email", "")
}

func (c *profileCmd) Run(ctx context.Context, env *Env, _ []string) int {
	var (
		u   *domain.PublicUser
		err error
	)
	if c.name.set || c.email.set {
		u, err = env.Client.UpdateProfile(ctx, client.ProfileUpdate{Name: c.name.ptr(), Email: c.email.ptr()})
	} else {
		u, err = env.Client.Profile(ctx)
	}
	if err != nil {
		return apiFailure(env, err)
	}
	if c.email.set && u.Email != env.Session.Email {
		env.Session.Email = u.Email
		_ = env.Session.Save(env.Dir)
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", u.ID)
	fmt.Fprintf(tw, "name\t%s\n", u.Name)
	fmt.Fprintf(tw, "email\t%s\n", u.Email)
	fmt.Fprintf(tw, "role\t%s\n", u.Role)
	fmt.Fprintf(tw, "since\t%s\n", u.CreatedAt.Format(time.DateOnly))
	_ = tw.Flush()
	return Success
}

type listCmd struct {
	status      string
	page, limit int
}

func (c *listCmd) Name() string     { return "list" }
func (c *listCmd) Synopsis() string { return "List your tasks" }
func (c *listCmd) Usage() string {
	return "taskctl list [--status STATUS] [--page N] [--limit N]"
}
func (c *listCmd) NeedsAuth() bool { return true }

func (c *listCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.IntVar(&c.page, "page", 1, "")
	fs.IntVar(&c.limit, "limit", client.DefaultPageSize, "")
}

func (c *listCmd) Run(ctx context.Context, env *Env, _ []string) int {
	q := client.ListQuery{Page: c.page, Limit: c.limit, Status: domain.TaskStatus(strings.ToUpper(c.status))}
	page, err := env.Client.ListTasks(ctx, q)
	if err != nil {
		return apiFailure(env, err)
	}
	if len(page.Tasks) == 0 {
		fmt.Fprintln(env.Out, "no tasks")
		return Success
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSTATUS\tDUE\tTITLE")
	first := (page.Pagination.Page - 1) * page.Pagination.Limit
	for i, t := range page.Tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", first+i+1, shortID(t.ID), t.Status, due, t.Title)
	}
	_ = tw.Flush()
	fmt.Fprintf(env.Out, "page %d of %d, %d tasks\n", page.Pagination.Page, page.Pagination.Pages, page.Pagination.Total)
	return Success
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type addCmd struct {
	desc, due, status string
}

func (c *addCmd) Name() string     { return "add" }
func (c *addCmd) Synopsis() string { return "Create a task" }
func (c *addCmd) Usage() string {
	return "taskctl add [--desc TEXT] [--due DATE] [--status STATUS] <title...>"
}
func (c *addCmd) NeedsAuth() bool { return true }

func (c *addCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *addCmd) Run(ctx context.Context, env *Env, args []string) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return env.errorf(UserError, "title required")
	}
	in := client.NewTask{Title: title, Status: domain.TaskStatus(strings.ToUpper(c.status))}
	if d := strings.TrimSpace(c.desc); d != "" {
		in.Description = &d
	}
	if c.due != "" {
		in.DueDate = &c.due
	}
	t, err := env.Client.CreateTask(ctx, in)
	if err != nil {
		return apiFailure(env, err)
	}
	fmt.Fprintf(env.Out, "created %s\n", t.ID)
	return Success
}

type editCmd struct {
	title, desc, due optString
}

func (c *editCmd) Name() string     { return "edit" }
func (c *editCmd) Synopsis() string { return "Change a task's title, description or due date" }
func (c *editCmd) Usage() string {
	return `taskctl edit [--title T] [--desc D] [--due DATE|""] <id|number>`
}
func (c *editCmd) NeedsAuth() bool { return true }

func (c *editCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&c.title, "title", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.due, "due", "")
}

func (c *editCmd) Run(ctx context.Context, env *Env, args []string) int {
	if !c.title.set && !c.desc.set && !c.due.set {
		return env.errorf(UserError, "nothing to change")
	}
	id, code := resolveRef(ctx, env, args)
	if code != Success {
		return code
	}
	t, err := env.Client.UpdateTask(ctx, id, client.TaskUpdate{
		Title:       c.title.ptr(),
		Description: c.desc.ptr(),
		DueDate:     c.due.ptr(),
	})
	if err != nil {
		return apiFailure(env, err)
	}
	fmt.Fprintf(env.Out, "updated %s\n", t.ID)
	return Success
}

type rmCmd struct{}

func (c *rmCmd) Name() string                 { return "rm" }
func (c *rmCmd) Synopsis() string             { return "Delete a task" }
func (c *rmCmd) Usage() string                { return "taskctl rm <id|number>" }
func (c *rmCmd) NeedsAuth() bool              { return true }
func (c *rmCmd) RegisterFlags(*flag.FlagSet) {}

func (c *rmCmd) Run(ctx context.Context, env *Env, args []string) int {
	id, code := resolveRef(ctx, env, args)
	if code != Success {
		return code
	}
	if err := env.Client.DeleteTask(ctx, id); err != nil {
		return apiFailure(env, err)
	}
	fmt.Fprintln(env.Out, "deleted")
	return Success
}

type statsCmd struct{}

func (c *statsCmd) Name() string                 { return "stats" }
func (c *statsCmd) Synopsis() string             { return "Count your tasks by status" }
func (c *statsCmd) Usage() string                { return "taskctl stats" }
func (c *statsCmd) NeedsAuth() bool              { return true }
func (c *statsCmd) RegisterFlags(*flag.FlagSet) {}

func (c *statsCmd) Run(ctx context.Context, env *Env, _ []string) int {
	st, err := env.Client.Stats(ctx)
	if err != nil {
		return apiFailure(env, err)
	}
	tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "total\t%d\t\n", st.Total)
	fmt.Fprintf(tw, "pending\t%d\t\n", st.Pending)
	fmt.Fprintf(tw, "in progress\t%d\t\n", st.InProgress)
	fmt.Fprintf(tw, "completed\t%d\t\n", st.Completed)
	fmt.Fprintf(tw, "cancelled\t%d\t\n", st.Cancelled)
	_ = tw.Flush()
	return Success
}

// statusCmd moves a task to one fixed status.
type statusCmd struct {
	name, synopsis string
	to             domain.TaskStatus
}

var statusCmds = []statusCmd{
	{"start", "Mark a task in progress", domain.TaskInProgress},
	{"done", "Mark a task completed", domain.TaskCompleted},
	{"cancel", "Cancel a task", domain.TaskCancelled},
	{"reopen", "Move a task back to pending", domain.TaskPending},
}

// verbs maps a status to the command that reaches it.
var verbs = map[domain.TaskStatus]string{
	domain.TaskInProgress: "start",
	domain.TaskCompleted:  "done",
	domain.TaskCancelled:  "cancel",
	domain.TaskPending:    "reopen",
}

func (c *statusCmd) Name() string                 { return c.name }
func (c *statusCmd) Synopsis() string             { return c.synopsis }
func (c *statusCmd) Usage() string                { return "taskctl " + c.name + " <id|number>" }
func (c *statusCmd) NeedsAuth() bool              { return true }
func (c *statusCmd) RegisterFlags(*flag.FlagSet) {}

func (c *statusCmd) Run(ctx context.Context, env *Env, args []string) int {
	id, code := resolveRef(ctx, env, args)
	if code != Success {
		return code
	}
	cur, err := env.Client.GetTask(ctx, id)
	if err != nil {
		return apiFailure(env, err)
	}
	if cur.Status == c.to {
		return env.errorf(UserError, "task is already %s", c.to)
	}
	t, err := env.Client.UpdateTask(ctx, id, client.TaskUpdate{Status: &c.to})
	if err != nil {
		return apiFailure(env, err)
	}
	fmt.Fprintf(env.Out, "%s %s\n", shortID(t.ID), t.Status)
	if next := t.Status.NextActions(); len(next) > 0 {
		names := make([]string, 0, len(next))
		for _, s := range next {
			names = append(names, verbs[s])
		}
		fmt.Fprintf(env.Out, "next: %s\n", strings.Join(names, ", "))
	}
	return Success
}
