package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one invocation made against the Fake runner.
type Call struct {
	Name        string
	Args        []string
	Dir         string
	Interactive bool
}

// String renders the call the way it would appear on a shell line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// FakeResponse scripts the outcome of a matching invocation.
type FakeResponse struct {
	Result Result
	Err    error
}

// Fake is a scripted Runner for tests. Responses are keyed by command
// name; unscripted commands succeed with empty output. PATH lookups
// succeed only for names registered with AddPath.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]FakeResponse
	path      map[string]string
}

// NewFake creates an empty fake runner.
func NewFake() *Fake {
	return &Fake{
		responses: make(map[string]FakeResponse),
		path:      make(map[string]string),
	}
}

// Script sets the response for all invocations of the named command.
func (f *Fake) Script(name string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = resp
}

// AddPath registers an executable name as present on PATH.
func (f *Fake) AddPath(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.path[name] = "/usr/bin/" + name
}

// Calls returns a copy of every recorded invocation.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CalledWith reports whether any recorded invocation starts with the
// given command name and arguments.
func (f *Fake) CalledWith(name string, args ...string) bool {
	for _, c := range f.Calls() {
		if c.Name != name || len(c.Args) < len(args) {
			continue
		}
		match := true
		for i, a := range args {
			if c.Args[i] != a {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (f *Fake) record(c Call) FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.responses[c.Name]
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) (Result, error) {
	resp := f.record(Call{Name: name, Args: args})
	return resp.Result, resp.Err
}

func (f *Fake) RunInDir(ctx context.Context, dir, name string, args ...string) (Result, error) {
	resp := f.record(Call{Name: name, Args: args, Dir: dir})
	return resp.Result, resp.Err
}

func (f *Fake) RunInteractive(ctx context.Context, name string, args ...string) error {
	resp := f.record(Call{Name: name, Args: args, Interactive: true})
	return resp.Err
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.path[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}
