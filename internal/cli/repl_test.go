package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Whoami(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) List(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "list")
	f.args = args
	return nil
}
func (f *fakeExec) Search(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "search")
	f.args = args
	return nil
}
func (f *fakeExec) Show(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "show")
	f.args = args
	return nil
}
func (f *fakeExec) Category(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "category")
	f.args = args
	return nil
}
func (f *fakeExec) Fav(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "fav")
	f.args = args
	return nil
}
func (f *fakeExec) Unfav(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "unfav")
	f.args = args
	return nil
}
func (f *fakeExec) Favs(ctx context.Context) error {
	f.calls = append(f.calls, "favs")
	return nil
}

func silencePrintln(t *testing.T) {
	t.Helper()
	orig := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = orig })
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silencePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"list",
		"search ember",
		"show 25",
		"fav 25",
		"favs",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{loggedIn: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"login", "list", "search", "show", "fav", "favs"}
	if len(exec.calls) < len(wantOrder) {
		t.Fatalf("few calls: %+v", exec.calls)
	}
	idx := 0
	for _, c := range exec.calls {
		if idx < len(wantOrder) && c == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("commands order mismatch: got %v, want subseq %v", exec.calls, wantOrder)
	}
}

func TestRunREPL_ArgsArePassedThrough(t *testing.T) {
	silencePrintln(t)

	input := strings.NewReader("category grassland 20\nquit\n")
	exec := &fakeExec{loggedIn: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 1 || exec.calls[0] != "category" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	if len(exec.args) != 2 || exec.args[0] != "grassland" || exec.args[1] != "20" {
		t.Fatalf("unexpected args: %v", exec.args)
	}
}

func TestRunREPL_EmptyLineAndQuit(t *testing.T) {
	silencePrintln(t)

	input := strings.NewReader("\n\nquit\n")
	exec := &fakeExec{loggedIn: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
