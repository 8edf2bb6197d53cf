package changes

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-lessons/internal/lessons"
)

type fakeRunner struct {
	output []byte
	err    error
	block  bool
	dir    string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	f.dir = dir
	f.args = args
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.output, f.err
}

func TestReporterPublishesChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{output: []byte("A\tintro/hello.md\nM\tintro/new.md\nM\tassets/logo.png\n")}
	resolve := func(topic, lesson string) (lessons.Record, bool) {
		if topic == "intro" && lesson == "hello" {
			return lessons.Record{Title: "Hello", URL: "/courses/intro/hello"}, true
		}
		return lessons.Record{}, false
	}
	fixed := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
	reporter := NewReporter(Config{Enabled: true, Dir: "content"},
		WithRunner(runner), WithResolver(resolve), WithClock(func() time.Time { return fixed }))

	if !reporter.Snapshot().Pending() {
		t.Fatal("expected pending snapshot before start")
	}

	reporter.Start(context.Background())
	snap, err := reporter.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}

	if snap.State != StateReady || !snap.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	want := []Change{
		{Kind: KindAdded, Title: "Hello", URL: "/courses/intro/hello", Topic: "intro", Lesson: "hello"},
		{Kind: KindModified, Title: "new", URL: "/courses/intro/new", Topic: "intro", Lesson: "new"},
	}
	if len(snap.Changes) != len(want) {
		t.Fatalf("expected %d changes, got %#v", len(want), snap.Changes)
	}
	for i := range want {
		if snap.Changes[i] != want[i] {
			t.Fatalf("change %d: expected %#v, got %#v", i, want[i], snap.Changes[i])
		}
	}
	if runner.dir != "content" || len(runner.args) == 0 || runner.args[0] != "log" {
		t.Fatalf("unexpected git invocation dir=%q args=%v", runner.dir, runner.args)
	}
}

func TestReporterFailureYieldsEmptyList(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewReporter(Config{Enabled: true}, WithRunner(&fakeRunner{err: errors.New("not a git repository")}))
	reporter.Start(context.Background())

	snap, err := reporter.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if snap.State != StateFailed || snap.Changes == nil || len(snap.Changes) != 0 {
		t.Fatalf("expected failed snapshot with empty list, got %#v", snap)
	}
}

func TestReporterTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewReporter(Config{Enabled: true, Timeout: 10 * time.Millisecond}, WithRunner(&fakeRunner{block: true}))
	reporter.Start(context.Background())

	snap, err := reporter.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if snap.State != StateFailed {
		t.Fatalf("expected timeout to fail the query, got %#v", snap)
	}
}

func TestReporterAwaitBoundedByContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	reporter := NewReporter(Config{Enabled: true}, WithRunner(&fakeRunner{block: true}))
	reporter.Start(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	snap, err := reporter.Await(waitCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !snap.Pending() {
		t.Fatalf("expected pending snapshot, got %#v", snap)
	}

	cancel()
	<-reporter.Done()
}

func TestReporterDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{err: errors.New("should not run")}
	reporter := NewReporter(Config{Enabled: false}, WithRunner(runner))
	reporter.Start(context.Background())
	reporter.Start(context.Background())

	snap, err := reporter.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if snap.State != StateReady || len(snap.Changes) != 0 || runner.args != nil {
		t.Fatalf("expected ready empty snapshot without running git, got %#v", snap)
	}
}

func TestReporterWithGitCheckout(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	defer goleak.VerifyNone(t)

	repo := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		full := append([]string{"-c", "user.name=Test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}, args...)
		cmd := exec.Command("git", full...)
		cmd.Dir = repo
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(rel, data string) {
		t.Helper()
		target := filepath.Join(repo, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(target, []byte(data), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	git("init", "-q")
	write("content/intro/hello.md", "---\ntitle: Hello\n---\n")
	git("add", ".")
	git("commit", "-q", "-m", "first")
	write("content/intro/hello.md", "---\ntitle: Hello again\n---\n")
	write("content/intro/second.md", "---\ntitle: Second\n---\n")
	write("README.md", "outside content")
	git("add", ".")
	git("commit", "-q", "-m", "second")

	reporter := NewReporter(Config{Enabled: true, Dir: filepath.Join(repo, "content"), Timeout: 10 * time.Second})
	reporter.Start(context.Background())
	snap, err := reporter.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if snap.State != StateReady {
		t.Fatalf("expected ready snapshot, got %#v", snap)
	}

	kinds := map[string]Kind{}
	for _, change := range snap.Changes {
		kinds[change.URL] = change.Kind
	}
	if kinds["/courses/intro/hello"] != KindModified || kinds["/courses/intro/second"] != KindAdded || len(kinds) != 2 {
		t.Fatalf("unexpected changes %#v", snap.Changes)
	}
}

func TestReporterOutsideCheckoutFails(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	reporter := NewReporter(Config{Enabled: true, Dir: dir, Timeout: 10 * time.Second})
	reporter.Start(context.Background())

	snap, _ := reporter.Await(context.Background())
	if snap.State != StateFailed || len(snap.Changes) != 0 {
		t.Fatalf("expected failed snapshot outside a checkout, got %#v", snap)
	}
}
