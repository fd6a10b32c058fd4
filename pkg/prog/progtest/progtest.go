// Package progtest runs a prog.Program with given arguments and checks its
// exit status and output.
package progtest

import (
	"io"
	"os"
	"strings"
	"testing"

	"src.mwls.dev/pkg/prog"
)

// Case is a test case for Test.
type Case struct {
	args     []string
	stdin    string
	exit     int
	checkOut func(string) bool
	wantOut  string
	checkErr func(string) bool
	wantErr  string
}

// ThatMwls returns a Case that runs the program with the given arguments.
func ThatMwls(args ...string) Case { return Case{args: args} }

// WithStdin returns an altered Case that feeds the given text to stdin.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// ExitsWith returns an altered Case that requires the exit status.
func (c Case) ExitsWith(exit int) Case {
	c.exit = exit
	return c
}

// DoesNothing returns an altered Case that requires no output.
func (c Case) DoesNothing() Case {
	return c.WritesStdout("").WritesStderr("")
}

// WritesStdout returns an altered Case that requires the exact stdout.
func (c Case) WritesStdout(s string) Case {
	c.checkOut, c.wantOut = func(out string) bool { return out == s }, s
	return c
}

// WritesStdoutContaining returns an altered Case that requires stdout to
// contain s.
func (c Case) WritesStdoutContaining(s string) Case {
	c.checkOut = func(out string) bool { return strings.Contains(out, s) }
	c.wantOut = "containing " + s
	return c
}

// WritesStderr returns an altered Case that requires the exact stderr.
func (c Case) WritesStderr(s string) Case {
	c.checkErr, c.wantErr = func(out string) bool { return out == s }, s
	return c
}

// WritesStderrContaining returns an altered Case that requires stderr to
// contain s.
func (c Case) WritesStderrContaining(s string) Case {
	c.checkErr = func(out string) bool { return strings.Contains(out, s) }
	c.wantErr = "containing " + s
	return c
}

// Test runs p for each case and checks the results.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Helper()
			exit, stdout, stderr := Run(t, p, c.stdin, c.args...)
			if exit != c.exit {
				t.Errorf("got exit %d, want %d", exit, c.exit)
			}
			if c.checkOut != nil && !c.checkOut(stdout) {
				t.Errorf("got stdout %q, want %q", stdout, c.wantOut)
			}
			if c.checkErr != nil && !c.checkErr(stderr) {
				t.Errorf("got stderr %q, want %q", stderr, c.wantErr)
			}
		})
	}
}

// Run runs p with the given stdin and arguments, and returns its exit status,
// stdout and stderr.
func Run(t *testing.T, p prog.Program, stdin string, args ...string) (int, string, string) {
	t.Helper()
	r0, w0 := pipe(t)
	r1, w1 := pipe(t)
	r2, w2 := pipe(t)
	go func() {
		io.WriteString(w0, stdin)
		w0.Close()
	}()
	outCh, errCh := readAllAsync(r1), readAllAsync(r2)

	exit := prog.Run([3]*os.File{r0, w1, w2}, append([]string{"mwls"}, args...), p)
	w1.Close()
	w2.Close()
	r0.Close()
	return exit, <-outCh, <-errCh
}

func pipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	return r, w
}

func readAllAsync(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(r)
		r.Close()
		ch <- string(b)
	}()
	return ch
}
