// Package dispatch executes stage commands through the shell, streaming
// child output and keeping a bounded tail of it for failure reporting.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"runvariant/internal/logging"
)

// tailLines bounds how much child output a StageError carries.
const tailLines = 20

// Command is one shell invocation labeled with its stage name.
type Command struct {
	Stage string
	Shell string
}

// Result records one finished (or aborted) stage.
type Result struct {
	Stage    string
	ExitCode int
	Duration time.Duration
}

// StageError reports a stage whose process exited non-zero. ExitCode is
// the child's exit status and Tail holds its last output lines.
type StageError struct {
	Stage    string
	ExitCode int
	Tail     string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s exited with code %d", e.Stage, e.ExitCode)
}

// Executor runs stage commands sequentially through the shell. Zero-value
// fields fall back to /bin/bash and the process's own streams.
type Executor struct {
	Shell  string
	Stdout io.Writer
	Stderr io.Writer

	log *slog.Logger
}

// NewExecutor returns an executor wired to bash and the current process's
// stdout and stderr.
func NewExecutor() *Executor {
	return &Executor{
		Shell:  "/bin/bash",
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		log:    logging.New("dispatch"),
	}
}

// Run executes one stage command and blocks until the child exits. The
// child's stdout and stderr stream through to the executor's writers while
// the last lines are retained for error reporting.
func (e *Executor) Run(ctx context.Context, c Command) (Result, error) {
	log := e.logger()
	log.Info("running stage command", "stage", c.Stage, "command", c.Shell)
	start := time.Now()

	cmd := exec.CommandContext(ctx, e.shell(), "-c", c.Shell)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Stage: c.Stage, ExitCode: -1}, fmt.Errorf("stage %s: stdout pipe: %w", c.Stage, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{Stage: c.Stage, ExitCode: -1}, fmt.Errorf("stage %s: stderr pipe: %w", c.Stage, err)
	}

	if err := cmd.Start(); err != nil {
		return Result{Stage: c.Stage, ExitCode: -1}, fmt.Errorf("stage %s: start %s: %w", c.Stage, e.shell(), err)
	}

	// Both pipes must be drained before Wait closes them.
	tail := newTailBuffer(tailLines)
	var g errgroup.Group
	g.Go(func() error { return pump(stdout, e.stdout(), tail) })
	g.Go(func() error { return pump(stderr, e.stderr(), tail) })
	pumpErr := g.Wait()

	waitErr := cmd.Wait()
	duration := time.Since(start)
	res := Result{Stage: c.Stage, ExitCode: 0, Duration: duration}

	if waitErr != nil {
		res.ExitCode = -1
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("stage %s interrupted: %w", c.Stage, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			serr := &StageError{Stage: c.Stage, ExitCode: res.ExitCode, Tail: tail.String()}
			log.Error("stage failed", "stage", c.Stage, "exit_code", serr.ExitCode,
				"duration", duration.String(), "output_tail", serr.Tail)
			return res, serr
		}
		return res, fmt.Errorf("stage %s: %w", c.Stage, waitErr)
	}
	if pumpErr != nil {
		// The child exited cleanly; a broken output stream on our side is
		// not a stage failure.
		log.Warn("stage output streaming interrupted", "stage", c.Stage, "error", pumpErr)
	}

	log.Info("stage completed", "stage", c.Stage, "duration", duration.String())
	return res, nil
}

// RunSequence executes commands in order, stopping at the first failure.
// Results for every started stage are returned, the failed one included.
func (e *Executor) RunSequence(ctx context.Context, cmds []Command) ([]Result, error) {
	results := make([]Result, 0, len(cmds))
	for _, c := range cmds {
		res, err := e.Run(ctx, c)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (e *Executor) shell() string {
	if e.Shell == "" {
		return "/bin/bash"
	}
	return e.Shell
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr == nil {
		return os.Stderr
	}
	return e.Stderr
}

func (e *Executor) logger() *slog.Logger {
	if e.log == nil {
		e.log = logging.New("dispatch")
	}
	return e.log
}

// pump copies child output through to w while the tail captures its last
// lines. The pipe is always read to EOF, whatever the stream contains or
// how w behaves: a child blocked writing an abandoned pipe would never
// exit, and Run would never return.
func pump(r io.Reader, w io.Writer, tail *tailBuffer) error {
	lw := newLineWriter(tail)
	_, err := io.Copy(io.MultiWriter(w, lw), r)
	if err != nil {
		// w failed mid-stream; keep the tail capture and drain to EOF.
		_, _ = io.Copy(lw, r)
	}
	lw.flush()
	return err
}
