package blobsync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// Request describes one external program invocation.
type Request struct {
	Name        string
	Arguments   []string
	Environment []string
	// StdoutLine and StderrLine receive the program's output line by line. Nil discards.
	StdoutLine func(line string)
	StderrLine func(line string)
}

// RunFunc executes an external program and returns once it has exited.
// Tests replace the default with a closure to avoid real process execution.
type RunFunc func(ctx context.Context, request Request) error

// ExitCoder is implemented by errors that carry a process exit status (*exec.ExitError does).
type ExitCoder interface {
	ExitCode() int
}

// RunCommand is the default RunFunc. The environment of the current process is inherited and
// extended with request.Environment; stdout and stderr are forwarded concurrently.
func RunCommand(ctx context.Context, request Request) error {
	// #nosec G204
	command := exec.CommandContext(ctx, request.Name, request.Arguments...)
	command.Env = append(os.Environ(), request.Environment...)
	stdoutPipe, stdoutError := command.StdoutPipe()
	if stdoutError != nil {
		return fmt.Errorf("attach stdout of %s: %w", request.Name, stdoutError)
	}
	stderrPipe, stderrError := command.StderrPipe()
	if stderrError != nil {
		return fmt.Errorf("attach stderr of %s: %w", request.Name, stderrError)
	}
	if startError := command.Start(); startError != nil {
		return startError
	}

	var forwarders errgroup.Group
	forwarders.Go(func() error { return forwardLines(stdoutPipe, request.StdoutLine) })
	forwarders.Go(func() error { return forwardLines(stderrPipe, request.StderrLine) })
	forwardError := forwarders.Wait()

	if waitError := command.Wait(); waitError != nil {
		return waitError
	}
	return forwardError
}

func forwardLines(reader io.Reader, consume func(string)) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if consume != nil {
			consume(scanner.Text())
		}
	}
	return scanner.Err()
}
