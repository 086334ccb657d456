// Package process starts and controls the consumer process.
package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a running consumer executable. Its stdin and stdout carry the
// framed bridge transport; stderr is passed through to the parent so consumer
// logs cannot corrupt the frame stream.
type Process struct {
	cmd          *exec.Cmd
	stdinWriter  *io.PipeWriter
	stdoutReader *io.PipeReader
}

// Fork starts the executable at path with the given arguments.
func Fork(path string, args ...string) (*Process, error) {
	cmd := exec.Command(path, args...)

	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()
	cmd.Stdin = stdinReader
	cmd.Stdout = stdoutWriter
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	return &Process{
		cmd:          cmd,
		stdinWriter:  stdinWriter,
		stdoutReader: stdoutReader,
	}, nil
}

// Stdin returns the writer feeding the process's standard input.
func (p *Process) Stdin() *io.PipeWriter {
	return p.stdinWriter
}

// Stdout returns the reader attached to the process's standard output.
func (p *Process) Stdout() *io.PipeReader {
	return p.stdoutReader
}

// Wait blocks until the process exits.
func (p *Process) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("process exited with error: %w", err)
	}
	return nil
}

// Close tears down the pipes and kills the process if it is still running.
func (p *Process) Close() error {
	var errs []error

	if err := p.stdinWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close stdin writer: %w", err))
	}
	if err := p.stdoutReader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close stdout reader: %w", err))
	}
	if p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil && p.cmd.ProcessState == nil {
			errs = append(errs, fmt.Errorf("failed to kill process: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
