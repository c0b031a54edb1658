// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package media

import (
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner abstracts external tool invocation so tests can substitute
// canned output for the real binary.
type CommandRunner interface {
	// Run executes the named tool with args, honoring ctx cancellation,
	// and returns combined stdout. A non-zero exit is returned as an
	// error that includes captured stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath reports whether the named tool is on the host PATH.
	LookPath(name string) error
}

// execRunner is the production CommandRunner backed by os/exec.
type execRunner struct{}

// NewExecRunner returns a CommandRunner that shells out for real.
func NewExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), string(exitErr.Stderr))
		}
		return nil, err
	}
	return out, nil
}

func (execRunner) LookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}
