//go:build !windows

package externalcmd

import (
	"os"
	"os/exec"
)

func (e *Cmd) command() (*exec.Cmd, error) {
	parts, err := e.commandParts()
	if err != nil {
		return nil, err
	}

	return exec.Command(parts[0], parts[1:]...), nil
}

func interrupt(p *os.Process) {
	p.Signal(os.Interrupt) //nolint:errcheck
}
