//go:build windows

package externalcmd

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
)

func (e *Cmd) command() (*exec.Cmd, error) {
	// On Windows, processes receive the whole command line as a single string and do their own parsing.
	// cmd.exe has its own unquoting algorithm, therefore the command line is passed verbatim.
	if strings.HasPrefix(e.cmdstr, "cmd ") || strings.HasPrefix(e.cmdstr, "cmd.exe ") {
		args := strings.TrimPrefix(strings.TrimPrefix(e.cmdstr, "cmd "), "cmd.exe ")

		cmd := exec.Command("cmd.exe")
		cmd.SysProcAttr = &syscall.SysProcAttr{
			CmdLine: args,
		}
		return cmd, nil
	}

	parts, err := e.commandParts()
	if err != nil {
		return nil, err
	}

	return exec.Command(parts[0], parts[1:]...), nil
}

func interrupt(p *os.Process) {
	p.Kill() //nolint:errcheck
}
