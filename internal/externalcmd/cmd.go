// Package externalcmd allows to launch external commands.
package externalcmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
)

var errTerminated = errors.New("terminated")

// Environment is a Cmd environment.
type Environment map[string]string

// Pool is a pool of external commands.
type Pool struct {
	wg sync.WaitGroup
}

// Close waits for all external commands to exit.
func (p *Pool) Close() {
	p.wg.Wait()
}

// Cmd is an external command.
type Cmd struct {
	pool   *Pool
	cmdstr string
	env    Environment
	onExit func(error)

	// in
	terminate chan struct{}
}

// NewCmd allocates a Cmd and starts it.
// onExit is called once the command has exited.
func NewCmd(
	pool *Pool,
	cmdstr string,
	env Environment,
	onExit func(error),
) *Cmd {
	// replace variables in both Linux and Windows, in order to allow using the
	// same commands on both of them.
	for key, val := range env {
		cmdstr = strings.ReplaceAll(cmdstr, "$"+key, val)
	}

	e := &Cmd{
		pool:      pool,
		cmdstr:    cmdstr,
		env:       env,
		onExit:    onExit,
		terminate: make(chan struct{}),
	}

	pool.wg.Add(1)

	go e.run()

	return e
}

// Close terminates the command. It doesn't wait for the command to exit.
func (e *Cmd) Close() {
	close(e.terminate)
}

func (e *Cmd) run() {
	defer e.pool.wg.Done()

	env := append([]string(nil), os.Environ()...)
	for key, val := range e.env {
		env = append(env, key+"="+val)
	}

	e.onExit(e.runInner(env))
}

func (e *Cmd) runInner(env []string) error {
	cmd, err := e.command()
	if err != nil {
		return err
	}

	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Start()
	if err != nil {
		return err
	}

	cmdDone := make(chan error)
	go func() {
		cmdDone <- cmd.Wait()
	}()

	select {
	case <-e.terminate:
		interrupt(cmd.Process)
		<-cmdDone
		return errTerminated

	case err := <-cmdDone:
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return fmt.Errorf("command exited with code %d", ee.ExitCode())
		}
		return err
	}
}

func (e *Cmd) commandParts() ([]string, error) {
	parts, err := shellquote.Split(e.cmdstr)
	if err != nil {
		return nil, err
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	return parts, nil
}
