// Package core contains the main struct of the software.
package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"

	"github.com/alecthomas/kong"

	"github.com/bluenviron/ttmlfrag/internal/conf"
	"github.com/bluenviron/ttmlfrag/internal/confwatcher"
	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/remux"
)

var version = "v0.0.0"

var defaultConfPaths = []string{
	"ttmlfrag.yml",
	"/usr/local/etc/ttmlfrag.yml",
	"/usr/etc/ttmlfrag.yml",
	"/etc/ttmlfrag/ttmlfrag.yml",
}

type cliArgs struct {
	Version bool   `help:"print version"`
	Conf    string `help:"path to a config file. The default is ttmlfrag.yml."`
	Watch   bool   `help:"run the job again when the cue file or the config file changes"`
	Input   string `arg:"" optional:"" help:"fragmented MP4 file to read"`
	Cues    string `arg:"" optional:"" help:"YAML cue list to add"`
	Output  string `arg:"" optional:"" help:"fragmented MP4 file to write"`
}

// Core is an instance of ttmlfrag.
type Core struct {
	ctx         context.Context
	ctxCancel   func()
	args        cliArgs
	confPath    string
	conf        *conf.Conf
	logger      *logger.Logger
	confWatcher *confwatcher.ConfWatcher
	failed      bool

	// out
	done chan struct{}
}

// New allocates a Core.
func New(args []string) (*Core, bool) {
	var a cliArgs

	parser, err := kong.New(&a,
		kong.Description("ttmlfrag "+version),
		kong.UsageOnError())
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(args)
	parser.FatalIfErrorf(err)

	if a.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if a.Input == "" || a.Cues == "" || a.Output == "" {
		parser.FatalIfErrorf(fmt.Errorf("expected <input> <cues> <output>"))
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	p := &Core{
		ctx:       ctx,
		ctxCancel: ctxCancel,
		args:      a,
		done:      make(chan struct{}),
	}

	p.conf, p.confPath, err = conf.Load(a.Conf, defaultConfPaths)
	if err != nil {
		fmt.Printf("ERR: %s\n", err)
		return nil, false
	}

	err = p.createResources(true)
	if err != nil {
		if p.logger != nil {
			p.Log(logger.Error, "%s", err)
		} else {
			fmt.Printf("ERR: %s\n", err)
		}
		p.closeResources()
		return nil, false
	}

	go p.run()

	return p, true
}

// Close closes Core and waits for all goroutines to return.
func (p *Core) Close() {
	p.ctxCancel()
	<-p.done
}

// Wait waits for the Core to exit.
func (p *Core) Wait() {
	<-p.done
}

// Failed reports whether the last job run failed.
func (p *Core) Failed() bool {
	return p.failed
}

// Log is the main logging function.
func (p *Core) Log(level logger.Level, format string, args ...interface{}) {
	p.logger.Log(level, format, args...)
}

func (p *Core) startJob() chan error {
	j := &remux.Job{
		Conf:       p.conf,
		InputPath:  p.args.Input,
		CuesPath:   p.args.Cues,
		OutputPath: p.args.Output,
		Parent:     p,
	}

	done := make(chan error, 1)
	go func() {
		done <- j.Run(p.ctx)
	}()
	return done
}

// rerun reloads the configuration and starts the job again.
// It returns nil when the configuration cannot be loaded.
func (p *Core) rerun() chan error {
	p.Log(logger.Info, "running again (file changed)")

	err := p.reloadConf()
	if err != nil {
		p.Log(logger.Error, "%s", err)
		p.Log(logger.Info, "waiting for changes")
		return nil
	}

	return p.startJob()
}

func (p *Core) run() {
	defer close(p.done)

	changed := func() chan struct{} {
		if p.confWatcher != nil {
			return p.confWatcher.Watch()
		}
		return make(chan struct{})
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	jobDone := p.startJob()
	restart := false

outer:
	for {
		select {
		case err := <-jobDone:
			jobDone = nil

			if err != nil {
				p.Log(logger.Error, "%s", err)
				p.failed = true
			} else {
				p.failed = false
			}

			if p.confWatcher == nil {
				break outer
			}

			if restart {
				restart = false
				jobDone = p.rerun()
			} else {
				p.Log(logger.Info, "waiting for changes")
			}

		case <-changed:
			if jobDone != nil {
				restart = true
				continue
			}

			jobDone = p.rerun()

		case <-interrupt:
			p.Log(logger.Info, "shutting down gracefully")
			break outer

		case <-p.ctx.Done():
			break outer
		}
	}

	p.ctxCancel()

	if jobDone != nil {
		<-jobDone
	}

	p.closeResources()
}

func newLogger(c *conf.Conf) (*logger.Logger, error) {
	l := &logger.Logger{
		Level:        logger.Level(c.LogLevel),
		Destinations: c.LogDestinations,
		Structured:   c.LogStructured,
		File:         c.LogFile,
		SysLogPrefix: c.SysLogPrefix,
	}
	err := l.Initialize()
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (p *Core) createResources(initial bool) error {
	if p.logger == nil {
		var err error
		p.logger, err = newLogger(p.conf)
		if err != nil {
			return err
		}
	}

	if initial {
		p.Log(logger.Info, "ttmlfrag %s", version)

		if p.confPath == "" {
			p.Log(logger.Warn, "configuration file not found, using the default configuration")
		}

		if p.args.Watch {
			paths := []string{p.args.Cues}
			if p.confPath != "" {
				paths = append(paths, p.confPath)
			}

			p.confWatcher = &confwatcher.ConfWatcher{FilePaths: paths}
			err := p.confWatcher.Initialize()
			if err != nil {
				p.confWatcher = nil
				return err
			}
		}
	}

	return nil
}

func logConfChanged(a *conf.Conf, b *conf.Conf) bool {
	return a.LogLevel != b.LogLevel ||
		!reflect.DeepEqual(a.LogDestinations, b.LogDestinations) ||
		a.LogStructured != b.LogStructured ||
		a.LogFile != b.LogFile ||
		a.SysLogPrefix != b.SysLogPrefix
}

func (p *Core) reloadConf() error {
	newConf, _, err := conf.Load(p.confPath, nil)
	if err != nil {
		return err
	}

	if logConfChanged(p.conf, newConf) {
		var l *logger.Logger
		l, err = newLogger(newConf)
		if err != nil {
			return err
		}

		p.logger.Close()
		p.logger = l
	}

	p.conf = newConf

	return p.createResources(false)
}

func (p *Core) closeResources() {
	if p.confWatcher != nil {
		p.confWatcher.Close()
		p.confWatcher = nil
	}

	if p.logger != nil {
		p.logger.Close()
		p.logger = nil
	}
}
