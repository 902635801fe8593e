//go:build !windows
// +build !windows

package logger

import (
	"io"
	native "log/syslog"
)

type sysLog struct {
	inner *native.Writer
}

func newSysLog(prefix string) (io.WriteCloser, error) {
	inner, err := native.New(native.LOG_INFO|native.LOG_DAEMON, prefix)
	if err != nil {
		return nil, err
	}

	return &sysLog{
		inner: inner,
	}, nil
}

func (ls *sysLog) Close() error {
	return ls.inner.Close()
}

func (ls *sysLog) Write(p []byte) (int, error) {
	return ls.inner.Write(p)
}
