// Package logger builds the application loggers.
package logger

import (
	"fmt"
	"io"
	"os"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// New returns a key-value logger writing to w. With debug set the debug
// level passes the filter; otherwise only info and error do.
func New(debug bool, w io.Writer) cmtlog.Logger {
	l := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(w))
	if debug {
		return cmtlog.NewFilter(l, cmtlog.AllowDebug())
	}
	return cmtlog.NewFilter(l, cmtlog.AllowInfo())
}

// NewFile returns a logger appending to path, for processes whose terminal
// is owned by the TUI. The caller closes the returned file; on open failure
// the logger falls back to stderr and the file is nil.
func NewFile(debug bool, path string) (cmtlog.Logger, *os.File) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open %s, logging to stderr: %v\n", path, err)
		return New(debug, os.Stderr), nil
	}
	return New(debug, f), f
}
