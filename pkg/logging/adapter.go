package logging

import (
	"strings"
)

// StderrSink returns a callback that forwards each stderr line of a server
// process to logger at debug level. Lines are diagnostics only and are
// never interpreted.
func StderrSink(logger Logger, server string) func(line string) {
	l := logger.WithFields(
		String("component", "server_stderr"),
		String("server", server),
	)
	return func(line string) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return
		}
		l.Debug(line)
	}
}
