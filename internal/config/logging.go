package config

import (
	"io"

	"github.com/google/logger"
)

// InitLogger installs the process logger. Info and warning lines go to out;
// errors go to out and stderr. LOG_VERBOSE raises the V level to 1, which
// adds per-call store traces.
func (c *Config) InitLogger(name string, out io.Writer) *logger.Logger {
	l := logger.Init(name, false, false, out)
	if c.LogVerbose {
		l.SetLevel(1)
	}
	return l
}
