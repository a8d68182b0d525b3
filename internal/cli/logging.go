package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the console logger of a command. Output is colored
// when w is a terminal.
func NewLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, invalidInvocationf("invalid log level %q", level)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})
	return logger, nil
}
