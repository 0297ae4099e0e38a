// Package logging configures the process-wide logrus logger.
//
// Components receive a *logrus.Entry tagged with their component name so
// every line of a provisioning run can be traced back to the layer that
// produced it.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates the root logger. An unparseable level falls back to info.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// Component returns an entry tagged with the given component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
