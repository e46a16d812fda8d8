// Package trace provides the structured logging sink threaded through the
// engine as an explicit dependency rather than a package-level DEBUG flag.
package trace

import "github.com/sirupsen/logrus"

// Sink is the logging surface every engine component takes at construction
// instead of reading a package-level flag.
type Sink interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithFields(fields logrus.Fields) Sink
}

type logrusSink struct {
	entry *logrus.Entry
}

// New wraps logger as a Sink. A nil logger falls back to logrus's
// package-level standard logger.
func New(logger *logrus.Logger) Sink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &logrusSink{entry: logrus.NewEntry(logger)}
}

func (s *logrusSink) Debugf(format string, args ...interface{}) { s.entry.Debugf(format, args...) }
func (s *logrusSink) Infof(format string, args ...interface{})  { s.entry.Infof(format, args...) }
func (s *logrusSink) Warnf(format string, args ...interface{})  { s.entry.Warnf(format, args...) }
func (s *logrusSink) Errorf(format string, args ...interface{}) { s.entry.Errorf(format, args...) }

func (s *logrusSink) WithFields(fields logrus.Fields) Sink {
	return &logrusSink{entry: s.entry.WithFields(fields)}
}

type discardSink struct{}

func (discardSink) Debugf(string, ...interface{})      {}
func (discardSink) Infof(string, ...interface{})       {}
func (discardSink) Warnf(string, ...interface{})       {}
func (discardSink) Errorf(string, ...interface{})      {}
func (d discardSink) WithFields(logrus.Fields) Sink    { return d }

// Discard returns a Sink that drops everything; used by tests and by
// callers that don't want protocol chatter logged.
func Discard() Sink { return discardSink{} }
