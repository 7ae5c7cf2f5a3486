package scheduling

import (
	"github.com/charmbracelet/log"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(err error)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier backed by logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(msg string) { n.logger.Info(msg) }

func (n *LogNotifier) Info(msg string) { n.logger.Info(msg) }

func (n *LogNotifier) Error(err error) { n.logger.Error(err.Error()) }
