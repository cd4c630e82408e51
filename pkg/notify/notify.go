package notify

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hivetools/hive/logging"
	"github.com/hivetools/hive/pkg/classify"
)

// Event is one edge-triggered status transition worth telling the user
// about. Only transitions into NeedsInput and Done produce events.
type Event struct {
	Session string
	Status  classify.Status
	// Title is the linked task title, or the session name.
	Title string
}

// Notifier delivers session events. Delivery is best effort; a failed
// notification never fails a refresh.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier records events in the structured log. Always active as
// the fallback channel.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logging.NewLogger("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) {
	n.log.WithFields(logrus.Fields{
		"session": event.Session,
		"status":  event.Status,
		"title":   event.Title,
	}).Info("Session status changed")
}

// commandTimeout caps a notification command that was handed a context
// without a deadline of its own.
const commandTimeout = 10 * time.Second

// CommandNotifier runs a user-configured shell command per event with
// the event details in the environment.
type CommandNotifier struct {
	command string
	log     *logrus.Entry
}

func NewCommandNotifier(command string) *CommandNotifier {
	return &CommandNotifier{
		command: command,
		log:     logging.NewLogger("notify"),
	}
}

func (n *CommandNotifier) Notify(ctx context.Context, event Event) {
	if n.command == "" {
		return
	}

	// Never trust a user command to exit on its own.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, commandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", n.command)
	cmd.Env = append(os.Environ(),
		"HIVE_SESSION="+event.Session,
		"HIVE_STATUS="+string(event.Status),
		"HIVE_TITLE="+event.Title,
	)
	if err := cmd.Run(); err != nil {
		n.log.WithError(err).WithField("session", event.Session).
			Warn("Notification command failed")
	}
}

// Multi fans one event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}
