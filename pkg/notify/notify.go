// Package notify delivers best-effort run notifications (progress, directory
// completion, final summary). Delivery failures are reported to the caller,
// which logs them; they never abort a run.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/mediasync/pkg/logging"
)

// DefaultTimeout bounds a single notification
const DefaultTimeout = 5 * time.Second

// Notifier delivers a single message
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Func adapts a function to Notifier
type Func func(ctx context.Context, message string) error

// Notify calls f
func (f Func) Notify(ctx context.Context, message string) error {
	return f(ctx, message)
}

// Null discards every message
type Null struct{}

// Notify does nothing
func (Null) Notify(context.Context, string) error { return nil }

// LoggerNotifier forwards messages to the application logger at info level
type LoggerNotifier struct {
	logger logging.Logger
}

// NewLoggerNotifier creates a notifier writing to logger
func NewLoggerNotifier(logger logging.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Notify logs the message
func (n *LoggerNotifier) Notify(ctx context.Context, message string) error {
	n.logger.Info(ctx, message, logging.Fields{"component": "notify"})
	return nil
}

// WriterNotifier writes one line per message, e.g. to stderr
type WriterNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

// NewWriterNotifier creates a notifier writing "<prefix><message>\n" to w
func NewWriterNotifier(w io.Writer, prefix string) *WriterNotifier {
	return &WriterNotifier{w: w, prefix: prefix}
}

// Notify writes the message
func (n *WriterNotifier) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "%s%s\n", n.prefix, message)
	return err
}

type timeoutNotifier struct {
	next    Notifier
	timeout time.Duration
}

// WithTimeout bounds every call to next. The returned notifier gives up
// after timeout even if next ignores its context.
func WithTimeout(next Notifier, timeout time.Duration) Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutNotifier{next: next, timeout: timeout}
}

func (n *timeoutNotifier) Notify(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.next.Notify(ctx, message)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("notification timed out after %s: %w", n.timeout, ctx.Err())
	}
}

// Multi fans a message out to several notifiers
type Multi []Notifier

// Notify calls every notifier and joins their errors
func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
