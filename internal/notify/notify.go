// Package notify delivers application completion and failure events.
package notify

import (
	"context"
	"log"
	"strings"

	"github.com/jonathan/exam-automation/internal/types"
)

// LogNotifier writes events to the standard logger. It is the default when no
// broker is configured.
type LogNotifier struct{}

// Notify logs the event. It never fails.
func (LogNotifier) Notify(_ context.Context, e types.ApplicationEvent) error {
	session := "-"
	if e.SessionID != nil {
		session = *e.SessionID
	}
	log.Printf("[notify] Application %s for exam %s is %s (session %s), recipients: %s",
		e.ApplicationID, e.ExamSlug, e.Status, session, strings.Join(e.Recipients, ", "))
	return nil
}
