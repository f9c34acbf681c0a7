package notify

import (
	"fmt"
	"strings"
)

// displayName strips a leading "commander-" so broadcast messages read
// naturally to a human on another channel. Names built by
// model.SessionName ("cmd-<slug>") have no such prefix and pass through
// unchanged.
func displayName(sessionName string) string {
	return strings.TrimPrefix(sessionName, "commander-")
}

// SessionReadyMessage formats a conversational broadcast for a session
// that is now waiting for input, optionally folding in a one-line
// summary of what just happened.
//
// Grounded on commander-telegram/src/notifications.rs's
// notify_session_ready.
func SessionReadyMessage(sessionName, summary string) string {
	name := displayName(sessionName)
	summary = strings.TrimSpace(summary)
	var msg string
	if summary == "" {
		msg = fmt.Sprintf("Session %q is ready for input", name)
	} else {
		msg = fmt.Sprintf("Session %q is ready: %s", name, summary)
	}
	return msg + fmt.Sprintf("\n\n/connect %s", name)
}

// SessionResumedMessage formats a conversational broadcast for a
// session that just resumed work after being idle.
func SessionResumedMessage(sessionName string) string {
	return fmt.Sprintf("Session %q resumed work", displayName(sessionName))
}

// WaitingSession is one entry in a SessionsWaitingMessage summary.
type WaitingSession struct {
	Name    string
	Summary string
}

// SessionsWaitingMessage formats a single broadcast covering several
// sessions that are all waiting for input at once, so a busy operator
// gets one notification instead of one per session.
func SessionsWaitingMessage(sessions []WaitingSession) string {
	if len(sessions) == 0 {
		return ""
	}

	var b strings.Builder
	if len(sessions) == 1 {
		b.WriteString("A session is waiting for your input:")
	} else {
		fmt.Fprintf(&b, "%d sessions are waiting for your input:", len(sessions))
	}

	connect := make([]string, 0, len(sessions))
	for _, s := range sessions {
		name := displayName(s.Name)
		if strings.TrimSpace(s.Summary) == "" {
			fmt.Fprintf(&b, "\n  - %q", name)
		} else {
			fmt.Fprintf(&b, "\n  - %q: %s", name, s.Summary)
		}
		connect = append(connect, fmt.Sprintf("/connect %s", name))
	}

	b.WriteString("\n\nChat with: ")
	b.WriteString(strings.Join(connect, " | "))
	return b.String()
}
