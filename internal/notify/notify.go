// Package notify is the toast/OS-notification collaborator boundary.
package notify

import "log"

// Cue distinguishes the audible cues for incoming vs self-sent messages.
type Cue string

const (
	CueIncoming Cue = "incoming"
	CueSent     Cue = "sent"
)

// Notifier renders user-facing notifications. All calls are fire-and-forget.
type Notifier interface {
	// Toast shows an in-app toast.
	Toast(title, body string)
	// OSNotify shows an OS-level notification if permission was granted.
	OSNotify(title, body string)
	// PlayCue plays an audible cue.
	PlayCue(cue Cue)
	// SetBadge publishes the process-wide unread badge.
	SetBadge(count int)
}

// LogNotifier is the headless default; it writes notifications to the log.
type LogNotifier struct {
	// OSGranted caches the OS notification permission for the session.
	OSGranted bool
}

func NewLogNotifier(osGranted bool) *LogNotifier {
	return &LogNotifier{OSGranted: osGranted}
}

func (n *LogNotifier) Toast(title, body string) {
	log.Printf("toast: %s: %s", title, body)
}

func (n *LogNotifier) OSNotify(title, body string) {
	if !n.OSGranted {
		return
	}
	log.Printf("notification: %s: %s", title, body)
}

func (n *LogNotifier) PlayCue(cue Cue) {
	log.Printf("cue: %s", cue)
}

func (n *LogNotifier) SetBadge(count int) {
	log.Printf("badge: %d", count)
}
