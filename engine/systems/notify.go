package systems

import "github.com/spaghettifunk/anima/engine/core"

/** @brief Surfaces batch level failures to the user. */
type Notifier interface {
	NotifyFailure(title string, message string)
}

// LogNotifier reports failures through the logger only.
type LogNotifier struct{}

func (LogNotifier) NotifyFailure(title string, message string) {
	core.LogError("%s: %s", title, message)
}

// EventNotifier logs the failure and fires EVENT_CODE_EXPORT_FAILED so
// front ends can show it.
type EventNotifier struct {
	Batch core.BatchID
}

func (n EventNotifier) NotifyFailure(title string, message string) {
	core.LogError("%s: %s", title, message)
	core.EventFire(core.EVENT_CODE_EXPORT_FAILED, n, core.EventContext{
		BatchID: n.Batch,
		Title:   title,
		Message: message,
	})
}
