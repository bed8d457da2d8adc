package core

import "sync"

// System internal event codes.
type SystemEventCode int

const (
	// A batch started. Context: BatchID, Target, Count.
	EVENT_CODE_BATCH_STARTED SystemEventCode = 0x01
	// A batch finished successfully. Context: BatchID, Target, Count.
	EVENT_CODE_BATCH_COMPLETED SystemEventCode = 0x02
	// A user visible failure. Context: Title, Message.
	EVENT_CODE_EXPORT_FAILED SystemEventCode = 0x03
	// A receiver replied with a named command instead of a probe answer. Context: Message.
	EVENT_CODE_RECEIVER_MESSAGE SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	BatchID BatchID
	Target  string
	Title   string
	Message string
	Count   int
}

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

var eventMutex sync.RWMutex
var registered = map[SystemEventCode][]*registeredEvent{}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code <= 0 || code >= MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	eventMutex.Lock()
	defer eventMutex.Unlock()

	for _, e := range registered[code] {
		if e.listener == listener {
			return false
		}
	}
	registered[code] = append(registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister the listener from the provided code. Returns false if no
 * matching registration is found.
 */
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	eventMutex.Lock()
	defer eventMutex.Unlock()

	events := registered[code]
	for i, e := range events {
		if e.listener == listener {
			registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	eventMutex.RLock()
	events := append([]*registeredEvent(nil), registered[code]...)
	eventMutex.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}
