package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventRegisterRejectsDuplicates(t *testing.T) {
	listener := new(int)
	noop := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }

	require.True(t, EventRegister(EVENT_CODE_BATCH_STARTED, listener, noop))
	defer EventUnregister(EVENT_CODE_BATCH_STARTED, listener)

	require.False(t, EventRegister(EVENT_CODE_BATCH_STARTED, listener, noop))
	require.False(t, EventRegister(MAX_EVENT_CODE, listener, noop))
	require.False(t, EventRegister(EVENT_CODE_BATCH_STARTED, new(int), nil))
}

func TestEventFireStopsAtHandler(t *testing.T) {
	first, second := new(int), new(int)
	var calls []string

	require.True(t, EventRegister(EVENT_CODE_EXPORT_FAILED, first, func(_ SystemEventCode, _ interface{}, _ interface{}, data EventContext) bool {
		calls = append(calls, "first:"+data.Title)
		return true
	}))
	require.True(t, EventRegister(EVENT_CODE_EXPORT_FAILED, second, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		calls = append(calls, "second")
		return false
	}))

	require.True(t, EventFire(EVENT_CODE_EXPORT_FAILED, nil, EventContext{Title: "Invalid Export"}))
	require.Equal(t, []string{"first:Invalid Export"}, calls)

	require.True(t, EventUnregister(EVENT_CODE_EXPORT_FAILED, first))
	require.False(t, EventUnregister(EVENT_CODE_EXPORT_FAILED, first))

	require.False(t, EventFire(EVENT_CODE_EXPORT_FAILED, nil, EventContext{}))
	require.Equal(t, []string{"first:Invalid Export", "second"}, calls)

	require.True(t, EventUnregister(EVENT_CODE_EXPORT_FAILED, second))
}

func TestEventFireWithoutListeners(t *testing.T) {
	require.False(t, EventFire(EVENT_CODE_RECEIVER_MESSAGE, nil, EventContext{Message: "Animation_InvalidArmature"}))
}
