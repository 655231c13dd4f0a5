package station

import (
	"encoding/json"
	"testing"
	"time"

	"evcp/ocpp/availability"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/transactions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Queue, *fakeTransport) {
	t.Helper()
	queue := NewQueue(nil, 16)
	transport := &fakeTransport{connected: true}
	dispatcher := NewDispatcher(queue, transport, testConfig(), nopLogger{})
	return dispatcher, queue, transport
}

func sentAction(t *testing.T, frame []byte) (string, string) {
	t.Helper()
	var fields []interface{}
	require.NoError(t, json.Unmarshal(frame, &fields))
	require.Len(t, fields, 4)
	return fields[1].(string), fields[2].(string)
}

func TestDispatcherBootOnly(t *testing.T) {
	dispatcher, _, transport := newTestDispatcher(t)

	_, err := dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, err)
	assert.Empty(t, transport.sent())

	boot, err := dispatcher.SendCall(provisioning.BootNotificationFeatureName,
		provisioning.NewBootNotificationRequest(provisioning.BootReasonPowerUp, "Yeti", "Pionix"), ClassBoot, "")
	require.NoError(t, err)

	frames := transport.sent()
	require.Len(t, frames, 1)
	uniqueId, action := sentAction(t, frames[0])
	assert.Equal(t, boot.UniqueId, uniqueId)
	assert.Equal(t, provisioning.BootNotificationFeatureName, action)
}

func TestDispatcherSingleInFlight(t *testing.T) {
	dispatcher, _, transport := newTestDispatcher(t)
	dispatcher.SetBootOnly(false)

	first, err := dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, err)
	_, err = dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, err)

	require.Len(t, transport.sent(), 1)

	dispatcher.Resolve(&RawResult{
		UniqueId: first.UniqueId,
		Payload:  map[string]interface{}{"currentTime": "2026-08-30T10:00:00Z"},
	})

	outcome := <-first.Done
	require.NoError(t, outcome.Err)
	response, ok := outcome.Response.(*availability.HeartbeatResponse)
	require.True(t, ok)
	assert.Equal(t, 2026, response.CurrentTime.Year())

	assert.Len(t, transport.sent(), 2)
}

func TestDispatcherPeerErrorIsTerminal(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t)
	dispatcher.SetBootOnly(false)

	call, err := dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, err)

	dispatcher.ResolveError(NewCallError(call.UniqueId, InternalError, "server fault"))

	outcome := <-call.Done
	require.NotNil(t, outcome.CallError)
	assert.Equal(t, InternalError, outcome.CallError.Code)
	assert.Nil(t, outcome.Response)
}

func TestDispatcherOfflineDropsNormal(t *testing.T) {
	dispatcher, queue, _ := newTestDispatcher(t)
	dispatcher.SetBootOnly(false)
	dispatcher.SetOffline(true)

	_, err := dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	assert.Error(t, err)

	_, err = dispatcher.SendCall(transactions.TransactionEventFeatureName, newTransactionEventCall("tx-1").Payload, ClassTransactional, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, 1, queue.PendingTransactional())
}

func TestDispatcherCancelInFlight(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t)
	dispatcher.SetBootOnly(false)

	call, err := dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, err)

	dispatcher.CancelInFlight()

	select {
	case outcome := <-call.Done:
		assert.Error(t, outcome.Err)
	case <-time.After(time.Second):
		t.Fatal("in-flight call was not cancelled")
	}
}

func TestDispatcherSentListener(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t)
	dispatcher.SetBootOnly(false)

	var actions []string
	dispatcher.SetSentListener(func(action string) {
		actions = append(actions, action)
	})

	call, err := dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, err)
	dispatcher.Resolve(&RawResult{
		UniqueId: call.UniqueId,
		Payload:  map[string]interface{}{"currentTime": "2026-08-30T10:00:00Z"},
	})
	<-call.Done

	assert.Equal(t, []string{availability.HeartbeatFeatureName}, actions)
}
