package station

import (
	"testing"
	"time"

	"evcp/internal/msgstore"
	"evcp/ocpp"
	"evcp/ocpp/availability"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCall(action string, payload ocpp.Request, class MessageClass, transactionId string) *PendingCall {
	return &PendingCall{
		UniqueId:      uuid.NewString(),
		Action:        action,
		Payload:       payload,
		Class:         class,
		TransactionId: transactionId,
		Done:          make(chan CallOutcome, 1),
	}
}

func newTransactionEventCall(transactionId string) *PendingCall {
	request := transactions.NewTransactionEventRequest(
		transactions.TransactionEventStarted,
		types.NewDateTime(time.Now().UTC()),
		transactions.TriggerReasonAuthorized,
		0,
		transactions.Transaction{TransactionId: transactionId},
	)
	return newTestCall(transactions.TransactionEventFeatureName, request, ClassTransactional, transactionId)
}

func TestQueuePriorityOrder(t *testing.T) {
	queue := NewQueue(nil, 16)

	normal := newTestCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	transactional := newTransactionEventCall("tx-1")
	boot := newTestCall(provisioning.BootNotificationFeatureName,
		provisioning.NewBootNotificationRequest(provisioning.BootReasonPowerUp, "Yeti", "Pionix"), ClassBoot, "")

	require.NoError(t, queue.Enqueue(normal, false))
	require.NoError(t, queue.Enqueue(transactional, false))
	require.NoError(t, queue.Enqueue(boot, false))

	assert.Equal(t, boot, queue.Next(false))
	assert.Equal(t, transactional, queue.Next(false))
	assert.Equal(t, normal, queue.Next(false))
	assert.Nil(t, queue.Next(false))
}

func TestQueueBootOnlyGate(t *testing.T) {
	queue := NewQueue(nil, 16)

	transactional := newTransactionEventCall("tx-1")
	require.NoError(t, queue.Enqueue(transactional, false))

	assert.Nil(t, queue.Next(true))

	boot := newTestCall(provisioning.BootNotificationFeatureName,
		provisioning.NewBootNotificationRequest(provisioning.BootReasonPowerUp, "Yeti", "Pionix"), ClassBoot, "")
	require.NoError(t, queue.Enqueue(boot, false))

	assert.Equal(t, boot, queue.Next(true))
	assert.Nil(t, queue.Next(true))
	assert.Equal(t, transactional, queue.Next(false))
}

func TestQueueNormalCapacity(t *testing.T) {
	queue := NewQueue(nil, 2)

	require.NoError(t, queue.Enqueue(newTestCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, ""), false))
	require.NoError(t, queue.Enqueue(newTestCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, ""), false))
	assert.Error(t, queue.Enqueue(newTestCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, ""), false))
}

func TestQueueTransactionLookups(t *testing.T) {
	queue := NewQueue(nil, 16)

	require.NoError(t, queue.Enqueue(newTransactionEventCall("tx-1"), false))
	require.NoError(t, queue.Enqueue(newTransactionEventCall("tx-1"), false))
	require.NoError(t, queue.Enqueue(newTransactionEventCall("tx-2"), false))

	assert.Equal(t, 3, queue.PendingTransactional())
	assert.True(t, queue.HasTransactionMessages("tx-1"))
	assert.False(t, queue.HasTransactionMessages("tx-9"))

	queue.Next(false)
	queue.Next(false)
	assert.False(t, queue.HasTransactionMessages("tx-1"))
	assert.True(t, queue.HasTransactionMessages("tx-2"))
}

func TestQueueDropNormal(t *testing.T) {
	queue := NewQueue(nil, 16)

	normal := newTestCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, ClassNormal, "")
	require.NoError(t, queue.Enqueue(normal, false))

	queue.DropNormal()

	outcome := <-normal.Done
	assert.Error(t, outcome.Err)
	assert.Nil(t, queue.Next(false))
}

func TestQueueRestore(t *testing.T) {
	store, err := msgstore.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	queue := NewQueue(store, 16)
	require.NoError(t, queue.Enqueue(newTransactionEventCall("tx-1"), true))
	require.NoError(t, queue.Enqueue(newTransactionEventCall("tx-2"), true))

	restored := NewQueue(store, 16)
	require.NoError(t, restored.Restore())

	first := restored.Next(false)
	require.NotNil(t, first)
	assert.Equal(t, "tx-1", first.TransactionId)
	request, ok := first.Payload.(*transactions.TransactionEventRequest)
	require.True(t, ok)
	assert.Equal(t, "tx-1", request.TransactionInfo.TransactionId)

	second := restored.Next(false)
	require.NotNil(t, second)
	assert.Equal(t, "tx-2", second.TransactionId)
}
