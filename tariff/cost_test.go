package tariff

import (
	"sync"
	"testing"

	"evcp/ocpp/metervalues"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	requests []*metervalues.MeterValuesRequest
	txIds    []string
}

func (f *fakeSender) SendMeterValues(request *metervalues.MeterValuesRequest, transactionId string) {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.txIds = append(f.txIds, transactionId)
	f.mu.Unlock()
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestTracker() (*CostTracker, *fakeSender) {
	sender := &fakeSender{}
	return NewCostTracker(newFakeSettings(), sender, nopLogger{}), sender
}

func floatPtr(v float64) *float64 { return &v }

func TestTotalCostFromResponse(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{TotalCost: floatPtr(2.5)})

	total, ok := tracker.RunningCost("tx-1")
	require.True(t, ok)
	assert.Equal(t, 2.5, total)
}

func TestRunningCostFromCustomData(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{CustomData: map[string]interface{}{
			"runningCost": map[string]interface{}{"cost": 3.75, "currency": "EUR"},
		}})

	total, ok := tracker.RunningCost("tx-1")
	require.True(t, ok)
	assert.Equal(t, 3.75, total)
}

func TestFinalCostDropsTracking(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{CustomData: map[string]interface{}{
			"finalCost": map[string]interface{}{"cost": 5.0, "currency": "EUR"},
		}})

	_, ok := tracker.RunningCost("tx-1")
	assert.False(t, ok)
}

func TestEndedEventDropsTracking(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{TotalCost: floatPtr(1.0)})
	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventEnded,
		&transactions.TransactionEventResponse{TotalCost: floatPtr(4.2)})

	_, ok := tracker.RunningCost("tx-1")
	assert.False(t, ok)
}

func TestResponseWithoutCostIgnored(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{})

	_, ok := tracker.RunningCost("tx-1")
	assert.False(t, ok)
}

func TestOnCostUpdated(t *testing.T) {
	tracker, _ := newTestTracker()

	require.True(t, tracker.OnCostUpdated("tx-1", 7.25))
	total, ok := tracker.RunningCost("tx-1")
	require.True(t, ok)
	assert.Equal(t, 7.25, total)
}

func TestTriggerMeterValueKeepsTotal(t *testing.T) {
	tracker, _ := newTestTracker()

	require.True(t, tracker.OnCostUpdated("tx-1", 2.0))
	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{CustomData: map[string]interface{}{
			"runningCost": map[string]interface{}{
				"triggerMeterValue": map[string]interface{}{"atEnergykWh": []interface{}{5.0}},
			},
		}})

	// a trigger-only chunk must not zero the running total
	total, ok := tracker.RunningCost("tx-1")
	require.True(t, ok)
	assert.Equal(t, 2.0, total)
}

func TestObserveEnergyTrigger(t *testing.T) {
	tracker, sender := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{CustomData: map[string]interface{}{
			"runningCost": map[string]interface{}{
				"cost":              1.5,
				"triggerMeterValue": map[string]interface{}{"atEnergykWh": 5.0},
			},
		}})

	tracker.Observe(1, "tx-1", 4000, 0)
	assert.Equal(t, 0, sender.count())

	tracker.Observe(1, "tx-1", 5200, 0)
	require.Equal(t, 1, sender.count())

	// the threshold fires once
	tracker.Observe(1, "tx-1", 5300, 0)
	assert.Equal(t, 1, sender.count())

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "tx-1", sender.txIds[0])
	request := sender.requests[0]
	assert.Equal(t, 1, request.EvseId)
	require.Len(t, request.MeterValue, 1)
	require.Len(t, request.MeterValue[0].SampledValue, 2)
	assert.Equal(t, types.MeasurandEnergyActiveImportRegister, request.MeterValue[0].SampledValue[0].Measurand)
	assert.Equal(t, 5200.0, request.MeterValue[0].SampledValue[0].Value)
}

func TestObservePowerTriggerCrossing(t *testing.T) {
	tracker, sender := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{CustomData: map[string]interface{}{
			"runningCost": map[string]interface{}{
				"cost":              0.5,
				"triggerMeterValue": map[string]interface{}{"atPowerkW": 0.05},
			},
		}})

	tracker.Observe(1, "tx-1", 0, 30)
	assert.Equal(t, 0, sender.count())

	// crossing the 50 W threshold upward
	tracker.Observe(1, "tx-1", 0, 80)
	require.Equal(t, 1, sender.count())

	// staying above does not fire again
	tracker.Observe(1, "tx-1", 0, 90)
	assert.Equal(t, 1, sender.count())

	// crossing back down does
	tracker.Observe(1, "tx-1", 0, 20)
	assert.Equal(t, 2, sender.count())
}

func TestObserveTimeTrigger(t *testing.T) {
	tracker, sender := newTestTracker()

	tracker.OnTransactionEvent(1, "tx-1", transactions.TransactionEventUpdated,
		&transactions.TransactionEventResponse{CustomData: map[string]interface{}{
			"runningCost": map[string]interface{}{
				"cost":              0.5,
				"triggerMeterValue": map[string]interface{}{"atTime": "2020-01-01T00:00:00Z"},
			},
		}})

	tracker.Observe(1, "tx-1", 100, 0)
	require.Equal(t, 1, sender.count())

	tracker.Observe(1, "tx-1", 200, 0)
	assert.Equal(t, 1, sender.count())
}

func TestPowerChangedHysteresis(t *testing.T) {
	tracker, sender := newTestTracker()

	// first swing from zero clears the 100 W floor
	tracker.PowerChanged(1, "tx-1", 11000)
	require.Equal(t, 1, sender.count())

	// within 10% of the last reported level, nothing goes out
	tracker.PowerChanged(1, "tx-1", 11500)
	assert.Equal(t, 1, sender.count())

	tracker.PowerChanged(1, "tx-1", 7000)
	require.Equal(t, 2, sender.count())

	sender.mu.Lock()
	defer sender.mu.Unlock()
	request := sender.requests[1]
	assert.Equal(t, 1, request.EvseId)
	require.Len(t, request.MeterValue, 1)
	sampled := request.MeterValue[0].SampledValue[0]
	assert.Equal(t, types.MeasurandPowerActiveImport, sampled.Measurand)
	assert.Equal(t, 7000.0, sampled.Value)
}
