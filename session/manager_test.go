package session

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"evcp/devicemodel"
	"evcp/ocpp/availability"
	"evcp/ocpp/metervalues"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(text string)                     {}
func (nopLogger) Warn(text string)                      {}
func (nopLogger) Error(text string, err error)          {}
func (nopLogger) FeatureEvent(feature, id, text string) {}
func (nopLogger) RawDataEvent(direction, data string)   {}

type fakeSettings struct {
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{
		devicemodel.CtrlrTxCtrlr + "/StopTxOnEVSideDisconnect": "true",
		devicemodel.CtrlrTxCtrlr + "/StopTxOnInvalidId":        "true",
		devicemodel.CtrlrTxCtrlr + "/EVConnectionTimeOut":      "120",
	}}
}

func (f *fakeSettings) Value(componentName, variableName string) (string, bool) {
	value, ok := f.values[componentName+"/"+variableName]
	return value, ok
}

func (f *fakeSettings) BoolValue(componentName, variableName string) bool {
	return f.values[componentName+"/"+variableName] == "true"
}

func (f *fakeSettings) IntValue(componentName, variableName string, fallback int) int {
	if value, ok := f.values[componentName+"/"+variableName]; ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func (f *fakeSettings) SetInternal(componentName, variableName, value string) {
	f.values[componentName+"/"+variableName] = value
}

type fakeAuthorizer struct {
	status       types.AuthorizationStatus
	lastContract string
}

func (f *fakeAuthorizer) Authorize(idToken types.IdToken, online bool) *types.IdTokenInfo {
	return types.NewIdTokenInfo(f.status)
}

func (f *fakeAuthorizer) AuthorizeContract(idToken types.IdToken, contractChain string, online bool) *types.IdTokenInfo {
	f.lastContract = contractChain
	return types.NewIdTokenInfo(f.status)
}

// fakeConnection records outbound requests and answers every transaction
// event with a canned response.
type fakeConnection struct {
	mu          sync.Mutex
	online      bool
	response    *transactions.TransactionEventResponse
	events      []*transactions.TransactionEventRequest
	statuses    []*availability.StatusNotificationRequest
	statusTxIds []string
	meters      []*metervalues.MeterValuesRequest
	meterTxIds  []string
}

func (f *fakeConnection) SendTransactionEvent(request *transactions.TransactionEventRequest, transactionId string) <-chan EventOutcome {
	f.mu.Lock()
	f.events = append(f.events, request)
	response := f.response
	f.mu.Unlock()
	outcome := make(chan EventOutcome, 1)
	outcome <- EventOutcome{Response: response}
	return outcome
}

func (f *fakeConnection) SendStatusNotification(request *availability.StatusNotificationRequest, transactionId string) {
	f.mu.Lock()
	f.statuses = append(f.statuses, request)
	f.statusTxIds = append(f.statusTxIds, transactionId)
	f.mu.Unlock()
}

func (f *fakeConnection) SendMeterValues(request *metervalues.MeterValuesRequest, transactionId string) {
	f.mu.Lock()
	f.meters = append(f.meters, request)
	f.meterTxIds = append(f.meterTxIds, transactionId)
	f.mu.Unlock()
}

func (f *fakeConnection) IsOnline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeConnection) sentEvents() []*transactions.TransactionEventRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*transactions.TransactionEventRequest{}, f.events...)
}

func (f *fakeConnection) lastStatus() *availability.StatusNotificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil
	}
	return f.statuses[len(f.statuses)-1]
}

func newTestManager() (*Manager, *fakeConnection, *fakeSettings, *fakeAuthorizer) {
	settings := newFakeSettings()
	authorizer := &fakeAuthorizer{status: types.AuthorizationStatusAccepted}
	conn := &fakeConnection{online: true, response: &transactions.TransactionEventResponse{}}
	manager := NewManager(nil, settings, authorizer, conn, NewSimulatedMeter(), nopLogger{}, 2)
	return manager, conn, settings, authorizer
}

func cardToken() types.IdToken {
	return types.IdToken{IdToken: "AA11BB22", Type: types.IdTokenTypeISO14443}
}

func TestPlugInThenAuthorizeStarts(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	manager.PlugIn(1)
	status := conn.lastStatus()
	require.NotNil(t, status)
	assert.Equal(t, availability.ConnectorStatusOccupied, status.ConnectorStatus)

	info := manager.Authorize(1, cardToken())
	require.Equal(t, types.AuthorizationStatusAccepted, info.Status)

	events := conn.sentEvents()
	require.Len(t, events, 1)
	started := events[0]
	assert.Equal(t, transactions.TransactionEventStarted, started.EventType)
	assert.Equal(t, transactions.TriggerReasonAuthorized, started.TriggerReason)
	assert.Equal(t, 0, started.SeqNo)
	assert.False(t, started.Offline)
	require.NotNil(t, started.IdToken)
	assert.Equal(t, "AA11BB22", started.IdToken.IdToken)
	require.NotNil(t, started.Evse)
	assert.Equal(t, 1, started.Evse.Id)

	assert.True(t, manager.HasActiveTransaction(1))
	assert.True(t, manager.KnownTransaction(started.TransactionInfo.TransactionId))
}

func TestAuthorizeBeforePlugInWaitsForCable(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	info := manager.Authorize(1, cardToken())
	require.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Empty(t, conn.sentEvents())
	assert.False(t, manager.HasActiveTransaction(1))

	manager.PlugIn(1)
	events := conn.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, transactions.TransactionEventStarted, events[0].EventType)
	assert.Equal(t, transactions.TriggerReasonCablePluggedIn, events[0].TriggerReason)
	require.NotNil(t, events[0].IdToken)
}

func TestOfflineEventsCarryOfflineFlag(t *testing.T) {
	manager, conn, _, _ := newTestManager()
	conn.mu.Lock()
	conn.online = false
	conn.mu.Unlock()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())

	events := conn.sentEvents()
	require.Len(t, events, 1)
	assert.True(t, events[0].Offline)
}

func TestAuthorizeSameTokenStops(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	require.True(t, manager.HasActiveTransaction(1))

	manager.Authorize(1, cardToken())
	assert.False(t, manager.HasActiveTransaction(1))

	events := conn.sentEvents()
	require.Len(t, events, 2)
	ended := events[1]
	assert.Equal(t, transactions.TransactionEventEnded, ended.EventType)
	assert.Equal(t, transactions.TriggerReasonStopAuthorized, ended.TriggerReason)
	assert.Equal(t, transactions.ReasonLocal, ended.TransactionInfo.StoppedReason)
	require.NotNil(t, ended.TransactionInfo.TimeSpentCharging)

	// cable still in, connector stays occupied
	status, ok := manager.Status(1)
	require.True(t, ok)
	assert.Equal(t, availability.ConnectorStatusOccupied, status)
}

func TestAuthorizeRejectedDoesNotStart(t *testing.T) {
	manager, conn, _, authorizer := newTestManager()
	authorizer.status = types.AuthorizationStatusBlocked

	manager.PlugIn(1)
	info := manager.Authorize(1, cardToken())
	assert.Equal(t, types.AuthorizationStatusBlocked, info.Status)
	assert.Empty(t, conn.sentEvents())
}

func TestAuthorizeInoperativeEvse(t *testing.T) {
	manager, _, _, _ := newTestManager()

	require.Equal(t, availability.ChangeAvailabilityStatusAccepted, manager.ChangeAvailability(1, false))
	status, ok := manager.Status(1)
	require.True(t, ok)
	assert.Equal(t, availability.ConnectorStatusUnavailable, status)

	info := manager.Authorize(1, cardToken())
	assert.Equal(t, types.AuthorizationStatusNotAtThisTime, info.Status)
}

func TestPlugOutStopsTransaction(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	manager.PlugOut(1)

	assert.False(t, manager.HasActiveTransaction(1))
	events := conn.sentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, transactions.TransactionEventEnded, events[1].EventType)
	assert.Equal(t, transactions.ReasonEVDisconnected, events[1].TransactionInfo.StoppedReason)

	status, ok := manager.Status(1)
	require.True(t, ok)
	assert.Equal(t, availability.ConnectorStatusAvailable, status)
}

func TestPlugOutSuspendsWhenStopDisabled(t *testing.T) {
	manager, conn, settings, _ := newTestManager()
	settings.SetInternal(devicemodel.CtrlrTxCtrlr, "StopTxOnEVSideDisconnect", "false")

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	manager.PlugOut(1)

	assert.True(t, manager.HasActiveTransaction(1))
	events := conn.sentEvents()
	require.Len(t, events, 2)
	updated := events[1]
	assert.Equal(t, transactions.TransactionEventUpdated, updated.EventType)
	assert.Equal(t, transactions.TriggerReasonChargingStateChanged, updated.TriggerReason)
	assert.Equal(t, transactions.ChargingStateSuspendedEV, updated.TransactionInfo.ChargingState)
}

func TestRemoteStartPicksFreeEvse(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	manager.PlugIn(1)
	require.True(t, manager.RemoteStart(NewRemoteStart(nil, 7, cardToken())))

	events := conn.sentEvents()
	require.Len(t, events, 1)
	started := events[0]
	assert.Equal(t, transactions.TransactionEventStarted, started.EventType)
	assert.Equal(t, transactions.TriggerReasonRemoteStart, started.TriggerReason)
	require.NotNil(t, started.TransactionInfo.RemoteStartId)
	assert.Equal(t, 7, *started.TransactionInfo.RemoteStartId)
}

func TestRemoteStartUnpluggedWaitsForCable(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	evseId := 2
	require.True(t, manager.RemoteStart(NewRemoteStart(&evseId, 9, cardToken())))
	assert.False(t, manager.HasActiveTransaction(2))

	manager.PlugIn(2)
	events := conn.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, transactions.TransactionEventStarted, events[0].EventType)
	assert.Equal(t, transactions.TriggerReasonCablePluggedIn, events[0].TriggerReason)
}

func TestRemoteStartAuthorizationRequired(t *testing.T) {
	manager, _, settings, authorizer := newTestManager()
	settings.SetInternal(devicemodel.CtrlrAuth, "AuthorizeRemoteStart", "true")
	authorizer.status = types.AuthorizationStatusBlocked

	manager.PlugIn(1)
	assert.False(t, manager.RemoteStart(NewRemoteStart(nil, 3, cardToken())))
	assert.False(t, manager.HasActiveTransaction(1))
}

func TestRemoteStop(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	assert.False(t, manager.RemoteStop("no-such-tx"))

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	transactionId, ok := manager.TransactionId(1)
	require.True(t, ok)

	require.True(t, manager.RemoteStop(transactionId))
	assert.False(t, manager.HasActiveTransaction(1))

	events := conn.sentEvents()
	ended := events[len(events)-1]
	assert.Equal(t, transactions.ReasonRemote, ended.TransactionInfo.StoppedReason)
	assert.Equal(t, transactions.TriggerReasonRemoteStop, ended.TriggerReason)
}

func TestChangeAvailabilityScheduledDuringTransaction(t *testing.T) {
	manager, _, _, _ := newTestManager()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())

	assert.Equal(t, availability.ChangeAvailabilityStatusScheduled, manager.ChangeAvailability(1, false))
	// the whole station inherits the scheduled verdict
	assert.Equal(t, availability.ChangeAvailabilityStatusScheduled, manager.ChangeAvailability(0, false))
	assert.Equal(t, availability.ChangeAvailabilityStatusRejected, manager.ChangeAvailability(9, false))
}

func TestChargingStateTransitions(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())

	manager.BeginCharging(1)
	// repeated state does not produce a second event
	manager.BeginCharging(1)
	manager.SuspendEVSE(1)

	events := conn.sentEvents()
	require.Len(t, events, 3)
	assert.Equal(t, transactions.ChargingStateCharging, events[1].TransactionInfo.ChargingState)
	assert.Equal(t, transactions.ChargingStateSuspendedEVSE, events[2].TransactionInfo.ChargingState)
	assert.Equal(t, 1, events[1].SeqNo)
	assert.Equal(t, 2, events[2].SeqNo)
}

func TestStopAll(t *testing.T) {
	manager, conn, _, _ := newTestManager()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	manager.PlugIn(2)
	manager.Authorize(2, cardToken())
	require.True(t, manager.AnyActiveTransaction())

	manager.StopAll(transactions.ReasonImmediateReset)
	assert.False(t, manager.AnyActiveTransaction())

	ended := 0
	for _, event := range conn.sentEvents() {
		if event.EventType == transactions.TransactionEventEnded {
			ended++
			assert.Equal(t, transactions.ReasonImmediateReset, event.TransactionInfo.StoppedReason)
		}
	}
	assert.Equal(t, 2, ended)
}

func TestInvalidTokenResponseStopsTransaction(t *testing.T) {
	manager, conn, _, _ := newTestManager()
	conn.response = &transactions.TransactionEventResponse{
		IdTokenInfo: types.NewIdTokenInfo(types.AuthorizationStatusInvalid),
	}

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())

	assert.Eventually(t, func() bool {
		return !manager.HasActiveTransaction(1)
	}, time.Second, 10*time.Millisecond)
}

func TestResponseListenerNotified(t *testing.T) {
	manager, _, _, _ := newTestManager()

	var mu sync.Mutex
	var seen []transactions.TransactionEventType
	manager.AddResponseListener(func(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse) {
		mu.Lock()
		seen = append(seen, eventType)
		mu.Unlock()
	})

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == transactions.TransactionEventStarted
	}, time.Second, 10*time.Millisecond)
}

func TestTriggerTransactionEvent(t *testing.T) {
	manager, conn, settings, _ := newTestManager()
	settings.SetInternal(devicemodel.CtrlrSampledData, "TxUpdatedMeasurands",
		string(types.MeasurandEnergyActiveImportRegister)+","+string(types.MeasurandPowerActiveImport))

	assert.False(t, manager.TriggerTransactionEvent(1))

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	require.True(t, manager.TriggerTransactionEvent(1))

	events := conn.sentEvents()
	triggered := events[len(events)-1]
	assert.Equal(t, transactions.TransactionEventUpdated, triggered.EventType)
	assert.Equal(t, transactions.TriggerReasonTrigger, triggered.TriggerReason)
	require.Len(t, triggered.MeterValue, 1)
	assert.Len(t, triggered.MeterValue[0].SampledValue, 2)
}

func TestAuthorizeContractStartsTransaction(t *testing.T) {
	manager, conn, _, authorizer := newTestManager()

	manager.PlugIn(1)
	token := types.IdToken{IdToken: "DE-ABC-C1234567", Type: types.IdTokenTypeEMAID}
	info := manager.AuthorizeContract(1, token, "-----BEGIN CERTIFICATE-----")
	require.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", authorizer.lastContract)

	events := conn.sentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, transactions.TransactionEventStarted, events[0].EventType)
	require.NotNil(t, events[0].IdToken)
	assert.Equal(t, types.IdTokenTypeEMAID, events[0].IdToken.Type)
}

func TestMeterValuesCarryTransactionId(t *testing.T) {
	manager, conn, settings, _ := newTestManager()
	settings.SetInternal(devicemodel.CtrlrSampledData, "TxUpdatedMeasurands",
		string(types.MeasurandEnergyActiveImportRegister))

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	transactionId, ok := manager.TransactionId(1)
	require.True(t, ok)

	require.True(t, manager.TriggerMeterValues(1))
	require.True(t, manager.TriggerMeterValues(2))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.meterTxIds, 2)
	assert.Equal(t, transactionId, conn.meterTxIds[0])
	assert.Empty(t, conn.meterTxIds[1])
	// connector status notifications outside a transaction carry no id
	require.NotEmpty(t, conn.statusTxIds)
	assert.Empty(t, conn.statusTxIds[0])
}

func TestAlignedSamplingMeasurands(t *testing.T) {
	manager, conn, settings, _ := newTestManager()
	settings.SetInternal(devicemodel.CtrlrAlignedData, "Measurands",
		string(types.MeasurandEnergyActiveImportRegister)+","+string(types.MeasurandPowerActiveImport))
	settings.SetInternal(devicemodel.CtrlrSampledData, "TxUpdatedMeasurands",
		string(types.MeasurandEnergyActiveImportRegister))

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	manager.sampleAligned()

	events := conn.sentEvents()
	aligned := events[len(events)-1]
	assert.Equal(t, transactions.TriggerReasonMeterValueClock, aligned.TriggerReason)
	require.Len(t, aligned.MeterValue, 1)
	// the clock-aligned set, not the transaction sampling set
	assert.Len(t, aligned.MeterValue[0].SampledValue, 2)
	assert.Equal(t, types.ReadingContextSampleClock, aligned.MeterValue[0].SampledValue[0].Context)

	// the idle EVSE reports through MeterValues without a transaction id
	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.meters, 1)
	assert.Equal(t, 2, conn.meters[0].EvseId)
	assert.Empty(t, conn.meterTxIds[0])
}

func TestSampleListener(t *testing.T) {
	manager, _, _, _ := newTestManager()

	var mu sync.Mutex
	type reading struct {
		evseId        int
		transactionId string
	}
	var seen []reading
	manager.AddSampleListener(func(evseId int, transactionId string, energyWh, powerW float64) {
		mu.Lock()
		seen = append(seen, reading{evseId: evseId, transactionId: transactionId})
		mu.Unlock()
	})

	manager.notifySamples()
	mu.Lock()
	assert.Empty(t, seen)
	mu.Unlock()

	manager.PlugIn(1)
	manager.Authorize(1, cardToken())
	transactionId, ok := manager.TransactionId(1)
	require.True(t, ok)

	manager.notifySamples()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, 1, seen[0].evseId)
	assert.Equal(t, transactionId, seen[0].transactionId)
}

func TestTransactionStart(t *testing.T) {
	manager, _, _, _ := newTestManager()

	_, ok := manager.TransactionStart(1)
	assert.False(t, ok)

	before := time.Now().Add(-time.Second)
	manager.PlugIn(1)
	manager.Authorize(1, cardToken())

	startedAt, ok := manager.TransactionStart(1)
	require.True(t, ok)
	assert.True(t, startedAt.After(before))
	assert.False(t, startedAt.After(time.Now()))
}

func TestTriggerMeterValuesIdleEvse(t *testing.T) {
	manager, conn, settings, _ := newTestManager()
	settings.SetInternal(devicemodel.CtrlrSampledData, "TxUpdatedMeasurands",
		string(types.MeasurandEnergyActiveImportRegister))

	require.True(t, manager.TriggerMeterValues(1))
	assert.False(t, manager.TriggerMeterValues(9))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.meters, 1)
	assert.Equal(t, 1, conn.meters[0].EvseId)
	require.Len(t, conn.meters[0].MeterValue, 1)
	assert.Equal(t, types.ReadingContextTrigger, conn.meters[0].MeterValue[0].SampledValue[0].Context)
}
