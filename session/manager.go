package session

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"evcp/devicemodel"
	"evcp/entity"
	"evcp/internal"
	"evcp/metrics/counters"
	"evcp/ocpp/availability"
	"evcp/ocpp/metervalues"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"
	"evcp/utility"
)

type Database interface {
	WriteTransaction(record *entity.TransactionRecord) error
	UpdateTransaction(record *entity.TransactionRecord) error
	GetOpenTransactions() ([]*entity.TransactionRecord, error)
}

// Settings reads controller variables from the device model.
type Settings interface {
	Value(componentName, variableName string) (string, bool)
	BoolValue(componentName, variableName string) bool
	IntValue(componentName, variableName string, fallback int) int
	SetInternal(componentName, variableName, value string)
}

type Authorizer interface {
	Authorize(idToken types.IdToken, online bool) *types.IdTokenInfo
	AuthorizeContract(idToken types.IdToken, contractChain string, online bool) *types.IdTokenInfo
}

// EventOutcome is the terminal result of a queued TransactionEvent.
type EventOutcome struct {
	Response *transactions.TransactionEventResponse
	Err      error
}

// Connection sends station-initiated requests upstream. Transaction
// events go through the persistent queue; the returned channel yields
// once the CSMS has answered or the message was dropped. A non-empty
// transactionId marks the message as transaction-related.
type Connection interface {
	SendTransactionEvent(request *transactions.TransactionEventRequest, transactionId string) <-chan EventOutcome
	SendStatusNotification(request *availability.StatusNotificationRequest, transactionId string)
	SendMeterValues(request *metervalues.MeterValuesRequest, transactionId string)
	IsOnline() bool
}

type activeTx struct {
	id            string
	seqNo         int
	meterStart    float64
	startedAt     time.Time
	idToken       *types.IdToken
	groupIdToken  string
	remoteStartId *int
	lastSample    time.Time
}

type evseState struct {
	id            int
	connectorId   int
	plugged       bool
	operative     bool
	status        availability.ConnectorStatus
	chargingState transactions.ChargingState
	pendingToken  *types.IdToken
	pendingRemote *int
	pendingTimer  *time.Timer
	tx            *activeTx
}

// Manager owns the per-EVSE charging state machines and emits the
// TransactionEvent sequence Started, Updated*, Ended for each session.
type Manager struct {
	mu         sync.Mutex
	db         Database
	settings   Settings
	authorizer Authorizer
	conn       Connection
	meter      MeterSource
	logger     internal.LogHandler
	evses      map[int]*evseState
	listeners  []func(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse)
	samplers   []func(evseId int, transactionId string, energyWh, powerW float64)
}

func NewManager(db Database, settings Settings, authorizer Authorizer, conn Connection, meter MeterSource, logger internal.LogHandler, evseCount int) *Manager {
	m := &Manager{
		db:         db,
		settings:   settings,
		authorizer: authorizer,
		conn:       conn,
		meter:      meter,
		logger:     logger,
		evses:      make(map[int]*evseState),
	}
	for id := 1; id <= evseCount; id++ {
		m.evses[id] = &evseState{
			id:            id,
			connectorId:   1,
			operative:     true,
			status:        availability.ConnectorStatusAvailable,
			chargingState: transactions.ChargingStateIdle,
		}
	}
	return m
}

// AddResponseListener registers a hook for TransactionEvent responses,
// used for running cost updates.
func (m *Manager) AddResponseListener(listener func(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

// AddSampleListener registers a hook fed with meter readings of running
// sessions on every metering tick.
func (m *Manager) AddSampleListener(listener func(evseId int, transactionId string, energyWh, powerW float64)) {
	m.mu.Lock()
	m.samplers = append(m.samplers, listener)
	m.mu.Unlock()
}

// Recover closes transactions left open by a previous run. The Ended
// event is queued with the offline flag and the reason Reboot.
func (m *Manager) Recover() error {
	if m.db == nil {
		return nil
	}
	open, err := m.db.GetOpenTransactions()
	if err != nil {
		return err
	}
	for _, record := range open {
		m.logger.Warn(fmt.Sprintf("closing interrupted transaction %s", record.TransactionId))
		now := time.Now().UTC()
		record.SeqNo++
		record.Finished = true
		record.EndedAt = &now
		record.StoppedReason = string(transactions.ReasonReboot)
		if err = m.db.UpdateTransaction(record); err != nil {
			return err
		}
		request := transactions.NewTransactionEventRequest(
			transactions.TransactionEventEnded,
			types.NewDateTime(now),
			transactions.TriggerReasonResetCommand,
			record.SeqNo,
			transactions.Transaction{
				TransactionId: record.TransactionId,
				StoppedReason: transactions.ReasonReboot,
			},
		)
		request.Offline = true
		request.Evse = &types.EVSE{Id: record.EvseId, ConnectorId: &record.ConnectorId}
		m.conn.SendTransactionEvent(request, record.TransactionId)
	}
	return nil
}

// Authorize runs the pipeline for a locally presented token. An accepted
// token either starts a transaction, stops the one it owns, or waits for
// the cable.
func (m *Manager) Authorize(evseId int, idToken types.IdToken) *types.IdTokenInfo {
	info := m.authorizer.Authorize(idToken, m.conn.IsOnline())
	return m.applyAuthorization(evseId, idToken, info)
}

// AuthorizeContract runs the pipeline for a token presented by the EV
// itself with its contract certificate chain.
func (m *Manager) AuthorizeContract(evseId int, idToken types.IdToken, contractChain string) *types.IdTokenInfo {
	info := m.authorizer.AuthorizeContract(idToken, contractChain, m.conn.IsOnline())
	return m.applyAuthorization(evseId, idToken, info)
}

func (m *Manager) applyAuthorization(evseId int, idToken types.IdToken, info *types.IdTokenInfo) *types.IdTokenInfo {
	m.mu.Lock()
	evse, ok := m.evses[evseId]
	if !ok || !evse.operative {
		m.mu.Unlock()
		return types.NewIdTokenInfo(types.AuthorizationStatusNotAtThisTime)
	}
	if evse.tx != nil && evse.tx.idToken != nil && sameToken(*evse.tx.idToken, idToken) {
		m.mu.Unlock()
		m.StopTransaction(evseId, transactions.ReasonLocal, transactions.TriggerReasonStopAuthorized)
		return info
	}
	if info.Status != types.AuthorizationStatusAccepted {
		m.mu.Unlock()
		return info
	}
	if evse.plugged && evse.tx == nil {
		m.startTransactionLocked(evse, &idToken, nil, transactions.TriggerReasonAuthorized)
		m.mu.Unlock()
		return info
	}
	token := idToken
	evse.pendingToken = &token
	m.armConnectionTimeoutLocked(evse)
	m.mu.Unlock()
	return info
}

func sameToken(a, b types.IdToken) bool {
	return a.IdToken == b.IdToken && a.Type == b.Type
}

// armConnectionTimeoutLocked drops a pending authorization when no cable
// shows up within EVConnectionTimeOut.
func (m *Manager) armConnectionTimeoutLocked(evse *evseState) {
	if evse.pendingTimer != nil {
		evse.pendingTimer.Stop()
	}
	timeout := m.settings.IntValue(devicemodel.CtrlrTxCtrlr, "EVConnectionTimeOut", 120)
	evseId := evse.id
	evse.pendingTimer = time.AfterFunc(time.Duration(timeout)*time.Second, func() {
		m.mu.Lock()
		e := m.evses[evseId]
		if e != nil && e.tx == nil {
			e.pendingToken = nil
			e.pendingRemote = nil
		}
		m.mu.Unlock()
	})
}

// PlugIn reports a cable connection on the connector.
func (m *Manager) PlugIn(evseId int) {
	m.mu.Lock()
	evse, ok := m.evses[evseId]
	if !ok || evse.plugged {
		m.mu.Unlock()
		return
	}
	evse.plugged = true
	m.setStatusLocked(evse, availability.ConnectorStatusOccupied)
	if evse.tx == nil && (evse.pendingToken != nil || evse.pendingRemote != nil) {
		token := evse.pendingToken
		remoteId := evse.pendingRemote
		evse.pendingToken = nil
		evse.pendingRemote = nil
		if evse.pendingTimer != nil {
			evse.pendingTimer.Stop()
			evse.pendingTimer = nil
		}
		m.startTransactionLocked(evse, token, remoteId, transactions.TriggerReasonCablePluggedIn)
	}
	m.mu.Unlock()
}

// PlugOut reports the cable gone. A running transaction stops when
// StopTxOnEVSideDisconnect is set, otherwise charging suspends.
func (m *Manager) PlugOut(evseId int) {
	m.mu.Lock()
	evse, ok := m.evses[evseId]
	if !ok || !evse.plugged {
		m.mu.Unlock()
		return
	}
	evse.plugged = false
	hasTx := evse.tx != nil
	m.mu.Unlock()

	if hasTx {
		if m.settings.BoolValue(devicemodel.CtrlrTxCtrlr, "StopTxOnEVSideDisconnect") {
			m.StopTransaction(evseId, transactions.ReasonEVDisconnected, transactions.TriggerReasonEVCommunicationLost)
		} else {
			m.SuspendEV(evseId)
		}
	}
	m.mu.Lock()
	if evse.tx == nil {
		m.setStatusLocked(evse, availability.ConnectorStatusAvailable)
	}
	m.mu.Unlock()
}

// RemoteStart handles RequestStartTransaction. The verdict is immediate;
// authorization, when required, happens before the session starts.
func (m *Manager) RemoteStart(request *remoteStartData) bool {
	m.mu.Lock()
	evse := m.pickEvseLocked(request.evseId)
	if evse == nil || evse.tx != nil || !evse.operative {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if m.settings.BoolValue(devicemodel.CtrlrAuth, "AuthorizeRemoteStart") {
		info := m.authorizer.Authorize(request.idToken, m.conn.IsOnline())
		if info.Status != types.AuthorizationStatusAccepted {
			return false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if evse.tx != nil {
		return false
	}
	remoteId := request.remoteStartId
	token := request.idToken
	if evse.plugged {
		m.startTransactionLocked(evse, &token, &remoteId, transactions.TriggerReasonRemoteStart)
	} else {
		evse.pendingToken = &token
		evse.pendingRemote = &remoteId
		m.armConnectionTimeoutLocked(evse)
	}
	return true
}

type remoteStartData struct {
	evseId        *int
	remoteStartId int
	idToken       types.IdToken
}

func NewRemoteStart(evseId *int, remoteStartId int, idToken types.IdToken) *remoteStartData {
	return &remoteStartData{evseId: evseId, remoteStartId: remoteStartId, idToken: idToken}
}

func (m *Manager) pickEvseLocked(evseId *int) *evseState {
	if evseId != nil {
		return m.evses[*evseId]
	}
	for id := 1; id <= len(m.evses); id++ {
		evse := m.evses[id]
		if evse != nil && evse.tx == nil && evse.operative {
			return evse
		}
	}
	return nil
}

// RemoteStop handles RequestStopTransaction.
func (m *Manager) RemoteStop(transactionId string) bool {
	m.mu.Lock()
	var evseId int
	found := false
	for _, evse := range m.evses {
		if evse.tx != nil && evse.tx.id == transactionId {
			evseId = evse.id
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return false
	}
	m.StopTransaction(evseId, transactions.ReasonRemote, transactions.TriggerReasonRemoteStop)
	return true
}

func (m *Manager) startTransactionLocked(evse *evseState, idToken *types.IdToken, remoteStartId *int, trigger transactions.TriggerReason) {
	now := time.Now().UTC()
	tx := &activeTx{
		id:            utility.NewUUID(),
		meterStart:    m.meter.EnergyWh(evse.id),
		startedAt:     now,
		idToken:       idToken,
		remoteStartId: remoteStartId,
		lastSample:    now,
	}
	evse.tx = tx
	evse.chargingState = transactions.ChargingStateEVConnected

	record := &entity.TransactionRecord{
		TransactionId: tx.id,
		EvseId:        evse.id,
		ConnectorId:   evse.connectorId,
		ChargingState: string(evse.chargingState),
		StartedAt:     now,
		MeterStart:    tx.meterStart,
		RemoteStartId: remoteStartId,
		Offline:       !m.conn.IsOnline(),
	}
	if idToken != nil {
		record.IdToken = idToken.IdToken
		record.IdTokenType = string(idToken.Type)
	}
	if m.db != nil {
		if err := m.db.WriteTransaction(record); err != nil {
			m.logger.Error("persisting transaction", err)
		}
	}

	request := m.eventRequestLocked(evse, transactions.TransactionEventStarted, trigger)
	request.IdToken = idToken
	request.MeterValue = m.sampleLocked(evse, devicemodel.CtrlrSampledData, "TxStartedMeasurands", types.ReadingContextTransactionBegin)
	m.sendEventLocked(evse, request)
	m.logger.FeatureEvent(transactions.TransactionEventFeatureName, "", fmt.Sprintf("started %s on evse %d", tx.id, evse.id))
	counters.ObserveTransactions(m.activeCountLocked())
}

// StopTransaction ends the session on the EVSE with the given reason.
func (m *Manager) StopTransaction(evseId int, reason transactions.Reason, trigger transactions.TriggerReason) {
	m.mu.Lock()
	evse, ok := m.evses[evseId]
	if !ok || evse.tx == nil {
		m.mu.Unlock()
		return
	}
	tx := evse.tx
	now := time.Now().UTC()
	meterStop := m.meter.EnergyWh(evseId)
	evse.chargingState = transactions.ChargingStateIdle

	request := m.eventRequestLocked(evse, transactions.TransactionEventEnded, trigger)
	request.TransactionInfo.StoppedReason = reason
	spent := int(now.Sub(tx.startedAt).Seconds())
	request.TransactionInfo.TimeSpentCharging = &spent
	request.MeterValue = m.sampleLocked(evse, devicemodel.CtrlrSampledData, "TxEndedMeasurands", types.ReadingContextTransactionEnd)
	m.sendEventLocked(evse, request)

	record := &entity.TransactionRecord{
		TransactionId: tx.id,
		EvseId:        evse.id,
		ConnectorId:   evse.connectorId,
		ChargingState: string(transactions.ChargingStateIdle),
		SeqNo:         tx.seqNo,
		StartedAt:     tx.startedAt,
		EndedAt:       &now,
		StoppedReason: string(reason),
		MeterStart:    tx.meterStart,
		MeterStop:     &meterStop,
		Finished:      true,
	}
	if tx.idToken != nil {
		record.IdToken = tx.idToken.IdToken
		record.IdTokenType = string(tx.idToken.Type)
	}
	record.RemoteStartId = tx.remoteStartId
	evse.tx = nil
	if evse.plugged {
		m.setStatusLocked(evse, availability.ConnectorStatusOccupied)
	} else {
		m.setStatusLocked(evse, availability.ConnectorStatusAvailable)
	}
	count := m.activeCountLocked()
	m.mu.Unlock()

	if m.db != nil {
		if err := m.db.UpdateTransaction(record); err != nil {
			m.logger.Error("finishing transaction", err)
		}
	}
	m.logger.FeatureEvent(transactions.TransactionEventFeatureName, "", fmt.Sprintf("ended %s: %s", tx.id, reason))
	counters.ObserveTransactions(count)
	counters.ObservePowerRate(strconv.Itoa(evseId), 0)
}

// BeginCharging reports the power path closed.
func (m *Manager) BeginCharging(evseId int) {
	m.changeChargingState(evseId, transactions.ChargingStateCharging)
}

func (m *Manager) SuspendEV(evseId int) {
	m.changeChargingState(evseId, transactions.ChargingStateSuspendedEV)
}

func (m *Manager) SuspendEVSE(evseId int) {
	m.changeChargingState(evseId, transactions.ChargingStateSuspendedEVSE)
}

func (m *Manager) ResumeCharging(evseId int) {
	m.changeChargingState(evseId, transactions.ChargingStateCharging)
}

func (m *Manager) changeChargingState(evseId int, state transactions.ChargingState) {
	m.mu.Lock()
	evse, ok := m.evses[evseId]
	if !ok || evse.tx == nil || evse.chargingState == state {
		m.mu.Unlock()
		return
	}
	evse.chargingState = state
	request := m.eventRequestLocked(evse, transactions.TransactionEventUpdated, transactions.TriggerReasonChargingStateChanged)
	m.sendEventLocked(evse, request)
	m.mu.Unlock()
}

// eventRequestLocked builds the common frame of a transaction event.
func (m *Manager) eventRequestLocked(evse *evseState, eventType transactions.TransactionEventType, trigger transactions.TriggerReason) *transactions.TransactionEventRequest {
	tx := evse.tx
	request := transactions.NewTransactionEventRequest(
		eventType,
		types.NewDateTime(time.Now().UTC()),
		trigger,
		tx.seqNo,
		transactions.Transaction{
			TransactionId: tx.id,
			ChargingState: evse.chargingState,
			RemoteStartId: tx.remoteStartId,
		},
	)
	tx.seqNo++
	connectorId := evse.connectorId
	request.Evse = &types.EVSE{Id: evse.id, ConnectorId: &connectorId}
	request.Offline = !m.conn.IsOnline()
	return request
}

func (m *Manager) sendEventLocked(evse *evseState, request *transactions.TransactionEventRequest) {
	evseId := evse.id
	transactionId := request.TransactionInfo.TransactionId
	outcome := m.conn.SendTransactionEvent(request, transactionId)
	listeners := append([]func(int, string, transactions.TransactionEventType, *transactions.TransactionEventResponse){}, m.listeners...)
	go func() {
		result := <-outcome
		if result.Err != nil || result.Response == nil {
			return
		}
		m.handleEventResponse(evseId, transactionId, request.EventType, result.Response)
		for _, listener := range listeners {
			listener(evseId, transactionId, request.EventType, result.Response)
		}
	}()
}

// handleEventResponse deauthorizes the running session when the CSMS
// invalidates its token.
func (m *Manager) handleEventResponse(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse) {
	if eventType == transactions.TransactionEventEnded {
		return
	}
	if response.IdTokenInfo == nil || response.IdTokenInfo.Status == types.AuthorizationStatusAccepted {
		return
	}
	m.mu.Lock()
	evse := m.evses[evseId]
	active := evse != nil && evse.tx != nil && evse.tx.id == transactionId
	m.mu.Unlock()
	if !active {
		return
	}
	if m.settings.BoolValue(devicemodel.CtrlrTxCtrlr, "StopTxOnInvalidId") {
		m.StopTransaction(evseId, transactions.ReasonDeAuthorized, transactions.TriggerReasonDeauthorized)
	} else {
		m.SuspendEVSE(evseId)
	}
}

func (m *Manager) setStatusLocked(evse *evseState, status availability.ConnectorStatus) {
	if evse.status == status {
		return
	}
	evse.status = status
	request := &availability.StatusNotificationRequest{
		Timestamp:       types.NewDateTime(time.Now().UTC()),
		ConnectorStatus: status,
		EvseId:          evse.id,
		ConnectorId:     evse.connectorId,
	}
	m.conn.SendStatusNotification(request, txIdLocked(evse))
}

func txIdLocked(evse *evseState) string {
	if evse.tx != nil {
		return evse.tx.id
	}
	return ""
}

// ChangeAvailability switches the EVSE in or out of service. With a
// transaction running the change is scheduled for the session end.
func (m *Manager) ChangeAvailability(evseId int, operative bool) availability.ChangeAvailabilityStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evseId == 0 {
		scheduled := false
		for _, evse := range m.evses {
			if m.applyAvailabilityLocked(evse, operative) == availability.ChangeAvailabilityStatusScheduled {
				scheduled = true
			}
		}
		if scheduled {
			return availability.ChangeAvailabilityStatusScheduled
		}
		return availability.ChangeAvailabilityStatusAccepted
	}
	evse, ok := m.evses[evseId]
	if !ok {
		return availability.ChangeAvailabilityStatusRejected
	}
	return m.applyAvailabilityLocked(evse, operative)
}

func (m *Manager) applyAvailabilityLocked(evse *evseState, operative bool) availability.ChangeAvailabilityStatus {
	if evse.tx != nil && !operative {
		evse.operative = false
		return availability.ChangeAvailabilityStatusScheduled
	}
	evse.operative = operative
	if operative {
		if evse.plugged {
			m.setStatusLocked(evse, availability.ConnectorStatusOccupied)
		} else {
			m.setStatusLocked(evse, availability.ConnectorStatusAvailable)
		}
	} else {
		m.setStatusLocked(evse, availability.ConnectorStatusUnavailable)
	}
	return availability.ChangeAvailabilityStatusAccepted
}

// Status reports the connector status, for StatusNotification triggers.
func (m *Manager) Status(evseId int) (availability.ConnectorStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evse, ok := m.evses[evseId]
	if !ok {
		return "", false
	}
	return evse.status, true
}

func (m *Manager) EvseIds() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.evses))
	for id := 1; id <= len(m.evses); id++ {
		if _, ok := m.evses[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Manager) HasActiveTransaction(evseId int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	evse, ok := m.evses[evseId]
	return ok && evse.tx != nil
}

func (m *Manager) AnyActiveTransaction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evse := range m.evses {
		if evse.tx != nil {
			return true
		}
	}
	return false
}

// KnownTransaction reports whether the id belongs to a running session.
func (m *Manager) KnownTransaction(transactionId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evse := range m.evses {
		if evse.tx != nil && evse.tx.id == transactionId {
			return true
		}
	}
	return false
}

func (m *Manager) TransactionId(evseId int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evse, ok := m.evses[evseId]
	if !ok || evse.tx == nil {
		return "", false
	}
	return evse.tx.id, true
}

// TransactionStart reports when the running session on the EVSE began,
// the anchor for relative charging profiles.
func (m *Manager) TransactionStart(evseId int) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evse, ok := m.evses[evseId]
	if !ok || evse.tx == nil {
		return time.Time{}, false
	}
	return evse.tx.startedAt, true
}

// StopAll ends every running session, used before a reset.
func (m *Manager) StopAll(reason transactions.Reason) {
	for _, evseId := range m.EvseIds() {
		if m.HasActiveTransaction(evseId) {
			m.StopTransaction(evseId, reason, transactions.TriggerReasonResetCommand)
		}
	}
}

func (m *Manager) activeCountLocked() int {
	count := 0
	for _, evse := range m.evses {
		if evse.tx != nil {
			count++
		}
	}
	return count
}

// TriggerTransactionEvent queues an Updated event on request of the CSMS.
func (m *Manager) TriggerTransactionEvent(evseId int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	evse, ok := m.evses[evseId]
	if !ok || evse.tx == nil {
		return false
	}
	request := m.eventRequestLocked(evse, transactions.TransactionEventUpdated, transactions.TriggerReasonTrigger)
	request.MeterValue = m.sampleLocked(evse, devicemodel.CtrlrSampledData, "TxUpdatedMeasurands", types.ReadingContextTrigger)
	m.sendEventLocked(evse, request)
	return true
}
