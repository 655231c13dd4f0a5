package station

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"evcp/auth"
	"evcp/devicemodel"
	"evcp/entity"
	"evcp/internal"
	"evcp/internal/config"
	"evcp/metrics/counters"
	"evcp/ocpp"
	"evcp/ocpp/authorization"
	"evcp/ocpp/availability"
	"evcp/ocpp/diagnostics"
	"evcp/ocpp/display"
	"evcp/ocpp/localauth"
	"evcp/ocpp/metervalues"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/remotecontrol"
	"evcp/ocpp/security"
	"evcp/ocpp/smartcharging"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"
	"evcp/pki"
	"evcp/scheduler"
	"evcp/session"
	"evcp/tariff"
	"evcp/utility"
)

// ChargePoint ties the websocket client, the outbound dispatcher and
// the protocol engines together. It owns the registration state machine
// and the inbound call dispatch.
type ChargePoint struct {
	conf       *config.Config
	logger     internal.LogHandler
	client     *Client
	queue      *Queue
	dispatcher *Dispatcher
	replies    *ReplyCache

	variables    *devicemodel.Store
	authService  *auth.Service
	sessions     *session.Manager
	profiles     *scheduler.Arena
	certificates *pki.Store
	displays     *tariff.DisplayStore
	costs        *tariff.CostTracker

	mu             sync.Mutex
	registration   provisioning.RegistrationStatus
	bootReason     provisioning.BootReason
	bootTimer      *time.Timer
	startupSent    bool
	heartbeatSec   int
	lastLogRequest int
	lastLogStatus  diagnostics.UploadLogStatus

	heartbeatKick chan struct{}
	stop          chan struct{}
	stopOnce      sync.Once

	onRestart        func()
	logSource        func(logType diagnostics.LogType) (string, error)
	securityNotifier func(eventType, techInfo string)
	errorSink        chan<- *entity.ErrorData
}

func NewChargePoint(conf *config.Config, client *Client, queue *Queue, dispatcher *Dispatcher, logger internal.LogHandler) *ChargePoint {
	return &ChargePoint{
		conf:          conf,
		logger:        logger,
		client:        client,
		queue:         queue,
		dispatcher:    dispatcher,
		replies:       NewReplyCache(time.Duration(conf.Timing.MessageTimeout) * time.Second),
		bootReason:    provisioning.BootReasonPowerUp,
		heartbeatSec:  conf.Timing.HeartbeatInterval,
		lastLogStatus: diagnostics.UploadLogStatusIdle,
		heartbeatKick: make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
}

// Bind attaches the protocol engines. Must be called before Start; the
// engines themselves receive the ChargePoint as their upstream
// connection, so construction is two-phase.
func (cp *ChargePoint) Bind(variables *devicemodel.Store, authService *auth.Service, sessions *session.Manager,
	profiles *scheduler.Arena, certificates *pki.Store, displays *tariff.DisplayStore, costs *tariff.CostTracker) {
	cp.variables = variables
	cp.authService = authService
	cp.sessions = sessions
	cp.profiles = profiles
	cp.certificates = certificates
	cp.displays = displays
	cp.costs = costs
}

func (cp *ChargePoint) SetBootReason(reason provisioning.BootReason) {
	cp.mu.Lock()
	cp.bootReason = reason
	cp.mu.Unlock()
}

// SetRestartHandler installs the host hook invoked when a CSMS Reset
// must take effect.
func (cp *ChargePoint) SetRestartHandler(handler func()) {
	cp.onRestart = handler
}

// SetLogSource installs the host callback that renders the requested
// log for GetLog uploads.
func (cp *ChargePoint) SetLogSource(source func(logType diagnostics.LogType) (string, error)) {
	cp.logSource = source
}

// SetSecurityNotifier forwards security events to an operator channel.
func (cp *ChargePoint) SetSecurityNotifier(notifier func(eventType, techInfo string)) {
	cp.securityNotifier = notifier
}

// SetErrorSink publishes protocol faults to the error listener.
func (cp *ChargePoint) SetErrorSink(sink chan<- *entity.ErrorData) {
	cp.errorSink = sink
}

func (cp *ChargePoint) reportFault(errorType, message string) {
	if cp.errorSink == nil {
		return
	}
	data := &entity.ErrorData{
		Type:      errorType,
		Severity:  entity.SeverityError,
		Message:   message,
		Origin:    cp.conf.Station.Id,
		Timestamp: time.Now().UTC(),
	}
	select {
	case cp.errorSink <- data:
	default:
	}
}

func (cp *ChargePoint) Start() {
	cp.client.SetMessageHandler(cp.handleMessage)
	cp.client.SetConnectionHandlers(cp.onConnect, cp.onDisconnect)
	cp.dispatcher.SetSentListener(cp.messageSent)
	cp.variables.Watch(cp.onVariableWrite)
	go cp.heartbeatLoop()
	go cp.eventPump()
	cp.client.Start()
}

func (cp *ChargePoint) Stop() {
	cp.stopOnce.Do(func() {
		close(cp.stop)
	})
	cp.mu.Lock()
	if cp.bootTimer != nil {
		cp.bootTimer.Stop()
		cp.bootTimer = nil
	}
	cp.mu.Unlock()
	cp.queue.DropNormal()
	cp.dispatcher.CancelInFlight()
	cp.client.Stop()
}

// RegistrationStatus reports the current state of the boot FSM; empty
// until the CSMS has answered the first BootNotification.
func (cp *ChargePoint) RegistrationStatus() provisioning.RegistrationStatus {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.registration
}

func (cp *ChargePoint) isAccepted() bool {
	return cp.RegistrationStatus() == provisioning.RegistrationStatusAccepted
}

// connection lifecycle

func (cp *ChargePoint) onConnect() {
	cp.mu.Lock()
	cp.registration = ""
	cp.mu.Unlock()
	cp.dispatcher.SetOffline(false)
	cp.mu.Lock()
	reason := cp.bootReason
	cp.mu.Unlock()
	cp.sendBootNotification(reason)
}

func (cp *ChargePoint) onDisconnect() {
	cp.mu.Lock()
	cp.registration = ""
	if cp.bootTimer != nil {
		cp.bootTimer.Stop()
		cp.bootTimer = nil
	}
	cp.mu.Unlock()
	cp.dispatcher.SetOffline(true)
	cp.dispatcher.SetBootOnly(true)
	cp.dispatcher.CancelInFlight()
}

// registration FSM

func (cp *ChargePoint) sendBootNotification(reason provisioning.BootReason) {
	request := &provisioning.BootNotificationRequest{
		Reason: reason,
		ChargingStation: provisioning.ChargingStationType{
			Model:           cp.conf.Station.Model,
			VendorName:      cp.conf.Station.Vendor,
			SerialNumber:    cp.conf.Station.SerialNumber,
			FirmwareVersion: cp.conf.Station.FirmwareVersion,
		},
	}
	call, err := cp.dispatcher.SendCall(provisioning.BootNotificationFeatureName, request, ClassBoot, "")
	if err != nil {
		cp.logger.Error("sending boot notification", err)
		return
	}
	go func() {
		outcome := <-call.Done
		switch {
		case outcome.Err != nil:
			cp.scheduleBootRetry(cp.conf.Timing.BootRetryInterval)
		case outcome.CallError != nil:
			cp.logger.Error("boot notification refused", outcome.CallError)
			cp.scheduleBootRetry(cp.conf.Timing.BootRetryInterval)
		default:
			response, ok := outcome.Response.(*provisioning.BootNotificationResponse)
			if !ok {
				cp.scheduleBootRetry(cp.conf.Timing.BootRetryInterval)
				return
			}
			cp.handleBootResponse(response)
		}
	}()
}

func (cp *ChargePoint) handleBootResponse(response *provisioning.BootNotificationResponse) {
	cp.logger.FeatureEvent(provisioning.BootNotificationFeatureName, cp.conf.Station.Id,
		fmt.Sprintf("registration %s, interval %d", response.Status, response.Interval))
	cp.mu.Lock()
	cp.registration = response.Status
	if response.Status == provisioning.RegistrationStatusAccepted && response.Interval > 0 {
		cp.heartbeatSec = response.Interval
	}
	interval := cp.heartbeatSec
	startup := !cp.startupSent
	cp.mu.Unlock()

	if response.Status != provisioning.RegistrationStatusAccepted {
		retry := response.Interval
		if retry <= 0 {
			retry = cp.conf.Timing.BootRetryInterval
		}
		cp.scheduleBootRetry(retry)
		return
	}

	cp.variables.SetInternal(devicemodel.CtrlrOCPPComm, "HeartbeatInterval", strconv.Itoa(interval))
	cp.dispatcher.SetBootOnly(false)
	cp.kickHeartbeat()
	if startup {
		cp.mu.Lock()
		cp.startupSent = true
		cp.mu.Unlock()
		cp.SendSecurityEvent(security.EventStartupOfTheDevice, "")
	}
}

func (cp *ChargePoint) scheduleBootRetry(seconds int) {
	if seconds <= 0 {
		seconds = cp.conf.Timing.BootRetryInterval
	}
	cp.mu.Lock()
	if cp.bootTimer != nil {
		cp.bootTimer.Stop()
	}
	reason := cp.bootReason
	cp.bootTimer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		if cp.client.IsConnected() {
			cp.sendBootNotification(reason)
		}
	})
	cp.mu.Unlock()
}

// heartbeat

func (cp *ChargePoint) heartbeatInterval() time.Duration {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.heartbeatSec <= 0 {
		return time.Duration(cp.conf.Timing.HeartbeatInterval) * time.Second
	}
	return time.Duration(cp.heartbeatSec) * time.Second
}

// any outbound message counts as a heartbeat
func (cp *ChargePoint) messageSent(action string) {
	cp.kickHeartbeat()
}

func (cp *ChargePoint) kickHeartbeat() {
	select {
	case cp.heartbeatKick <- struct{}{}:
	default:
	}
}

func (cp *ChargePoint) heartbeatLoop() {
	timer := time.NewTimer(cp.heartbeatInterval())
	defer timer.Stop()
	for {
		select {
		case <-cp.stop:
			return
		case <-cp.heartbeatKick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
			cp.sendHeartbeat(ClassNormal)
		}
		timer.Reset(cp.heartbeatInterval())
	}
}

func (cp *ChargePoint) sendHeartbeat(class MessageClass) {
	if !cp.isAccepted() {
		return
	}
	call, err := cp.dispatcher.SendCall(availability.HeartbeatFeatureName, &availability.HeartbeatRequest{}, class, "")
	if err != nil {
		return
	}
	go func() {
		outcome := <-call.Done
		if response, ok := outcome.Response.(*availability.HeartbeatResponse); ok && response.CurrentTime != nil {
			drift := time.Since(response.CurrentTime.Time)
			if drift < 0 {
				drift = -drift
			}
			if drift > 5*time.Second {
				cp.logger.Warn(fmt.Sprintf("clock drift against csms: %s", drift))
			}
		}
	}()
}

func (cp *ChargePoint) onVariableWrite(component types.Component, variable types.Variable, value string) {
	if component.Name == devicemodel.CtrlrOCPPComm && variable.Name == "HeartbeatInterval" {
		if seconds := utility.ToInt(value); seconds > 0 {
			cp.mu.Lock()
			cp.heartbeatSec = seconds
			cp.mu.Unlock()
			cp.kickHeartbeat()
		}
	}
}

// outbound surface used by the engines

// SendTransactionEvent queues a transaction event through the persistent
// transactional class and relays its terminal outcome.
func (cp *ChargePoint) SendTransactionEvent(request *transactions.TransactionEventRequest, transactionId string) <-chan session.EventOutcome {
	out := make(chan session.EventOutcome, 1)
	call, err := cp.dispatcher.SendCall(transactions.TransactionEventFeatureName, request, ClassTransactional, transactionId)
	if err != nil {
		out <- session.EventOutcome{Err: err}
		return out
	}
	go func() {
		outcome := <-call.Done
		switch {
		case outcome.Err != nil:
			out <- session.EventOutcome{Err: outcome.Err}
		case outcome.CallError != nil:
			out <- session.EventOutcome{Err: outcome.CallError}
		default:
			response, ok := outcome.Response.(*transactions.TransactionEventResponse)
			if !ok {
				out <- session.EventOutcome{Err: utility.Err("unexpected transaction event response type")}
				return
			}
			out <- session.EventOutcome{Response: response}
		}
	}()
	return out
}

// SendStatusNotification queues a status update. With a transaction
// running on the connector the message is transaction-related and
// survives offline periods.
func (cp *ChargePoint) SendStatusNotification(request *availability.StatusNotificationRequest, transactionId string) {
	cp.sendTxAware(availability.StatusNotificationFeatureName, request, transactionId)
}

func (cp *ChargePoint) SendMeterValues(request *metervalues.MeterValuesRequest, transactionId string) {
	cp.sendTxAware(metervalues.MeterValuesFeatureName, request, transactionId)
}

func (cp *ChargePoint) IsOnline() bool {
	return cp.client.IsConnected() && !cp.dispatcher.IsOffline()
}

// Authorize performs a remote Authorize call and waits for the verdict.
func (cp *ChargePoint) Authorize(request *authorization.AuthorizeRequest) (*authorization.AuthorizeResponse, error) {
	call, err := cp.dispatcher.SendCall(authorization.AuthorizeFeatureName, request, ClassNormal, "")
	if err != nil {
		return nil, err
	}
	outcome := <-call.Done
	switch {
	case outcome.Err != nil:
		return nil, outcome.Err
	case outcome.CallError != nil:
		return nil, outcome.CallError
	}
	response, ok := outcome.Response.(*authorization.AuthorizeResponse)
	if !ok {
		return nil, utility.Err("unexpected authorize response type")
	}
	return response, nil
}

// SendSecurityEvent notifies the CSMS and the operator channel. Fields
// are truncated to the wire limits.
func (cp *ChargePoint) SendSecurityEvent(eventType, techInfo string) {
	eventType = utility.Truncate(eventType, 50)
	techInfo = utility.Truncate(techInfo, 255)
	request := security.NewSecurityEventNotificationRequest(eventType, types.NewDateTime(time.Now().UTC()))
	request.TechInfo = techInfo
	cp.sendAsync(security.SecurityEventNotificationFeatureName, request, ClassNormal)
	cp.logger.FeatureEvent(security.SecurityEventNotificationFeatureName, cp.conf.Station.Id, eventType)
	if cp.securityNotifier != nil {
		cp.securityNotifier(eventType, techInfo)
	}
}

// SendDataTransfer issues a host-initiated DataTransfer call.
func (cp *ChargePoint) SendDataTransfer(request *ocpp.DataTransferRequest) (*ocpp.DataTransferResponse, error) {
	call, err := cp.dispatcher.SendCall(ocpp.DataTransferFeatureName, request, ClassNormal, "")
	if err != nil {
		return nil, err
	}
	outcome := <-call.Done
	switch {
	case outcome.Err != nil:
		return nil, outcome.Err
	case outcome.CallError != nil:
		return nil, outcome.CallError
	}
	response, ok := outcome.Response.(*ocpp.DataTransferResponse)
	if !ok {
		return nil, utility.Err("unexpected data transfer response type")
	}
	return response, nil
}

func (cp *ChargePoint) sendAsync(action string, payload ocpp.Request, class MessageClass) {
	if _, err := cp.dispatcher.SendCall(action, payload, class, ""); err != nil {
		cp.logger.Error(fmt.Sprintf("sending %s", action), err)
	}
}

func (cp *ChargePoint) sendTxAware(action string, payload ocpp.Request, transactionId string) {
	class := ClassNormal
	if transactionId != "" {
		class = ClassTransactional
	}
	if _, err := cp.dispatcher.SendCall(action, payload, class, transactionId); err != nil {
		cp.logger.Error(fmt.Sprintf("sending %s", action), err)
	}
}

// inbound dispatch

func (cp *ChargePoint) handleMessage(data []byte) error {
	fields, err := parseJsonArray(data)
	if err != nil {
		return err
	}
	messageType, err := MessageType(fields)
	if err != nil {
		if uniqueId, idErr := MessageUniqueId(fields); idErr == nil {
			return cp.sendReply(uniqueId, nil, NewCallError(uniqueId, FormationViolation, err.Error()))
		}
		return err
	}
	switch messageType {
	case CallTypeResult:
		result, err := ParseResult(fields)
		if err != nil {
			return err
		}
		cp.dispatcher.Resolve(result)
	case CallTypeError:
		callError, err := ParseError(fields)
		if err != nil {
			return err
		}
		cp.dispatcher.ResolveError(callError)
	default:
		return cp.handleCall(fields)
	}
	return nil
}

func (cp *ChargePoint) handleCall(fields []interface{}) error {
	if uniqueId, err := MessageUniqueId(fields); err == nil {
		if cached, ok := cp.replies.Get(uniqueId); ok {
			cp.logger.Debug(fmt.Sprintf("replaying cached reply for %s", uniqueId))
			return cp.client.Send(cached)
		}
	}
	call, callError := ParseCall(fields)
	if callError != nil {
		return cp.sendReply(callError.UniqueId, nil, callError)
	}
	counters.CountCallReceived(call.Action)
	if !cp.actionAllowed(call.Action) {
		return cp.sendReply(call.UniqueId, nil,
			NewCallError(call.UniqueId, SecurityError, "not accepted by csms yet"))
	}
	response, respError := cp.dispatch(call)
	return cp.sendReply(call.UniqueId, response, respError)
}

func (cp *ChargePoint) sendReply(uniqueId string, response ocpp.Response, callError *CallError) error {
	var data []byte
	var err error
	if callError != nil {
		data, err = callError.MarshalJSON()
	} else {
		result := &CallResult{UniqueId: uniqueId, Payload: response}
		data, err = result.MarshalJSON()
	}
	if err != nil {
		data, _ = NewCallError(uniqueId, InternalError, err.Error()).MarshalJSON()
	}
	if callError != nil {
		cp.reportFault(string(callError.Code), callError.Description)
	}
	if uniqueId != "" {
		cp.replies.Put(uniqueId, data)
	}
	return cp.client.Send(data)
}

// actionAllowed gates inbound calls while registration is not Accepted.
// Remote start/stop stay allowed so they can be answered Rejected.
func (cp *ChargePoint) actionAllowed(action string) bool {
	if cp.isAccepted() {
		return true
	}
	switch action {
	case provisioning.GetVariablesFeatureName,
		provisioning.SetVariablesFeatureName,
		provisioning.GetBaseReportFeatureName,
		provisioning.GetReportFeatureName,
		remotecontrol.TriggerMessageFeatureName,
		remotecontrol.RequestStartTransactionFeatureName,
		remotecontrol.RequestStopTransactionFeatureName,
		security.CertificateSignedFeatureName,
		security.InstallCertificateFeatureName,
		security.DeleteCertificateFeatureName,
		security.GetInstalledCertificateIdsFeatureName:
		return true
	default:
		return false
	}
}

func (cp *ChargePoint) dispatch(call *Call) (ocpp.Response, *CallError) {
	switch request := call.Payload.(type) {
	case *provisioning.GetVariablesRequest:
		return &provisioning.GetVariablesResponse{GetVariableResult: cp.variables.GetVariables(request.GetVariableData)}, nil
	case *provisioning.SetVariablesRequest:
		return &provisioning.SetVariablesResponse{SetVariableResult: cp.variables.SetVariables(request.SetVariableData, devicemodel.SourceCSMS)}, nil
	case *provisioning.GetBaseReportRequest:
		return cp.handleGetBaseReport(request), nil
	case *provisioning.GetReportRequest:
		return cp.handleGetReport(request), nil
	case *provisioning.ResetRequest:
		return cp.handleReset(request), nil
	case *availability.ChangeAvailabilityRequest:
		return cp.handleChangeAvailability(request), nil
	case *authorization.ClearCacheRequest:
		return cp.handleClearCache(), nil
	case *localauth.SendLocalListRequest:
		return &localauth.SendLocalListResponse{Status: cp.authService.ApplyLocalList(request)}, nil
	case *localauth.GetLocalListVersionRequest:
		return &localauth.GetLocalListVersionResponse{VersionNumber: cp.authService.ListVersion()}, nil
	case *remotecontrol.RequestStartTransactionRequest:
		return cp.handleRequestStart(request), nil
	case *remotecontrol.RequestStopTransactionRequest:
		return cp.handleRequestStop(request), nil
	case *remotecontrol.TriggerMessageRequest:
		return cp.handleTriggerMessage(request), nil
	case *remotecontrol.UnlockConnectorRequest:
		return cp.handleUnlockConnector(request), nil
	case *smartcharging.SetChargingProfileRequest:
		return cp.handleSetChargingProfile(request), nil
	case *smartcharging.ClearChargingProfileRequest:
		return &smartcharging.ClearChargingProfileResponse{Status: cp.profiles.Clear(request)}, nil
	case *smartcharging.GetChargingProfilesRequest:
		return cp.handleGetChargingProfiles(request), nil
	case *smartcharging.GetCompositeScheduleRequest:
		return cp.handleGetCompositeSchedule(request), nil
	case *security.CertificateSignedRequest:
		return cp.handleCertificateSigned(request), nil
	case *security.InstallCertificateRequest:
		return &security.InstallCertificateResponse{Status: cp.certificates.Install(request.CertificateType, request.Certificate)}, nil
	case *security.DeleteCertificateRequest:
		return &security.DeleteCertificateResponse{Status: cp.certificates.Delete(request.CertificateHashData)}, nil
	case *security.GetInstalledCertificateIdsRequest:
		return cp.handleGetInstalledCertificateIds(request), nil
	case *display.SetDisplayMessageRequest:
		return &display.SetDisplayMessageResponse{Status: cp.displays.SetMessage(request.Message)}, nil
	case *display.GetDisplayMessagesRequest:
		return cp.handleGetDisplayMessages(request), nil
	case *display.ClearDisplayMessageRequest:
		return &display.ClearDisplayMessageResponse{Status: cp.displays.ClearMessage(request.Id)}, nil
	case *display.CostUpdatedRequest:
		cp.costs.OnCostUpdated(request.TransactionId, request.TotalCost)
		return &display.CostUpdatedResponse{}, nil
	case *transactions.GetTransactionStatusRequest:
		return cp.handleGetTransactionStatus(request), nil
	case *diagnostics.SetVariableMonitoringRequest:
		return &diagnostics.SetVariableMonitoringResponse{SetMonitoringResult: cp.variables.SetMonitoring(request.SetMonitoringData)}, nil
	case *diagnostics.ClearVariableMonitoringRequest:
		return &diagnostics.ClearVariableMonitoringResponse{ClearMonitoringResult: cp.variables.ClearMonitoring(request.Id)}, nil
	case *diagnostics.GetMonitoringReportRequest:
		return cp.handleGetMonitoringReport(request), nil
	case *diagnostics.GetLogRequest:
		return cp.handleGetLog(request), nil
	case *ocpp.DataTransferRequest:
		return ocpp.NewDataTransferResponse(ocpp.DataTransferStatusUnknownVendorId), nil
	default:
		return nil, NewCallError(call.UniqueId, NotImplemented, fmt.Sprintf("no handler for %s", call.Action))
	}
}

// provisioning handlers

func (cp *ChargePoint) handleGetBaseReport(request *provisioning.GetBaseReportRequest) *provisioning.GetBaseReportResponse {
	data := cp.variables.BaseReport(request.ReportBase)
	if len(data) == 0 {
		return &provisioning.GetBaseReportResponse{Status: types.GenericDeviceModelStatusEmptyResultSet}
	}
	go cp.sendNotifyReport(request.RequestId, data)
	return &provisioning.GetBaseReportResponse{Status: types.GenericDeviceModelStatusAccepted}
}

func (cp *ChargePoint) handleGetReport(request *provisioning.GetReportRequest) *provisioning.GetReportResponse {
	data := cp.variables.Report(request.ComponentCriteria, request.ComponentVariable)
	if len(data) == 0 {
		return &provisioning.GetReportResponse{Status: types.GenericDeviceModelStatusEmptyResultSet}
	}
	go cp.sendNotifyReport(request.RequestId, data)
	return &provisioning.GetReportResponse{Status: types.GenericDeviceModelStatusAccepted}
}

func (cp *ChargePoint) itemsPerMessage(componentName, instance string) int {
	return cp.variables.InstanceIntValue(componentName, "ItemsPerMessage", instance, 20)
}

func (cp *ChargePoint) sendNotifyReport(requestId int, data []provisioning.ReportData) {
	page := cp.itemsPerMessage(devicemodel.CtrlrDeviceData, "GetReport")
	generated := types.NewDateTime(time.Now().UTC())
	for seqNo, start := 0, 0; ; seqNo++ {
		end := start + page
		if end > len(data) {
			end = len(data)
		}
		request := &provisioning.NotifyReportRequest{
			RequestId:   requestId,
			GeneratedAt: generated,
			SeqNo:       seqNo,
			Tbc:         end < len(data),
			ReportData:  data[start:end],
		}
		call, err := cp.dispatcher.SendCall(provisioning.NotifyReportFeatureName, request, ClassNormal, "")
		if err != nil {
			cp.logger.Error("sending notify report", err)
			return
		}
		<-call.Done
		if end >= len(data) {
			return
		}
		start = end
	}
}

func (cp *ChargePoint) handleReset(request *provisioning.ResetRequest) *provisioning.ResetResponse {
	if request.EvseId != nil {
		return &provisioning.ResetResponse{
			Status:     provisioning.ResetStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "EvseResetNotSupported"},
		}
	}
	switch request.Type {
	case provisioning.ResetTypeImmediate:
		go cp.restart(true)
		return &provisioning.ResetResponse{Status: provisioning.ResetStatusAccepted}
	case provisioning.ResetTypeOnIdle:
		if !cp.sessions.AnyActiveTransaction() {
			go cp.restart(false)
			return &provisioning.ResetResponse{Status: provisioning.ResetStatusAccepted}
		}
		go cp.restartWhenIdle()
		return &provisioning.ResetResponse{Status: provisioning.ResetStatusScheduled}
	}
	return &provisioning.ResetResponse{Status: provisioning.ResetStatusRejected}
}

func (cp *ChargePoint) restart(stopTransactions bool) {
	cp.SendSecurityEvent(security.EventResetOrReboot, "csms reset request")
	if stopTransactions {
		cp.sessions.StopAll(transactions.ReasonImmediateReset)
	}
	// let the ended events reach the persistent queue before going down
	time.Sleep(time.Second)
	if cp.onRestart != nil {
		cp.onRestart()
	}
}

func (cp *ChargePoint) restartWhenIdle() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-cp.stop:
			return
		case <-ticker.C:
			if !cp.sessions.AnyActiveTransaction() {
				cp.restart(false)
				return
			}
		}
	}
}

// availability and authorization handlers

func (cp *ChargePoint) handleChangeAvailability(request *availability.ChangeAvailabilityRequest) *availability.ChangeAvailabilityResponse {
	evseId := 0
	if request.Evse != nil {
		evseId = request.Evse.Id
	}
	operative := request.OperationalStatus == availability.OperationalStatusOperative
	return &availability.ChangeAvailabilityResponse{Status: cp.sessions.ChangeAvailability(evseId, operative)}
}

func (cp *ChargePoint) handleClearCache() *authorization.ClearCacheResponse {
	if err := cp.authService.ClearCache(); err != nil {
		cp.logger.Error("clearing auth cache", err)
		return &authorization.ClearCacheResponse{Status: authorization.ClearCacheStatusRejected}
	}
	return &authorization.ClearCacheResponse{Status: authorization.ClearCacheStatusAccepted}
}

// remote control handlers

func (cp *ChargePoint) handleRequestStart(request *remotecontrol.RequestStartTransactionRequest) *remotecontrol.RequestStartTransactionResponse {
	if !cp.isAccepted() {
		return &remotecontrol.RequestStartTransactionResponse{
			Status:     remotecontrol.RequestStartStopStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "NotRegistered"},
		}
	}
	if !cp.sessions.RemoteStart(session.NewRemoteStart(request.EvseId, request.RemoteStartId, request.IdToken)) {
		return &remotecontrol.RequestStartTransactionResponse{Status: remotecontrol.RequestStartStopStatusRejected}
	}
	response := &remotecontrol.RequestStartTransactionResponse{Status: remotecontrol.RequestStartStopStatusAccepted}
	if request.EvseId != nil {
		if request.ChargingProfile != nil {
			if status, reason := cp.profiles.Install(*request.EvseId, request.ChargingProfile); status != smartcharging.ChargingProfileStatusAccepted {
				cp.logger.Warn(fmt.Sprintf("remote start profile rejected: %s", reason))
			}
		}
		if transactionId, ok := cp.sessions.TransactionId(*request.EvseId); ok {
			response.TransactionId = transactionId
		}
	}
	return response
}

func (cp *ChargePoint) handleRequestStop(request *remotecontrol.RequestStopTransactionRequest) *remotecontrol.RequestStopTransactionResponse {
	if cp.sessions.RemoteStop(request.TransactionId) {
		return &remotecontrol.RequestStopTransactionResponse{Status: remotecontrol.RequestStartStopStatusAccepted}
	}
	return &remotecontrol.RequestStopTransactionResponse{Status: remotecontrol.RequestStartStopStatusRejected}
}

func (cp *ChargePoint) handleUnlockConnector(request *remotecontrol.UnlockConnectorRequest) *remotecontrol.UnlockConnectorResponse {
	if _, ok := cp.sessions.Status(request.EvseId); !ok {
		return remotecontrol.NewUnlockConnectorResponse(remotecontrol.UnlockStatusUnknownConnector)
	}
	if cp.sessions.HasActiveTransaction(request.EvseId) {
		return remotecontrol.NewUnlockConnectorResponse(remotecontrol.UnlockStatusOngoingAuthorizedTransaction)
	}
	return remotecontrol.NewUnlockConnectorResponse(remotecontrol.UnlockStatusUnlocked)
}

// smart charging handlers

func (cp *ChargePoint) handleSetChargingProfile(request *smartcharging.SetChargingProfileRequest) *smartcharging.SetChargingProfileResponse {
	status, reason := cp.profiles.Install(request.EvseId, request.ChargingProfile)
	response := &smartcharging.SetChargingProfileResponse{Status: status}
	if reason != "" {
		response.StatusInfo = &types.StatusInfo{ReasonCode: reason}
	}
	return response
}

func (cp *ChargePoint) handleGetChargingProfiles(request *smartcharging.GetChargingProfilesRequest) *smartcharging.GetChargingProfilesResponse {
	matching := cp.profiles.Matching(request.EvseId, &request.ChargingProfile)
	if len(matching) == 0 {
		return &smartcharging.GetChargingProfilesResponse{Status: smartcharging.GetChargingProfileStatusNoProfiles}
	}
	go cp.reportChargingProfiles(request.RequestId, matching)
	return &smartcharging.GetChargingProfilesResponse{Status: smartcharging.GetChargingProfileStatusAccepted}
}

func (cp *ChargePoint) reportChargingProfiles(requestId int, matching map[int][]types.ChargingProfile) {
	evseIds := make([]int, 0, len(matching))
	for evseId := range matching {
		evseIds = append(evseIds, evseId)
	}
	sort.Ints(evseIds)
	for i, evseId := range evseIds {
		request := smartcharging.NewReportChargingProfilesRequest(requestId, evseId, matching[evseId])
		request.Tbc = i+1 < len(evseIds)
		call, err := cp.dispatcher.SendCall(smartcharging.ReportChargingProfilesFeatureName, request, ClassNormal, "")
		if err != nil {
			cp.logger.Error("reporting charging profiles", err)
			return
		}
		<-call.Done
	}
}

func (cp *ChargePoint) handleGetCompositeSchedule(request *smartcharging.GetCompositeScheduleRequest) *smartcharging.GetCompositeScheduleResponse {
	if request.EvseId != 0 {
		if _, ok := cp.sessions.Status(request.EvseId); !ok {
			return &smartcharging.GetCompositeScheduleResponse{
				Status:     types.GenericStatusRejected,
				StatusInfo: &types.StatusInfo{ReasonCode: "UnknownEvse"},
			}
		}
	}
	schedule := cp.profiles.Composite(request.EvseId, request.Duration, request.ChargingRateUnit, time.Now().UTC())
	return &smartcharging.GetCompositeScheduleResponse{Status: types.GenericStatusAccepted, Schedule: schedule}
}

// security handlers

func (cp *ChargePoint) handleCertificateSigned(request *security.CertificateSignedRequest) *security.CertificateSignedResponse {
	if request.CertificateType == security.V2GCertificate {
		return &security.CertificateSignedResponse{
			Status:     security.CertificateSignedStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "NotSupported"},
		}
	}
	status := cp.certificates.ApplySignedChain(request.CertificateChain)
	if status != security.CertificateSignedStatusAccepted {
		cp.SendSecurityEvent(security.EventInvalidChargingStationCert, "signed chain rejected")
	}
	return &security.CertificateSignedResponse{Status: status}
}

func (cp *ChargePoint) handleGetInstalledCertificateIds(request *security.GetInstalledCertificateIdsRequest) *security.GetInstalledCertificateIdsResponse {
	chains := cp.certificates.InstalledIds(request.CertificateType)
	if len(chains) == 0 {
		return &security.GetInstalledCertificateIdsResponse{Status: security.GetInstalledCertificateStatusNotFound}
	}
	return &security.GetInstalledCertificateIdsResponse{
		Status:                   security.GetInstalledCertificateStatusAccepted,
		CertificateHashDataChain: chains,
	}
}

func (cp *ChargePoint) sendSignCertificate(class MessageClass) {
	csr, err := cp.certificates.GenerateCSR(cp.conf.Station.Id)
	if err != nil {
		cp.logger.Error("generating csr", err)
		return
	}
	request := &security.SignCertificateRequest{CSR: csr, CertificateType: security.ChargingStationCert}
	call, err := cp.dispatcher.SendCall(security.SignCertificateFeatureName, request, class, "")
	if err != nil {
		cp.logger.Error("sending sign certificate", err)
		return
	}
	go func() {
		outcome := <-call.Done
		if response, ok := outcome.Response.(*security.SignCertificateResponse); ok {
			cp.logger.FeatureEvent(security.SignCertificateFeatureName, cp.conf.Station.Id, string(response.Status))
		}
	}()
}

// display handlers

func (cp *ChargePoint) handleGetDisplayMessages(request *display.GetDisplayMessagesRequest) *display.GetDisplayMessagesResponse {
	messages := cp.displays.Messages(request.Id, request.Priority, request.State)
	if len(messages) == 0 {
		return &display.GetDisplayMessagesResponse{Status: display.GetDisplayMessagesStatusUnknown}
	}
	cp.sendAsync(display.NotifyDisplayMessagesFeatureName, &display.NotifyDisplayMessagesRequest{
		RequestId:   request.RequestId,
		MessageInfo: messages,
	}, ClassNormal)
	return &display.GetDisplayMessagesResponse{Status: display.GetDisplayMessagesStatusAccepted}
}

// transaction status

func (cp *ChargePoint) handleGetTransactionStatus(request *transactions.GetTransactionStatusRequest) *transactions.GetTransactionStatusResponse {
	if request.TransactionId == "" {
		return &transactions.GetTransactionStatusResponse{MessagesInQueue: cp.queue.PendingTransactional() > 0}
	}
	ongoing := cp.sessions.KnownTransaction(request.TransactionId)
	return &transactions.GetTransactionStatusResponse{
		OngoingIndicator: &ongoing,
		MessagesInQueue:  cp.queue.HasTransactionMessages(request.TransactionId),
	}
}

// monitoring handlers

func (cp *ChargePoint) handleGetMonitoringReport(request *diagnostics.GetMonitoringReportRequest) *diagnostics.GetMonitoringReportResponse {
	data := cp.variables.MonitoringReport(request.MonitoringCriteria, request.ComponentVariable)
	if len(data) == 0 {
		return &diagnostics.GetMonitoringReportResponse{Status: types.GenericDeviceModelStatusEmptyResultSet}
	}
	go cp.sendMonitoringReport(request.RequestId, data)
	return &diagnostics.GetMonitoringReportResponse{Status: types.GenericDeviceModelStatusAccepted}
}

func (cp *ChargePoint) sendMonitoringReport(requestId int, data []diagnostics.MonitoringData) {
	page := cp.itemsPerMessage(devicemodel.CtrlrMonitoring, "SetVariableMonitoring")
	generated := types.NewDateTime(time.Now().UTC())
	for seqNo, start := 0, 0; ; seqNo++ {
		end := start + page
		if end > len(data) {
			end = len(data)
		}
		request := &diagnostics.NotifyMonitoringReportRequest{
			RequestId:   requestId,
			GeneratedAt: generated,
			SeqNo:       seqNo,
			Tbc:         end < len(data),
			Monitor:     data[start:end],
		}
		call, err := cp.dispatcher.SendCall(diagnostics.NotifyMonitoringReportFeatureName, request, ClassNormal, "")
		if err != nil {
			cp.logger.Error("sending monitoring report", err)
			return
		}
		<-call.Done
		if end >= len(data) {
			return
		}
		start = end
	}
}

// eventPump forwards monitor events from the device model. Each event
// goes out on its own, strictly after the write that raised it.
func (cp *ChargePoint) eventPump() {
	for {
		select {
		case <-cp.stop:
			return
		case event := <-cp.variables.Events():
			request := &diagnostics.NotifyEventRequest{
				GeneratedAt: types.NewDateTime(time.Now().UTC()),
				EventData:   []diagnostics.EventData{event},
			}
			cp.sendAsync(diagnostics.NotifyEventFeatureName, request, ClassNormal)
		}
	}
}

// log upload

func (cp *ChargePoint) handleGetLog(request *diagnostics.GetLogRequest) *diagnostics.GetLogResponse {
	if cp.logSource == nil {
		return &diagnostics.GetLogResponse{
			Status:     diagnostics.LogStatusRejected,
			StatusInfo: &types.StatusInfo{ReasonCode: "NoLogSource"},
		}
	}
	filename := utility.Truncate(fmt.Sprintf("%s_%d.log", cp.conf.Station.Id, request.RequestId), 255)
	go cp.uploadLog(request, filename)
	return &diagnostics.GetLogResponse{Status: diagnostics.LogStatusAccepted, Filename: filename}
}

func (cp *ChargePoint) uploadLog(request *diagnostics.GetLogRequest, filename string) {
	cp.sendLogStatus(diagnostics.UploadLogStatusUploading, request.RequestId)
	content, err := cp.logSource(request.LogType)
	if err != nil {
		cp.logger.Error("rendering log for upload", err)
		cp.sendLogStatus(diagnostics.UploadLogStatusUploadFailure, request.RequestId)
		return
	}
	url := strings.TrimRight(request.Log.RemoteLocation, "/") + "/" + filename
	response, err := http.Post(url, "text/plain", strings.NewReader(content))
	if err != nil {
		cp.logger.Error("uploading log", err)
		cp.sendLogStatus(diagnostics.UploadLogStatusUploadFailure, request.RequestId)
		return
	}
	_ = response.Body.Close()
	if response.StatusCode >= 300 {
		cp.logger.Warn(fmt.Sprintf("log upload answered %s", response.Status))
		cp.sendLogStatus(diagnostics.UploadLogStatusUploadFailure, request.RequestId)
		return
	}
	cp.sendLogStatus(diagnostics.UploadLogStatusUploaded, request.RequestId)
}

func (cp *ChargePoint) sendLogStatus(status diagnostics.UploadLogStatus, requestId int) {
	cp.mu.Lock()
	cp.lastLogStatus = status
	cp.lastLogRequest = requestId
	cp.mu.Unlock()
	cp.sendAsync(diagnostics.LogStatusNotificationFeatureName, &diagnostics.LogStatusNotificationRequest{
		Status:    status,
		RequestId: requestId,
	}, ClassNormal)
}
