package station

import (
	"time"

	"evcp/devicemodel"
	"evcp/ocpp/availability"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/remotecontrol"
	"evcp/ocpp/types"
)

// handleTriggerMessage answers TriggerMessage and fires the requested
// message. Triggered sends use the trigger class: they are not retried.
func (cp *ChargePoint) handleTriggerMessage(request *remotecontrol.TriggerMessageRequest) *remotecontrol.TriggerMessageResponse {
	switch request.RequestedMessage {
	case remotecontrol.MessageTriggerBootNotification:
		go cp.sendBootNotification(provisioning.BootReasonTriggered)
		return triggerAccepted()

	case remotecontrol.MessageTriggerHeartbeat:
		if !cp.isAccepted() {
			return triggerRejected()
		}
		go cp.sendHeartbeat(ClassTrigger)
		return triggerAccepted()

	case remotecontrol.MessageTriggerMeterValues:
		targets, ok := cp.triggerTargets(request.Evse)
		if !ok {
			return triggerRejected()
		}
		sent := false
		for _, evseId := range targets {
			if cp.sessions.TriggerMeterValues(evseId) {
				sent = true
			}
		}
		if !sent {
			return triggerRejected()
		}
		return triggerAccepted()

	case remotecontrol.MessageTriggerStatusNotification:
		targets, ok := cp.triggerTargets(request.Evse)
		if !ok {
			return triggerRejected()
		}
		sent := false
		for _, evseId := range targets {
			if cp.resendStatus(evseId) {
				sent = true
			}
		}
		if !sent {
			return triggerRejected()
		}
		return triggerAccepted()

	case remotecontrol.MessageTriggerTransactionEvent:
		targets, ok := cp.triggerTargets(request.Evse)
		if !ok {
			return triggerRejected()
		}
		sent := false
		for _, evseId := range targets {
			if cp.sessions.TriggerTransactionEvent(evseId) {
				sent = true
			}
		}
		if !sent {
			return triggerRejected()
		}
		return triggerAccepted()

	case remotecontrol.MessageTriggerLogStatusNotification:
		cp.mu.Lock()
		status := cp.lastLogStatus
		requestId := cp.lastLogRequest
		cp.mu.Unlock()
		go cp.sendLogStatus(status, requestId)
		return triggerAccepted()

	case remotecontrol.MessageTriggerSignChargingStationCertificate:
		go cp.sendSignCertificate(ClassTrigger)
		return triggerAccepted()

	default:
		return &remotecontrol.TriggerMessageResponse{Status: remotecontrol.TriggerMessageStatusNotImplemented}
	}
}

// triggerTargets resolves the EVSEs a trigger addresses. Without an
// evse the request covers all connectors only when the customization
// switch allows it.
func (cp *ChargePoint) triggerTargets(evse *types.EVSE) ([]int, bool) {
	if evse != nil {
		if _, ok := cp.sessions.Status(evse.Id); !ok {
			return nil, false
		}
		return []int{evse.Id}, true
	}
	if !cp.variables.BoolValue(devicemodel.CtrlrCustomization, "TriggerAllConnectors") {
		return nil, false
	}
	return cp.sessions.EvseIds(), true
}

func (cp *ChargePoint) resendStatus(evseId int) bool {
	status, ok := cp.sessions.Status(evseId)
	if !ok {
		return false
	}
	request := &availability.StatusNotificationRequest{
		Timestamp:       types.NewDateTime(time.Now().UTC()),
		ConnectorStatus: status,
		EvseId:          evseId,
		ConnectorId:     1,
	}
	cp.sendAsync(availability.StatusNotificationFeatureName, request, ClassTrigger)
	return true
}

func triggerAccepted() *remotecontrol.TriggerMessageResponse {
	return &remotecontrol.TriggerMessageResponse{Status: remotecontrol.TriggerMessageStatusAccepted}
}

func triggerRejected() *remotecontrol.TriggerMessageResponse {
	return &remotecontrol.TriggerMessageResponse{Status: remotecontrol.TriggerMessageStatusRejected}
}
