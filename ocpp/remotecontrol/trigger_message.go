package remotecontrol

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const TriggerMessageFeatureName = "TriggerMessage"

type MessageTrigger string
type TriggerMessageStatus string

const (
	MessageTriggerBootNotification                  MessageTrigger = "BootNotification"
	MessageTriggerLogStatusNotification             MessageTrigger = "LogStatusNotification"
	MessageTriggerFirmwareStatusNotification        MessageTrigger = "FirmwareStatusNotification"
	MessageTriggerHeartbeat                         MessageTrigger = "Heartbeat"
	MessageTriggerMeterValues                       MessageTrigger = "MeterValues"
	MessageTriggerSignChargingStationCertificate    MessageTrigger = "SignChargingStationCertificate"
	MessageTriggerSignV2GCertificate                MessageTrigger = "SignV2GCertificate"
	MessageTriggerStatusNotification                MessageTrigger = "StatusNotification"
	MessageTriggerTransactionEvent                  MessageTrigger = "TransactionEvent"
	MessageTriggerSignCombinedCertificate           MessageTrigger = "SignCombinedCertificate"
	MessageTriggerPublishFirmwareStatusNotification MessageTrigger = "PublishFirmwareStatusNotification"

	TriggerMessageStatusAccepted       TriggerMessageStatus = "Accepted"
	TriggerMessageStatusRejected       TriggerMessageStatus = "Rejected"
	TriggerMessageStatusNotImplemented TriggerMessageStatus = "NotImplemented"
)

func isValidMessageTrigger(fl validator.FieldLevel) bool {
	switch MessageTrigger(fl.Field().String()) {
	case MessageTriggerBootNotification, MessageTriggerLogStatusNotification,
		MessageTriggerFirmwareStatusNotification, MessageTriggerHeartbeat, MessageTriggerMeterValues,
		MessageTriggerSignChargingStationCertificate, MessageTriggerSignV2GCertificate,
		MessageTriggerStatusNotification, MessageTriggerTransactionEvent,
		MessageTriggerSignCombinedCertificate, MessageTriggerPublishFirmwareStatusNotification:
		return true
	default:
		return false
	}
}

func isValidTriggerMessageStatus(fl validator.FieldLevel) bool {
	switch TriggerMessageStatus(fl.Field().String()) {
	case TriggerMessageStatusAccepted, TriggerMessageStatusRejected, TriggerMessageStatusNotImplemented:
		return true
	default:
		return false
	}
}

type TriggerMessageRequest struct {
	RequestedMessage MessageTrigger `json:"requestedMessage" validate:"required,messageTrigger"`
	Evse             *types.EVSE    `json:"evse,omitempty"`
}

type TriggerMessageResponse struct {
	Status     TriggerMessageStatus `json:"status" validate:"required,triggerMessageStatus"`
	StatusInfo *types.StatusInfo    `json:"statusInfo,omitempty"`
}

type TriggerMessageFeature struct{}

func (f TriggerMessageFeature) GetFeatureName() string {
	return TriggerMessageFeatureName
}

func (f TriggerMessageFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(TriggerMessageRequest{})
}

func (f TriggerMessageFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(TriggerMessageResponse{})
}

func (r TriggerMessageRequest) GetFeatureName() string {
	return TriggerMessageFeatureName
}

func (c TriggerMessageResponse) GetFeatureName() string {
	return TriggerMessageFeatureName
}

func NewTriggerMessageRequest(message MessageTrigger) *TriggerMessageRequest {
	return &TriggerMessageRequest{RequestedMessage: message}
}

func NewTriggerMessageResponse(status TriggerMessageStatus) *TriggerMessageResponse {
	return &TriggerMessageResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("messageTrigger", isValidMessageTrigger)
	_ = types.Validate.RegisterValidation("triggerMessageStatus", isValidTriggerMessageStatus)
}
