package display

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const SetDisplayMessageFeatureName = "SetDisplayMessage"

type MessagePriority string
type MessageState string
type DisplayMessageStatus string

const (
	MessagePriorityAlwaysFront MessagePriority = "AlwaysFront"
	MessagePriorityInFront     MessagePriority = "InFront"
	MessagePriorityNormalCycle MessagePriority = "NormalCycle"

	MessageStateCharging    MessageState = "Charging"
	MessageStateFaulted     MessageState = "Faulted"
	MessageStateIdle        MessageState = "Idle"
	MessageStateUnavailable MessageState = "Unavailable"

	DisplayMessageStatusAccepted                  DisplayMessageStatus = "Accepted"
	DisplayMessageStatusNotSupportedMessageFormat DisplayMessageStatus = "NotSupportedMessageFormat"
	DisplayMessageStatusRejected                  DisplayMessageStatus = "Rejected"
	DisplayMessageStatusNotSupportedPriority      DisplayMessageStatus = "NotSupportedPriority"
	DisplayMessageStatusNotSupportedState         DisplayMessageStatus = "NotSupportedState"
	DisplayMessageStatusUnknownTransaction        DisplayMessageStatus = "UnknownTransaction"
)

func isValidMessagePriority(fl validator.FieldLevel) bool {
	switch MessagePriority(fl.Field().String()) {
	case MessagePriorityAlwaysFront, MessagePriorityInFront, MessagePriorityNormalCycle:
		return true
	default:
		return false
	}
}

func isValidMessageState(fl validator.FieldLevel) bool {
	switch MessageState(fl.Field().String()) {
	case MessageStateCharging, MessageStateFaulted, MessageStateIdle, MessageStateUnavailable:
		return true
	default:
		return false
	}
}

func isValidDisplayMessageStatus(fl validator.FieldLevel) bool {
	switch DisplayMessageStatus(fl.Field().String()) {
	case DisplayMessageStatusAccepted, DisplayMessageStatusNotSupportedMessageFormat,
		DisplayMessageStatusRejected, DisplayMessageStatusNotSupportedPriority,
		DisplayMessageStatusNotSupportedState, DisplayMessageStatusUnknownTransaction:
		return true
	default:
		return false
	}
}

type MessageInfo struct {
	Id            int                  `json:"id" validate:"gte=0"`
	Priority      MessagePriority      `json:"priority" validate:"required,messagePriority"`
	State         MessageState         `json:"state,omitempty" validate:"omitempty,messageState"`
	StartDateTime *types.DateTime      `json:"startDateTime,omitempty"`
	EndDateTime   *types.DateTime      `json:"endDateTime,omitempty"`
	TransactionId string               `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	Message       types.MessageContent `json:"message" validate:"required"`
	Display       *types.Component     `json:"display,omitempty"`
}

type SetDisplayMessageRequest struct {
	Message MessageInfo `json:"message" validate:"required"`
}

type SetDisplayMessageResponse struct {
	Status     DisplayMessageStatus `json:"status" validate:"required,displayMessageStatus"`
	StatusInfo *types.StatusInfo    `json:"statusInfo,omitempty"`
}

type SetDisplayMessageFeature struct{}

func (f SetDisplayMessageFeature) GetFeatureName() string {
	return SetDisplayMessageFeatureName
}

func (f SetDisplayMessageFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SetDisplayMessageRequest{})
}

func (f SetDisplayMessageFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SetDisplayMessageResponse{})
}

func (r SetDisplayMessageRequest) GetFeatureName() string {
	return SetDisplayMessageFeatureName
}

func (c SetDisplayMessageResponse) GetFeatureName() string {
	return SetDisplayMessageFeatureName
}

func NewSetDisplayMessageResponse(status DisplayMessageStatus) *SetDisplayMessageResponse {
	return &SetDisplayMessageResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("messagePriority", isValidMessagePriority)
	_ = types.Validate.RegisterValidation("messageState", isValidMessageState)
	_ = types.Validate.RegisterValidation("displayMessageStatus", isValidDisplayMessageStatus)
}
