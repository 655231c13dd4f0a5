package diagnostics

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const NotifyEventFeatureName = "NotifyEvent"

type EventTrigger string
type EventNotificationType string

const (
	EventTriggerAlerting EventTrigger = "Alerting"
	EventTriggerDelta    EventTrigger = "Delta"
	EventTriggerPeriodic EventTrigger = "Periodic"

	EventHardWiredNotification EventNotificationType = "HardWiredNotification"
	EventHardWiredMonitor      EventNotificationType = "HardWiredMonitor"
	EventPreconfiguredMonitor  EventNotificationType = "PreconfiguredMonitor"
	EventCustomMonitor         EventNotificationType = "CustomMonitor"
)

func isValidEventTrigger(fl validator.FieldLevel) bool {
	switch EventTrigger(fl.Field().String()) {
	case EventTriggerAlerting, EventTriggerDelta, EventTriggerPeriodic:
		return true
	default:
		return false
	}
}

func isValidEventNotificationType(fl validator.FieldLevel) bool {
	switch EventNotificationType(fl.Field().String()) {
	case EventHardWiredNotification, EventHardWiredMonitor, EventPreconfiguredMonitor, EventCustomMonitor:
		return true
	default:
		return false
	}
}

type EventData struct {
	EventId               int                   `json:"eventId" validate:"gte=0"`
	Timestamp             *types.DateTime       `json:"timestamp" validate:"required"`
	Trigger               EventTrigger          `json:"trigger" validate:"required,eventTrigger"`
	Cause                 *int                  `json:"cause,omitempty"`
	ActualValue           string                `json:"actualValue" validate:"required,max=2500"`
	TechCode              string                `json:"techCode,omitempty" validate:"omitempty,max=50"`
	TechInfo              string                `json:"techInfo,omitempty" validate:"omitempty,max=500"`
	Cleared               bool                  `json:"cleared,omitempty"`
	TransactionId         string                `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	VariableMonitoringId  *int                  `json:"variableMonitoringId,omitempty"`
	EventNotificationType EventNotificationType `json:"eventNotificationType" validate:"required,eventNotificationType"`
	Component             types.Component       `json:"component" validate:"required"`
	Variable              types.Variable        `json:"variable" validate:"required"`
}

type NotifyEventRequest struct {
	GeneratedAt *types.DateTime `json:"generatedAt" validate:"required"`
	Tbc         bool            `json:"tbc,omitempty"`
	SeqNo       int             `json:"seqNo" validate:"gte=0"`
	EventData   []EventData     `json:"eventData" validate:"required,min=1,dive"`
}

type NotifyEventResponse struct {
}

type NotifyEventFeature struct{}

func (f NotifyEventFeature) GetFeatureName() string {
	return NotifyEventFeatureName
}

func (f NotifyEventFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(NotifyEventRequest{})
}

func (f NotifyEventFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(NotifyEventResponse{})
}

func (r NotifyEventRequest) GetFeatureName() string {
	return NotifyEventFeatureName
}

func (c NotifyEventResponse) GetFeatureName() string {
	return NotifyEventFeatureName
}

func NewNotifyEventRequest(generatedAt *types.DateTime, seqNo int, events []EventData) *NotifyEventRequest {
	return &NotifyEventRequest{GeneratedAt: generatedAt, SeqNo: seqNo, EventData: events}
}

func init() {
	_ = types.Validate.RegisterValidation("eventTrigger", isValidEventTrigger)
	_ = types.Validate.RegisterValidation("eventNotificationType", isValidEventNotificationType)
}
