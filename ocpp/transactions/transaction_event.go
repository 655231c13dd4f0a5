package transactions

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const TransactionEventFeatureName = "TransactionEvent"

type TransactionEventType string
type TriggerReason string
type ChargingState string
type Reason string

const (
	TransactionEventStarted TransactionEventType = "Started"
	TransactionEventUpdated TransactionEventType = "Updated"
	TransactionEventEnded   TransactionEventType = "Ended"

	TriggerReasonAuthorized           TriggerReason = "Authorized"
	TriggerReasonCablePluggedIn       TriggerReason = "CablePluggedIn"
	TriggerReasonChargingRateChanged  TriggerReason = "ChargingRateChanged"
	TriggerReasonChargingStateChanged TriggerReason = "ChargingStateChanged"
	TriggerReasonDeauthorized         TriggerReason = "Deauthorized"
	TriggerReasonEnergyLimitReached   TriggerReason = "EnergyLimitReached"
	TriggerReasonEVCommunicationLost  TriggerReason = "EVCommunicationLost"
	TriggerReasonEVConnectTimeout     TriggerReason = "EVConnectTimeout"
	TriggerReasonMeterValueClock      TriggerReason = "MeterValueClock"
	TriggerReasonMeterValuePeriodic   TriggerReason = "MeterValuePeriodic"
	TriggerReasonTimeLimitReached     TriggerReason = "TimeLimitReached"
	TriggerReasonTrigger              TriggerReason = "Trigger"
	TriggerReasonUnlockCommand        TriggerReason = "UnlockCommand"
	TriggerReasonStopAuthorized       TriggerReason = "StopAuthorized"
	TriggerReasonEVDeparted           TriggerReason = "EVDeparted"
	TriggerReasonEVDetected           TriggerReason = "EVDetected"
	TriggerReasonRemoteStop           TriggerReason = "RemoteStop"
	TriggerReasonRemoteStart          TriggerReason = "RemoteStart"
	TriggerReasonAbnormalCondition    TriggerReason = "AbnormalCondition"
	TriggerReasonSignedDataReceived   TriggerReason = "SignedDataReceived"
	TriggerReasonResetCommand         TriggerReason = "ResetCommand"

	ChargingStateCharging      ChargingState = "Charging"
	ChargingStateEVConnected   ChargingState = "EVConnected"
	ChargingStateSuspendedEV   ChargingState = "SuspendedEV"
	ChargingStateSuspendedEVSE ChargingState = "SuspendedEVSE"
	ChargingStateIdle          ChargingState = "Idle"

	ReasonDeAuthorized       Reason = "DeAuthorized"
	ReasonEmergencyStop      Reason = "EmergencyStop"
	ReasonEnergyLimitReached Reason = "EnergyLimitReached"
	ReasonEVDisconnected     Reason = "EVDisconnected"
	ReasonGroundFault        Reason = "GroundFault"
	ReasonImmediateReset     Reason = "ImmediateReset"
	ReasonLocal              Reason = "Local"
	ReasonLocalOutOfCredit   Reason = "LocalOutOfCredit"
	ReasonMasterPass         Reason = "MasterPass"
	ReasonOther              Reason = "Other"
	ReasonOvercurrentFault   Reason = "OvercurrentFault"
	ReasonPowerLoss          Reason = "PowerLoss"
	ReasonPowerQuality       Reason = "PowerQuality"
	ReasonReboot             Reason = "Reboot"
	ReasonRemote             Reason = "Remote"
	ReasonSOCLimitReached    Reason = "SOCLimitReached"
	ReasonStoppedByEV        Reason = "StoppedByEV"
	ReasonTimeLimitReached   Reason = "TimeLimitReached"
	ReasonTimeout            Reason = "Timeout"
)

func isValidTransactionEventType(fl validator.FieldLevel) bool {
	switch TransactionEventType(fl.Field().String()) {
	case TransactionEventStarted, TransactionEventUpdated, TransactionEventEnded:
		return true
	default:
		return false
	}
}

func isValidTriggerReason(fl validator.FieldLevel) bool {
	switch TriggerReason(fl.Field().String()) {
	case TriggerReasonAuthorized, TriggerReasonCablePluggedIn, TriggerReasonChargingRateChanged,
		TriggerReasonChargingStateChanged, TriggerReasonDeauthorized, TriggerReasonEnergyLimitReached,
		TriggerReasonEVCommunicationLost, TriggerReasonEVConnectTimeout, TriggerReasonMeterValueClock,
		TriggerReasonMeterValuePeriodic, TriggerReasonTimeLimitReached, TriggerReasonTrigger,
		TriggerReasonUnlockCommand, TriggerReasonStopAuthorized, TriggerReasonEVDeparted,
		TriggerReasonEVDetected, TriggerReasonRemoteStop, TriggerReasonRemoteStart,
		TriggerReasonAbnormalCondition, TriggerReasonSignedDataReceived, TriggerReasonResetCommand:
		return true
	default:
		return false
	}
}

func isValidChargingState(fl validator.FieldLevel) bool {
	switch ChargingState(fl.Field().String()) {
	case ChargingStateCharging, ChargingStateEVConnected, ChargingStateSuspendedEV,
		ChargingStateSuspendedEVSE, ChargingStateIdle:
		return true
	default:
		return false
	}
}

func isValidReason(fl validator.FieldLevel) bool {
	switch Reason(fl.Field().String()) {
	case ReasonDeAuthorized, ReasonEmergencyStop, ReasonEnergyLimitReached, ReasonEVDisconnected,
		ReasonGroundFault, ReasonImmediateReset, ReasonLocal, ReasonLocalOutOfCredit, ReasonMasterPass,
		ReasonOther, ReasonOvercurrentFault, ReasonPowerLoss, ReasonPowerQuality, ReasonReboot,
		ReasonRemote, ReasonSOCLimitReached, ReasonStoppedByEV, ReasonTimeLimitReached, ReasonTimeout:
		return true
	default:
		return false
	}
}

type Transaction struct {
	TransactionId     string        `json:"transactionId" validate:"required,max=36"`
	ChargingState     ChargingState `json:"chargingState,omitempty" validate:"omitempty,chargingState"`
	TimeSpentCharging *int          `json:"timeSpentCharging,omitempty"`
	StoppedReason     Reason        `json:"stoppedReason,omitempty" validate:"omitempty,reason"`
	RemoteStartId     *int          `json:"remoteStartId,omitempty"`
}

type TransactionEventRequest struct {
	EventType          TransactionEventType `json:"eventType" validate:"required,transactionEventType"`
	Timestamp          *types.DateTime      `json:"timestamp" validate:"required"`
	TriggerReason      TriggerReason        `json:"triggerReason" validate:"required,triggerReason"`
	SeqNo              int                  `json:"seqNo" validate:"gte=0"`
	Offline            bool                 `json:"offline,omitempty"`
	NumberOfPhasesUsed *int                 `json:"numberOfPhasesUsed,omitempty" validate:"omitempty,gte=0"`
	CableMaxCurrent    *float64             `json:"cableMaxCurrent,omitempty"`
	ReservationId      *int                 `json:"reservationId,omitempty"`
	TransactionInfo    Transaction          `json:"transactionInfo" validate:"required"`
	IdToken            *types.IdToken       `json:"idToken,omitempty"`
	Evse               *types.EVSE          `json:"evse,omitempty"`
	MeterValue         []types.MeterValue   `json:"meterValue,omitempty" validate:"omitempty,dive"`
}

type TransactionEventResponse struct {
	TotalCost              *float64              `json:"totalCost,omitempty"`
	ChargingPriority       int                   `json:"chargingPriority,omitempty" validate:"omitempty,gte=-9,lte=9"`
	IdTokenInfo            *types.IdTokenInfo    `json:"idTokenInfo,omitempty"`
	UpdatedPersonalMessage *types.MessageContent `json:"updatedPersonalMessage,omitempty"`
	// CustomData carries the California-pricing running cost payload.
	CustomData map[string]interface{} `json:"customData,omitempty"`
}

type TransactionEventFeature struct{}

func (f TransactionEventFeature) GetFeatureName() string {
	return TransactionEventFeatureName
}

func (f TransactionEventFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(TransactionEventRequest{})
}

func (f TransactionEventFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(TransactionEventResponse{})
}

func (r TransactionEventRequest) GetFeatureName() string {
	return TransactionEventFeatureName
}

func (c TransactionEventResponse) GetFeatureName() string {
	return TransactionEventFeatureName
}

func NewTransactionEventRequest(eventType TransactionEventType, timestamp *types.DateTime, reason TriggerReason, seqNo int, info Transaction) *TransactionEventRequest {
	return &TransactionEventRequest{EventType: eventType, Timestamp: timestamp, TriggerReason: reason, SeqNo: seqNo, TransactionInfo: info}
}

func init() {
	_ = types.Validate.RegisterValidation("transactionEventType", isValidTransactionEventType)
	_ = types.Validate.RegisterValidation("triggerReason", isValidTriggerReason)
	_ = types.Validate.RegisterValidation("chargingState", isValidChargingState)
	_ = types.Validate.RegisterValidation("reason", isValidReason)
}
