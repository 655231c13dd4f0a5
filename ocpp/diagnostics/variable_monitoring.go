package diagnostics

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const (
	SetVariableMonitoringFeatureName   = "SetVariableMonitoring"
	ClearVariableMonitoringFeatureName = "ClearVariableMonitoring"
)

type MonitorType string
type SetMonitoringStatus string
type ClearMonitoringStatus string

const (
	MonitorUpperThreshold       MonitorType = "UpperThreshold"
	MonitorLowerThreshold       MonitorType = "LowerThreshold"
	MonitorDelta                MonitorType = "Delta"
	MonitorPeriodic             MonitorType = "Periodic"
	MonitorPeriodicClockAligned MonitorType = "PeriodicClockAligned"

	SetMonitoringStatusAccepted               SetMonitoringStatus = "Accepted"
	SetMonitoringStatusUnknownComponent       SetMonitoringStatus = "UnknownComponent"
	SetMonitoringStatusUnknownVariable        SetMonitoringStatus = "UnknownVariable"
	SetMonitoringStatusUnsupportedMonitorType SetMonitoringStatus = "UnsupportedMonitorType"
	SetMonitoringStatusRejected               SetMonitoringStatus = "Rejected"
	SetMonitoringStatusDuplicate              SetMonitoringStatus = "Duplicate"

	ClearMonitoringStatusAccepted ClearMonitoringStatus = "Accepted"
	ClearMonitoringStatusRejected ClearMonitoringStatus = "Rejected"
	ClearMonitoringStatusNotFound ClearMonitoringStatus = "NotFound"
)

func isValidMonitorType(fl validator.FieldLevel) bool {
	switch MonitorType(fl.Field().String()) {
	case MonitorUpperThreshold, MonitorLowerThreshold, MonitorDelta, MonitorPeriodic, MonitorPeriodicClockAligned:
		return true
	default:
		return false
	}
}

func isValidSetMonitoringStatus(fl validator.FieldLevel) bool {
	switch SetMonitoringStatus(fl.Field().String()) {
	case SetMonitoringStatusAccepted, SetMonitoringStatusUnknownComponent, SetMonitoringStatusUnknownVariable,
		SetMonitoringStatusUnsupportedMonitorType, SetMonitoringStatusRejected, SetMonitoringStatusDuplicate:
		return true
	default:
		return false
	}
}

func isValidClearMonitoringStatus(fl validator.FieldLevel) bool {
	switch ClearMonitoringStatus(fl.Field().String()) {
	case ClearMonitoringStatusAccepted, ClearMonitoringStatusRejected, ClearMonitoringStatusNotFound:
		return true
	default:
		return false
	}
}

type SetMonitoringData struct {
	Id          *int            `json:"id,omitempty"`
	Transaction bool            `json:"transaction,omitempty"`
	Value       float64         `json:"value"`
	Type        MonitorType     `json:"type" validate:"required,monitorType"`
	Severity    int             `json:"severity" validate:"gte=0,lte=9"`
	Component   types.Component `json:"component" validate:"required"`
	Variable    types.Variable  `json:"variable" validate:"required"`
}

type SetMonitoringResult struct {
	Id         *int                `json:"id,omitempty"`
	Status     SetMonitoringStatus `json:"status" validate:"required,setMonitoringStatus"`
	Type       MonitorType         `json:"type" validate:"required,monitorType"`
	Severity   int                 `json:"severity" validate:"gte=0,lte=9"`
	Component  types.Component     `json:"component" validate:"required"`
	Variable   types.Variable      `json:"variable" validate:"required"`
	StatusInfo *types.StatusInfo   `json:"statusInfo,omitempty"`
}

type SetVariableMonitoringRequest struct {
	SetMonitoringData []SetMonitoringData `json:"setMonitoringData" validate:"required,min=1,dive"`
}

type SetVariableMonitoringResponse struct {
	SetMonitoringResult []SetMonitoringResult `json:"setMonitoringResult" validate:"required,min=1,dive"`
}

type ClearMonitoringResult struct {
	Status ClearMonitoringStatus `json:"status" validate:"required,clearMonitoringStatus"`
	Id     int                   `json:"id" validate:"gte=0"`
}

type ClearVariableMonitoringRequest struct {
	Id []int `json:"id" validate:"required,min=1"`
}

type ClearVariableMonitoringResponse struct {
	ClearMonitoringResult []ClearMonitoringResult `json:"clearMonitoringResult" validate:"required,min=1,dive"`
}

type SetVariableMonitoringFeature struct{}

func (f SetVariableMonitoringFeature) GetFeatureName() string {
	return SetVariableMonitoringFeatureName
}

func (f SetVariableMonitoringFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SetVariableMonitoringRequest{})
}

func (f SetVariableMonitoringFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SetVariableMonitoringResponse{})
}

func (r SetVariableMonitoringRequest) GetFeatureName() string {
	return SetVariableMonitoringFeatureName
}

func (c SetVariableMonitoringResponse) GetFeatureName() string {
	return SetVariableMonitoringFeatureName
}

type ClearVariableMonitoringFeature struct{}

func (f ClearVariableMonitoringFeature) GetFeatureName() string {
	return ClearVariableMonitoringFeatureName
}

func (f ClearVariableMonitoringFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(ClearVariableMonitoringRequest{})
}

func (f ClearVariableMonitoringFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(ClearVariableMonitoringResponse{})
}

func (r ClearVariableMonitoringRequest) GetFeatureName() string {
	return ClearVariableMonitoringFeatureName
}

func (c ClearVariableMonitoringResponse) GetFeatureName() string {
	return ClearVariableMonitoringFeatureName
}

func init() {
	_ = types.Validate.RegisterValidation("monitorType", isValidMonitorType)
	_ = types.Validate.RegisterValidation("setMonitoringStatus", isValidSetMonitoringStatus)
	_ = types.Validate.RegisterValidation("clearMonitoringStatus", isValidClearMonitoringStatus)
}
