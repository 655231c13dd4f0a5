package diagnostics

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const (
	GetMonitoringReportFeatureName    = "GetMonitoringReport"
	NotifyMonitoringReportFeatureName = "NotifyMonitoringReport"
)

type MonitoringCriterion string

const (
	MonitoringCriterionThreshold MonitoringCriterion = "ThresholdMonitoring"
	MonitoringCriterionDelta     MonitoringCriterion = "DeltaMonitoring"
	MonitoringCriterionPeriodic  MonitoringCriterion = "PeriodicMonitoring"
)

func isValidMonitoringCriterion(fl validator.FieldLevel) bool {
	switch MonitoringCriterion(fl.Field().String()) {
	case MonitoringCriterionThreshold, MonitoringCriterionDelta, MonitoringCriterionPeriodic:
		return true
	default:
		return false
	}
}

type VariableMonitoring struct {
	Id          int         `json:"id" validate:"gte=0"`
	Transaction bool        `json:"transaction"`
	Value       float64     `json:"value"`
	Type        MonitorType `json:"type" validate:"required,monitorType"`
	Severity    int         `json:"severity" validate:"gte=0,lte=9"`
}

type MonitoringData struct {
	Component          types.Component      `json:"component" validate:"required"`
	Variable           types.Variable       `json:"variable" validate:"required"`
	VariableMonitoring []VariableMonitoring `json:"variableMonitoring" validate:"required,min=1,dive"`
}

type GetMonitoringReportRequest struct {
	RequestId          int                       `json:"requestId" validate:"gte=0"`
	MonitoringCriteria []MonitoringCriterion     `json:"monitoringCriteria,omitempty" validate:"omitempty,max=3,dive,monitoringCriterion"`
	ComponentVariable  []types.ComponentVariable `json:"componentVariable,omitempty" validate:"omitempty,dive"`
}

type GetMonitoringReportResponse struct {
	Status     types.GenericDeviceModelStatus `json:"status" validate:"required,genericDeviceModelStatus"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type NotifyMonitoringReportRequest struct {
	RequestId   int              `json:"requestId" validate:"gte=0"`
	Tbc         bool             `json:"tbc,omitempty"`
	SeqNo       int              `json:"seqNo" validate:"gte=0"`
	GeneratedAt *types.DateTime  `json:"generatedAt" validate:"required"`
	Monitor     []MonitoringData `json:"monitor,omitempty" validate:"omitempty,dive"`
}

type NotifyMonitoringReportResponse struct {
}

type GetMonitoringReportFeature struct{}

func (f GetMonitoringReportFeature) GetFeatureName() string {
	return GetMonitoringReportFeatureName
}

func (f GetMonitoringReportFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetMonitoringReportRequest{})
}

func (f GetMonitoringReportFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetMonitoringReportResponse{})
}

func (r GetMonitoringReportRequest) GetFeatureName() string {
	return GetMonitoringReportFeatureName
}

func (c GetMonitoringReportResponse) GetFeatureName() string {
	return GetMonitoringReportFeatureName
}

func (r NotifyMonitoringReportRequest) GetFeatureName() string {
	return NotifyMonitoringReportFeatureName
}

func (c NotifyMonitoringReportResponse) GetFeatureName() string {
	return NotifyMonitoringReportFeatureName
}

func NewGetMonitoringReportResponse(status types.GenericDeviceModelStatus) *GetMonitoringReportResponse {
	return &GetMonitoringReportResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("monitoringCriterion", isValidMonitoringCriterion)
}
