package provisioning

import (
	"reflect"

	"evcp/ocpp/types"
)

const NotifyReportFeatureName = "NotifyReport"

type VariableCharacteristics struct {
	Unit               string         `json:"unit,omitempty" validate:"omitempty,max=16"`
	DataType           types.DataType `json:"dataType" validate:"required,dataType"`
	MinLimit           *float64       `json:"minLimit,omitempty"`
	MaxLimit           *float64       `json:"maxLimit,omitempty"`
	ValuesList         string         `json:"valuesList,omitempty" validate:"omitempty,max=1000"`
	SupportsMonitoring bool           `json:"supportsMonitoring"`
}

type VariableAttribute struct {
	Type       types.AttributeType  `json:"type,omitempty" validate:"omitempty,attributeType"`
	Value      string               `json:"value,omitempty" validate:"omitempty,max=2500"`
	Mutability types.MutabilityType `json:"mutability,omitempty" validate:"omitempty,mutabilityType"`
	Persistent bool                 `json:"persistent,omitempty"`
	Constant   bool                 `json:"constant,omitempty"`
}

type ReportData struct {
	Component               types.Component          `json:"component" validate:"required"`
	Variable                types.Variable           `json:"variable" validate:"required"`
	VariableAttribute       []VariableAttribute      `json:"variableAttribute" validate:"required,min=1,max=4,dive"`
	VariableCharacteristics *VariableCharacteristics `json:"variableCharacteristics,omitempty"`
}

type NotifyReportRequest struct {
	RequestId   int             `json:"requestId" validate:"gte=0"`
	GeneratedAt *types.DateTime `json:"generatedAt" validate:"required"`
	Tbc         bool            `json:"tbc,omitempty"`
	SeqNo       int             `json:"seqNo" validate:"gte=0"`
	ReportData  []ReportData    `json:"reportData,omitempty" validate:"omitempty,dive"`
}

type NotifyReportResponse struct {
}

type NotifyReportFeature struct{}

func (f NotifyReportFeature) GetFeatureName() string {
	return NotifyReportFeatureName
}

func (f NotifyReportFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(NotifyReportRequest{})
}

func (f NotifyReportFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(NotifyReportResponse{})
}

func (r NotifyReportRequest) GetFeatureName() string {
	return NotifyReportFeatureName
}

func (c NotifyReportResponse) GetFeatureName() string {
	return NotifyReportFeatureName
}

func NewNotifyReportRequest(requestId int, generatedAt *types.DateTime, seqNo int) *NotifyReportRequest {
	return &NotifyReportRequest{RequestId: requestId, GeneratedAt: generatedAt, SeqNo: seqNo}
}
