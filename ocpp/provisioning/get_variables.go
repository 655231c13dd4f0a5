package provisioning

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const GetVariablesFeatureName = "GetVariables"

type GetVariableStatus string

const (
	GetVariableStatusAccepted         GetVariableStatus = "Accepted"
	GetVariableStatusRejected         GetVariableStatus = "Rejected"
	GetVariableStatusUnknownComponent GetVariableStatus = "UnknownComponent"
	GetVariableStatusUnknownVariable  GetVariableStatus = "UnknownVariable"
	GetVariableStatusNotSupported     GetVariableStatus = "NotSupportedAttributeType"
)

func isValidGetVariableStatus(fl validator.FieldLevel) bool {
	switch GetVariableStatus(fl.Field().String()) {
	case GetVariableStatusAccepted, GetVariableStatusRejected, GetVariableStatusUnknownComponent,
		GetVariableStatusUnknownVariable, GetVariableStatusNotSupported:
		return true
	default:
		return false
	}
}

type GetVariableData struct {
	AttributeType types.AttributeType `json:"attributeType,omitempty" validate:"omitempty,attributeType"`
	Component     types.Component     `json:"component" validate:"required"`
	Variable      types.Variable      `json:"variable" validate:"required"`
}

type GetVariableResult struct {
	AttributeStatus     GetVariableStatus   `json:"attributeStatus" validate:"required,getVariableStatus"`
	AttributeType       types.AttributeType `json:"attributeType,omitempty" validate:"omitempty,attributeType"`
	AttributeValue      string              `json:"attributeValue,omitempty" validate:"omitempty,max=2500"`
	Component           types.Component     `json:"component" validate:"required"`
	Variable            types.Variable      `json:"variable" validate:"required"`
	AttributeStatusInfo *types.StatusInfo   `json:"attributeStatusInfo,omitempty"`
}

type GetVariablesRequest struct {
	GetVariableData []GetVariableData `json:"getVariableData" validate:"required,min=1,dive"`
}

type GetVariablesResponse struct {
	GetVariableResult []GetVariableResult `json:"getVariableResult" validate:"required,min=1,dive"`
}

type GetVariablesFeature struct{}

func (f GetVariablesFeature) GetFeatureName() string {
	return GetVariablesFeatureName
}

func (f GetVariablesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetVariablesRequest{})
}

func (f GetVariablesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetVariablesResponse{})
}

func (r GetVariablesRequest) GetFeatureName() string {
	return GetVariablesFeatureName
}

func (c GetVariablesResponse) GetFeatureName() string {
	return GetVariablesFeatureName
}

func NewGetVariablesResponse(results []GetVariableResult) *GetVariablesResponse {
	return &GetVariablesResponse{GetVariableResult: results}
}

func init() {
	_ = types.Validate.RegisterValidation("getVariableStatus", isValidGetVariableStatus)
}
