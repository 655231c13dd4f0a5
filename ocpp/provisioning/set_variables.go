package provisioning

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const SetVariablesFeatureName = "SetVariables"

type SetVariableStatus string

const (
	SetVariableStatusAccepted         SetVariableStatus = "Accepted"
	SetVariableStatusRejected         SetVariableStatus = "Rejected"
	SetVariableStatusUnknownComponent SetVariableStatus = "UnknownComponent"
	SetVariableStatusUnknownVariable  SetVariableStatus = "UnknownVariable"
	SetVariableStatusNotSupported     SetVariableStatus = "NotSupportedAttributeType"
	SetVariableStatusRebootRequired   SetVariableStatus = "RebootRequired"
)

func isValidSetVariableStatus(fl validator.FieldLevel) bool {
	switch SetVariableStatus(fl.Field().String()) {
	case SetVariableStatusAccepted, SetVariableStatusRejected, SetVariableStatusUnknownComponent,
		SetVariableStatusUnknownVariable, SetVariableStatusNotSupported, SetVariableStatusRebootRequired:
		return true
	default:
		return false
	}
}

type SetVariableData struct {
	AttributeType  types.AttributeType `json:"attributeType,omitempty" validate:"omitempty,attributeType"`
	AttributeValue string              `json:"attributeValue" validate:"max=1000"`
	Component      types.Component     `json:"component" validate:"required"`
	Variable       types.Variable      `json:"variable" validate:"required"`
}

type SetVariableResult struct {
	AttributeType       types.AttributeType `json:"attributeType,omitempty" validate:"omitempty,attributeType"`
	AttributeStatus     SetVariableStatus   `json:"attributeStatus" validate:"required,setVariableStatus"`
	Component           types.Component     `json:"component" validate:"required"`
	Variable            types.Variable      `json:"variable" validate:"required"`
	AttributeStatusInfo *types.StatusInfo   `json:"attributeStatusInfo,omitempty"`
}

type SetVariablesRequest struct {
	SetVariableData []SetVariableData `json:"setVariableData" validate:"required,min=1,dive"`
}

type SetVariablesResponse struct {
	SetVariableResult []SetVariableResult `json:"setVariableResult" validate:"required,min=1,dive"`
}

type SetVariablesFeature struct{}

func (f SetVariablesFeature) GetFeatureName() string {
	return SetVariablesFeatureName
}

func (f SetVariablesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SetVariablesRequest{})
}

func (f SetVariablesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SetVariablesResponse{})
}

func (r SetVariablesRequest) GetFeatureName() string {
	return SetVariablesFeatureName
}

func (c SetVariablesResponse) GetFeatureName() string {
	return SetVariablesFeatureName
}

func NewSetVariablesResponse(results []SetVariableResult) *SetVariablesResponse {
	return &SetVariablesResponse{SetVariableResult: results}
}

func init() {
	_ = types.Validate.RegisterValidation("setVariableStatus", isValidSetVariableStatus)
}
