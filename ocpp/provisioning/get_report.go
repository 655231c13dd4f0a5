package provisioning

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const GetReportFeatureName = "GetReport"

type ComponentCriterion string

const (
	ComponentCriterionActive    ComponentCriterion = "Active"
	ComponentCriterionAvailable ComponentCriterion = "Available"
	ComponentCriterionEnabled   ComponentCriterion = "Enabled"
	ComponentCriterionProblem   ComponentCriterion = "Problem"
)

func isValidComponentCriterion(fl validator.FieldLevel) bool {
	switch ComponentCriterion(fl.Field().String()) {
	case ComponentCriterionActive, ComponentCriterionAvailable, ComponentCriterionEnabled, ComponentCriterionProblem:
		return true
	default:
		return false
	}
}

type GetReportRequest struct {
	RequestId         int                       `json:"requestId" validate:"gte=0"`
	ComponentCriteria []ComponentCriterion      `json:"componentCriteria,omitempty" validate:"omitempty,max=4,dive,componentCriterion"`
	ComponentVariable []types.ComponentVariable `json:"componentVariable,omitempty" validate:"omitempty,dive"`
}

type GetReportResponse struct {
	Status     types.GenericDeviceModelStatus `json:"status" validate:"required,genericDeviceModelStatus"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type GetReportFeature struct{}

func (f GetReportFeature) GetFeatureName() string {
	return GetReportFeatureName
}

func (f GetReportFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetReportRequest{})
}

func (f GetReportFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetReportResponse{})
}

func (r GetReportRequest) GetFeatureName() string {
	return GetReportFeatureName
}

func (c GetReportResponse) GetFeatureName() string {
	return GetReportFeatureName
}

func NewGetReportResponse(status types.GenericDeviceModelStatus) *GetReportResponse {
	return &GetReportResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("componentCriterion", isValidComponentCriterion)
}
