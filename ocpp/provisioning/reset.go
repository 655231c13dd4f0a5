package provisioning

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const ResetFeatureName = "Reset"

type ResetType string
type ResetStatus string

const (
	ResetTypeImmediate ResetType = "Immediate"
	ResetTypeOnIdle    ResetType = "OnIdle"

	ResetStatusAccepted  ResetStatus = "Accepted"
	ResetStatusRejected  ResetStatus = "Rejected"
	ResetStatusScheduled ResetStatus = "Scheduled"
)

func isValidResetType(fl validator.FieldLevel) bool {
	switch ResetType(fl.Field().String()) {
	case ResetTypeImmediate, ResetTypeOnIdle:
		return true
	default:
		return false
	}
}

func isValidResetStatus(fl validator.FieldLevel) bool {
	switch ResetStatus(fl.Field().String()) {
	case ResetStatusAccepted, ResetStatusRejected, ResetStatusScheduled:
		return true
	default:
		return false
	}
}

type ResetRequest struct {
	Type   ResetType `json:"type" validate:"required,resetType"`
	EvseId *int      `json:"evseId,omitempty" validate:"omitempty,gt=0"`
}

type ResetResponse struct {
	Status     ResetStatus       `json:"status" validate:"required,resetStatus"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type ResetFeature struct{}

func (f ResetFeature) GetFeatureName() string {
	return ResetFeatureName
}

func (f ResetFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(ResetRequest{})
}

func (f ResetFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(ResetResponse{})
}

func (r ResetRequest) GetFeatureName() string {
	return ResetFeatureName
}

func (c ResetResponse) GetFeatureName() string {
	return ResetFeatureName
}

func NewResetResponse(status ResetStatus) *ResetResponse {
	return &ResetResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("resetType", isValidResetType)
	_ = types.Validate.RegisterValidation("resetStatus", isValidResetStatus)
}
