package authorization

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const ClearCacheFeatureName = "ClearCache"

type ClearCacheStatus string

const (
	ClearCacheStatusAccepted ClearCacheStatus = "Accepted"
	ClearCacheStatusRejected ClearCacheStatus = "Rejected"
)

func isValidClearCacheStatus(fl validator.FieldLevel) bool {
	switch ClearCacheStatus(fl.Field().String()) {
	case ClearCacheStatusAccepted, ClearCacheStatusRejected:
		return true
	default:
		return false
	}
}

type ClearCacheRequest struct {
}

type ClearCacheResponse struct {
	Status     ClearCacheStatus  `json:"status" validate:"required,clearCacheStatus"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type ClearCacheFeature struct{}

func (f ClearCacheFeature) GetFeatureName() string {
	return ClearCacheFeatureName
}

func (f ClearCacheFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(ClearCacheRequest{})
}

func (f ClearCacheFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(ClearCacheResponse{})
}

func (r ClearCacheRequest) GetFeatureName() string {
	return ClearCacheFeatureName
}

func (c ClearCacheResponse) GetFeatureName() string {
	return ClearCacheFeatureName
}

func NewClearCacheResponse(status ClearCacheStatus) *ClearCacheResponse {
	return &ClearCacheResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("clearCacheStatus", isValidClearCacheStatus)
}
