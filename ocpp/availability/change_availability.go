package availability

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const ChangeAvailabilityFeatureName = "ChangeAvailability"

type OperationalStatus string
type ChangeAvailabilityStatus string

const (
	OperationalStatusInoperative OperationalStatus = "Inoperative"
	OperationalStatusOperative   OperationalStatus = "Operative"

	ChangeAvailabilityStatusAccepted  ChangeAvailabilityStatus = "Accepted"
	ChangeAvailabilityStatusRejected  ChangeAvailabilityStatus = "Rejected"
	ChangeAvailabilityStatusScheduled ChangeAvailabilityStatus = "Scheduled"
)

func isValidOperationalStatus(fl validator.FieldLevel) bool {
	switch OperationalStatus(fl.Field().String()) {
	case OperationalStatusInoperative, OperationalStatusOperative:
		return true
	default:
		return false
	}
}

func isValidChangeAvailabilityStatus(fl validator.FieldLevel) bool {
	switch ChangeAvailabilityStatus(fl.Field().String()) {
	case ChangeAvailabilityStatusAccepted, ChangeAvailabilityStatusRejected, ChangeAvailabilityStatusScheduled:
		return true
	default:
		return false
	}
}

type ChangeAvailabilityRequest struct {
	OperationalStatus OperationalStatus `json:"operationalStatus" validate:"required,operationalStatus"`
	Evse              *types.EVSE       `json:"evse,omitempty"`
}

type ChangeAvailabilityResponse struct {
	Status     ChangeAvailabilityStatus `json:"status" validate:"required,changeAvailabilityStatus"`
	StatusInfo *types.StatusInfo        `json:"statusInfo,omitempty"`
}

type ChangeAvailabilityFeature struct{}

func (f ChangeAvailabilityFeature) GetFeatureName() string {
	return ChangeAvailabilityFeatureName
}

func (f ChangeAvailabilityFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(ChangeAvailabilityRequest{})
}

func (f ChangeAvailabilityFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(ChangeAvailabilityResponse{})
}

func (r ChangeAvailabilityRequest) GetFeatureName() string {
	return ChangeAvailabilityFeatureName
}

func (c ChangeAvailabilityResponse) GetFeatureName() string {
	return ChangeAvailabilityFeatureName
}

func NewChangeAvailabilityResponse(status ChangeAvailabilityStatus) *ChangeAvailabilityResponse {
	return &ChangeAvailabilityResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("operationalStatus", isValidOperationalStatus)
	_ = types.Validate.RegisterValidation("changeAvailabilityStatus", isValidChangeAvailabilityStatus)
}
