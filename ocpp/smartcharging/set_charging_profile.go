package smartcharging

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const SetChargingProfileFeatureName = "SetChargingProfile"

type ChargingProfileStatus string

const (
	ChargingProfileStatusAccepted ChargingProfileStatus = "Accepted"
	ChargingProfileStatusRejected ChargingProfileStatus = "Rejected"
)

func isValidChargingProfileStatus(fl validator.FieldLevel) bool {
	switch ChargingProfileStatus(fl.Field().String()) {
	case ChargingProfileStatusAccepted, ChargingProfileStatusRejected:
		return true
	default:
		return false
	}
}

type SetChargingProfileRequest struct {
	EvseId          int                    `json:"evseId" validate:"gte=0"`
	ChargingProfile *types.ChargingProfile `json:"chargingProfile" validate:"required"`
}

type SetChargingProfileResponse struct {
	Status     ChargingProfileStatus `json:"status" validate:"required,chargingProfileStatus"`
	StatusInfo *types.StatusInfo     `json:"statusInfo,omitempty"`
}

type SetChargingProfileFeature struct{}

func (f SetChargingProfileFeature) GetFeatureName() string {
	return SetChargingProfileFeatureName
}

func (f SetChargingProfileFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SetChargingProfileRequest{})
}

func (f SetChargingProfileFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SetChargingProfileResponse{})
}

func (r SetChargingProfileRequest) GetFeatureName() string {
	return SetChargingProfileFeatureName
}

func (c SetChargingProfileResponse) GetFeatureName() string {
	return SetChargingProfileFeatureName
}

func NewSetChargingProfileRequest(evseId int, profile *types.ChargingProfile) *SetChargingProfileRequest {
	return &SetChargingProfileRequest{EvseId: evseId, ChargingProfile: profile}
}

func NewSetChargingProfileResponse(status ChargingProfileStatus) *SetChargingProfileResponse {
	return &SetChargingProfileResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("chargingProfileStatus", isValidChargingProfileStatus)
}
