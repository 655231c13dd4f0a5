package smartcharging

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const GetChargingProfilesFeatureName = "GetChargingProfiles"

type GetChargingProfileStatus string

const (
	GetChargingProfileStatusAccepted   GetChargingProfileStatus = "Accepted"
	GetChargingProfileStatusNoProfiles GetChargingProfileStatus = "NoProfiles"
)

func isValidGetChargingProfileStatus(fl validator.FieldLevel) bool {
	switch GetChargingProfileStatus(fl.Field().String()) {
	case GetChargingProfileStatusAccepted, GetChargingProfileStatusNoProfiles:
		return true
	default:
		return false
	}
}

type ChargingProfileCriterion struct {
	ChargingProfilePurpose types.ChargingProfilePurposeType `json:"chargingProfilePurpose,omitempty" validate:"omitempty,chargingProfilePurpose"`
	StackLevel             *int                             `json:"stackLevel,omitempty" validate:"omitempty,gte=0"`
	ChargingProfileId      []int                            `json:"chargingProfileId,omitempty"`
}

type GetChargingProfilesRequest struct {
	RequestId       int                      `json:"requestId" validate:"gte=0"`
	EvseId          *int                     `json:"evseId,omitempty" validate:"omitempty,gte=0"`
	ChargingProfile ChargingProfileCriterion `json:"chargingProfile" validate:"required"`
}

type GetChargingProfilesResponse struct {
	Status GetChargingProfileStatus `json:"status" validate:"required,getChargingProfileStatus"`
}

type GetChargingProfilesFeature struct{}

func (f GetChargingProfilesFeature) GetFeatureName() string {
	return GetChargingProfilesFeatureName
}

func (f GetChargingProfilesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetChargingProfilesRequest{})
}

func (f GetChargingProfilesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetChargingProfilesResponse{})
}

func (r GetChargingProfilesRequest) GetFeatureName() string {
	return GetChargingProfilesFeatureName
}

func (c GetChargingProfilesResponse) GetFeatureName() string {
	return GetChargingProfilesFeatureName
}

func NewGetChargingProfilesResponse(status GetChargingProfileStatus) *GetChargingProfilesResponse {
	return &GetChargingProfilesResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("getChargingProfileStatus", isValidGetChargingProfileStatus)
}
