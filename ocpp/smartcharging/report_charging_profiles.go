package smartcharging

import (
	"reflect"

	"evcp/ocpp/types"
)

const ReportChargingProfilesFeatureName = "ReportChargingProfiles"

type ReportChargingProfilesRequest struct {
	RequestId           int                     `json:"requestId" validate:"gte=0"`
	ChargingLimitSource string                  `json:"chargingLimitSource" validate:"required,max=20"`
	Tbc                 bool                    `json:"tbc,omitempty"`
	EvseId              int                     `json:"evseId" validate:"gte=0"`
	ChargingProfile     []types.ChargingProfile `json:"chargingProfile" validate:"required,min=1,dive"`
}

type ReportChargingProfilesResponse struct {
}

type ReportChargingProfilesFeature struct{}

func (f ReportChargingProfilesFeature) GetFeatureName() string {
	return ReportChargingProfilesFeatureName
}

func (f ReportChargingProfilesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(ReportChargingProfilesRequest{})
}

func (f ReportChargingProfilesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(ReportChargingProfilesResponse{})
}

func (r ReportChargingProfilesRequest) GetFeatureName() string {
	return ReportChargingProfilesFeatureName
}

func (c ReportChargingProfilesResponse) GetFeatureName() string {
	return ReportChargingProfilesFeatureName
}

func NewReportChargingProfilesRequest(requestId int, evseId int, profiles []types.ChargingProfile) *ReportChargingProfilesRequest {
	return &ReportChargingProfilesRequest{RequestId: requestId, ChargingLimitSource: "CSO", EvseId: evseId, ChargingProfile: profiles}
}
