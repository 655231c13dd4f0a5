package smartcharging

import (
	"reflect"

	"evcp/ocpp/types"
)

const GetCompositeScheduleFeatureName = "GetCompositeSchedule"

type GetCompositeScheduleRequest struct {
	Duration         int                        `json:"duration" validate:"gte=0"`
	ChargingRateUnit types.ChargingRateUnitType `json:"chargingRateUnit,omitempty" validate:"omitempty,chargingRateUnit"`
	EvseId           int                        `json:"evseId" validate:"gte=0"`
}

type GetCompositeScheduleResponse struct {
	Status     types.GenericStatus      `json:"status" validate:"required"`
	Schedule   *types.CompositeSchedule `json:"schedule,omitempty"`
	StatusInfo *types.StatusInfo        `json:"statusInfo,omitempty"`
}

type GetCompositeScheduleFeature struct{}

func (f GetCompositeScheduleFeature) GetFeatureName() string {
	return GetCompositeScheduleFeatureName
}

func (f GetCompositeScheduleFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetCompositeScheduleRequest{})
}

func (f GetCompositeScheduleFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetCompositeScheduleResponse{})
}

func (r GetCompositeScheduleRequest) GetFeatureName() string {
	return GetCompositeScheduleFeatureName
}

func (c GetCompositeScheduleResponse) GetFeatureName() string {
	return GetCompositeScheduleFeatureName
}

func NewGetCompositeScheduleRequest(evseId int, duration int) *GetCompositeScheduleRequest {
	return &GetCompositeScheduleRequest{EvseId: evseId, Duration: duration}
}

func NewGetCompositeScheduleResponse(status types.GenericStatus) *GetCompositeScheduleResponse {
	return &GetCompositeScheduleResponse{Status: status}
}
