package metervalues

import (
	"reflect"

	"evcp/ocpp/types"
)

const MeterValuesFeatureName = "MeterValues"

type MeterValuesRequest struct {
	EvseId     int                `json:"evseId" validate:"gte=0"`
	MeterValue []types.MeterValue `json:"meterValue" validate:"required,min=1,dive"`
}

type MeterValuesResponse struct {
}

type MeterValuesFeature struct{}

func (f MeterValuesFeature) GetFeatureName() string {
	return MeterValuesFeatureName
}

func (f MeterValuesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(MeterValuesRequest{})
}

func (f MeterValuesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(MeterValuesResponse{})
}

func (r MeterValuesRequest) GetFeatureName() string {
	return MeterValuesFeatureName
}

func (c MeterValuesResponse) GetFeatureName() string {
	return MeterValuesFeatureName
}

func NewMeterValuesRequest(evseId int, meterValues []types.MeterValue) *MeterValuesRequest {
	return &MeterValuesRequest{EvseId: evseId, MeterValue: meterValues}
}
