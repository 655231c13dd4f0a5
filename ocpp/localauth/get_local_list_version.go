package localauth

import (
	"reflect"
)

const GetLocalListVersionFeatureName = "GetLocalListVersion"

type GetLocalListVersionRequest struct {
}

type GetLocalListVersionResponse struct {
	VersionNumber int `json:"versionNumber" validate:"gte=0"`
}

type GetLocalListVersionFeature struct{}

func (f GetLocalListVersionFeature) GetFeatureName() string {
	return GetLocalListVersionFeatureName
}

func (f GetLocalListVersionFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetLocalListVersionRequest{})
}

func (f GetLocalListVersionFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetLocalListVersionResponse{})
}

func (r GetLocalListVersionRequest) GetFeatureName() string {
	return GetLocalListVersionFeatureName
}

func (c GetLocalListVersionResponse) GetFeatureName() string {
	return GetLocalListVersionFeatureName
}

func NewGetLocalListVersionResponse(version int) *GetLocalListVersionResponse {
	return &GetLocalListVersionResponse{VersionNumber: version}
}
