package security

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const GetInstalledCertificateIdsFeatureName = "GetInstalledCertificateIds"

type GetInstalledCertificateStatus string

const (
	GetInstalledCertificateStatusAccepted GetInstalledCertificateStatus = "Accepted"
	GetInstalledCertificateStatusNotFound GetInstalledCertificateStatus = "NotFound"
)

func isValidGetInstalledCertificateStatus(fl validator.FieldLevel) bool {
	switch GetInstalledCertificateStatus(fl.Field().String()) {
	case GetInstalledCertificateStatusAccepted, GetInstalledCertificateStatusNotFound:
		return true
	default:
		return false
	}
}

func isValidCertificateIdUse(fl validator.FieldLevel) bool {
	switch types.GetCertificateIdUseType(fl.Field().String()) {
	case types.V2GRootCertificate, types.MORootCertificate, types.CSMSRootCertificate,
		types.V2GCertificateChain, types.ManufacturerRootCertificate:
		return true
	default:
		return false
	}
}

type CertificateHashDataChain struct {
	CertificateType          types.GetCertificateIdUseType `json:"certificateType" validate:"required,certificateIdUse"`
	CertificateHashData      types.CertificateHashData     `json:"certificateHashData" validate:"required"`
	ChildCertificateHashData []types.CertificateHashData   `json:"childCertificateHashData,omitempty" validate:"omitempty,max=4,dive"`
}

type GetInstalledCertificateIdsRequest struct {
	CertificateType []types.GetCertificateIdUseType `json:"certificateType,omitempty" validate:"omitempty,dive,certificateIdUse"`
}

type GetInstalledCertificateIdsResponse struct {
	Status                   GetInstalledCertificateStatus `json:"status" validate:"required,getInstalledCertificateStatus"`
	CertificateHashDataChain []CertificateHashDataChain    `json:"certificateHashDataChain,omitempty" validate:"omitempty,dive"`
	StatusInfo               *types.StatusInfo             `json:"statusInfo,omitempty"`
}

type GetInstalledCertificateIdsFeature struct{}

func (f GetInstalledCertificateIdsFeature) GetFeatureName() string {
	return GetInstalledCertificateIdsFeatureName
}

func (f GetInstalledCertificateIdsFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetInstalledCertificateIdsRequest{})
}

func (f GetInstalledCertificateIdsFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetInstalledCertificateIdsResponse{})
}

func (r GetInstalledCertificateIdsRequest) GetFeatureName() string {
	return GetInstalledCertificateIdsFeatureName
}

func (c GetInstalledCertificateIdsResponse) GetFeatureName() string {
	return GetInstalledCertificateIdsFeatureName
}

func NewGetInstalledCertificateIdsResponse(status GetInstalledCertificateStatus) *GetInstalledCertificateIdsResponse {
	return &GetInstalledCertificateIdsResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("getInstalledCertificateStatus", isValidGetInstalledCertificateStatus)
	_ = types.Validate.RegisterValidation("certificateIdUse", isValidCertificateIdUse)
}
