package security

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const InstallCertificateFeatureName = "InstallCertificate"

type InstallCertificateStatus string

const (
	CertificateStatusAccepted InstallCertificateStatus = "Accepted"
	CertificateStatusRejected InstallCertificateStatus = "Rejected"
	CertificateStatusFailed   InstallCertificateStatus = "Failed"
)

func isValidInstallCertificateStatus(fl validator.FieldLevel) bool {
	switch InstallCertificateStatus(fl.Field().String()) {
	case CertificateStatusAccepted, CertificateStatusRejected, CertificateStatusFailed:
		return true
	default:
		return false
	}
}

func isValidInstallCertificateUse(fl validator.FieldLevel) bool {
	switch types.InstallCertificateUseType(fl.Field().String()) {
	case types.InstallV2GRootCertificate, types.InstallMORootCertificate,
		types.InstallCSMSRootCertificate, types.InstallManufacturerRootCertificate:
		return true
	default:
		return false
	}
}

type InstallCertificateRequest struct {
	CertificateType types.InstallCertificateUseType `json:"certificateType" validate:"required,installCertificateUse"`
	Certificate     string                          `json:"certificate" validate:"required,max=5500"`
}

type InstallCertificateResponse struct {
	Status     InstallCertificateStatus `json:"status" validate:"required,installCertificateStatus"`
	StatusInfo *types.StatusInfo        `json:"statusInfo,omitempty"`
}

type InstallCertificateFeature struct{}

func (f InstallCertificateFeature) GetFeatureName() string {
	return InstallCertificateFeatureName
}

func (f InstallCertificateFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(InstallCertificateRequest{})
}

func (f InstallCertificateFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(InstallCertificateResponse{})
}

func (r InstallCertificateRequest) GetFeatureName() string {
	return InstallCertificateFeatureName
}

func (c InstallCertificateResponse) GetFeatureName() string {
	return InstallCertificateFeatureName
}

func NewInstallCertificateResponse(status InstallCertificateStatus) *InstallCertificateResponse {
	return &InstallCertificateResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("installCertificateStatus", isValidInstallCertificateStatus)
	_ = types.Validate.RegisterValidation("installCertificateUse", isValidInstallCertificateUse)
}
