package security

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const SignCertificateFeatureName = "SignCertificate"

type CertificateSigningUseType string

const (
	ChargingStationCert CertificateSigningUseType = "ChargingStationCertificate"
	V2GCertificate      CertificateSigningUseType = "V2GCertificate"
)

func isValidCertificateSigningUse(fl validator.FieldLevel) bool {
	switch CertificateSigningUseType(fl.Field().String()) {
	case ChargingStationCert, V2GCertificate:
		return true
	default:
		return false
	}
}

type SignCertificateRequest struct {
	CSR             string                    `json:"csr" validate:"required,max=5500"`
	CertificateType CertificateSigningUseType `json:"certificateType,omitempty" validate:"omitempty,certificateSigningUse"`
}

type SignCertificateResponse struct {
	Status     types.GenericStatus `json:"status" validate:"required"`
	StatusInfo *types.StatusInfo   `json:"statusInfo,omitempty"`
}

type SignCertificateFeature struct{}

func (f SignCertificateFeature) GetFeatureName() string {
	return SignCertificateFeatureName
}

func (f SignCertificateFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SignCertificateRequest{})
}

func (f SignCertificateFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SignCertificateResponse{})
}

func (r SignCertificateRequest) GetFeatureName() string {
	return SignCertificateFeatureName
}

func (c SignCertificateResponse) GetFeatureName() string {
	return SignCertificateFeatureName
}

func NewSignCertificateRequest(csr string) *SignCertificateRequest {
	return &SignCertificateRequest{CSR: csr}
}

func init() {
	_ = types.Validate.RegisterValidation("certificateSigningUse", isValidCertificateSigningUse)
}
