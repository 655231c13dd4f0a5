package security

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const CertificateSignedFeatureName = "CertificateSigned"

type CertificateSignedStatus string

const (
	CertificateSignedStatusAccepted CertificateSignedStatus = "Accepted"
	CertificateSignedStatusRejected CertificateSignedStatus = "Rejected"
)

func isValidCertificateSignedStatus(fl validator.FieldLevel) bool {
	switch CertificateSignedStatus(fl.Field().String()) {
	case CertificateSignedStatusAccepted, CertificateSignedStatusRejected:
		return true
	default:
		return false
	}
}

type CertificateSignedRequest struct {
	CertificateChain string                    `json:"certificateChain" validate:"required,max=10000"`
	CertificateType  CertificateSigningUseType `json:"certificateType,omitempty" validate:"omitempty,certificateSigningUse"`
}

type CertificateSignedResponse struct {
	Status     CertificateSignedStatus `json:"status" validate:"required,certificateSignedStatus"`
	StatusInfo *types.StatusInfo       `json:"statusInfo,omitempty"`
}

type CertificateSignedFeature struct{}

func (f CertificateSignedFeature) GetFeatureName() string {
	return CertificateSignedFeatureName
}

func (f CertificateSignedFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(CertificateSignedRequest{})
}

func (f CertificateSignedFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(CertificateSignedResponse{})
}

func (r CertificateSignedRequest) GetFeatureName() string {
	return CertificateSignedFeatureName
}

func (c CertificateSignedResponse) GetFeatureName() string {
	return CertificateSignedFeatureName
}

func NewCertificateSignedResponse(status CertificateSignedStatus) *CertificateSignedResponse {
	return &CertificateSignedResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("certificateSignedStatus", isValidCertificateSignedStatus)
}
