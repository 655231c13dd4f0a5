package security

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const DeleteCertificateFeatureName = "DeleteCertificate"

type DeleteCertificateStatus string

const (
	DeleteCertificateStatusAccepted DeleteCertificateStatus = "Accepted"
	DeleteCertificateStatusFailed   DeleteCertificateStatus = "Failed"
	DeleteCertificateStatusNotFound DeleteCertificateStatus = "NotFound"
)

func isValidDeleteCertificateStatus(fl validator.FieldLevel) bool {
	switch DeleteCertificateStatus(fl.Field().String()) {
	case DeleteCertificateStatusAccepted, DeleteCertificateStatusFailed, DeleteCertificateStatusNotFound:
		return true
	default:
		return false
	}
}

type DeleteCertificateRequest struct {
	CertificateHashData types.CertificateHashData `json:"certificateHashData" validate:"required"`
}

type DeleteCertificateResponse struct {
	Status     DeleteCertificateStatus `json:"status" validate:"required,deleteCertificateStatus"`
	StatusInfo *types.StatusInfo       `json:"statusInfo,omitempty"`
}

type DeleteCertificateFeature struct{}

func (f DeleteCertificateFeature) GetFeatureName() string {
	return DeleteCertificateFeatureName
}

func (f DeleteCertificateFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(DeleteCertificateRequest{})
}

func (f DeleteCertificateFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(DeleteCertificateResponse{})
}

func (r DeleteCertificateRequest) GetFeatureName() string {
	return DeleteCertificateFeatureName
}

func (c DeleteCertificateResponse) GetFeatureName() string {
	return DeleteCertificateFeatureName
}

func NewDeleteCertificateResponse(status DeleteCertificateStatus) *DeleteCertificateResponse {
	return &DeleteCertificateResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("deleteCertificateStatus", isValidDeleteCertificateStatus)
}
