package authorization

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const AuthorizeFeatureName = "Authorize"

type AuthorizeCertificateStatus string

const (
	CertificateStatusAccepted               AuthorizeCertificateStatus = "Accepted"
	CertificateStatusSignatureError         AuthorizeCertificateStatus = "SignatureError"
	CertificateStatusCertificateExpired     AuthorizeCertificateStatus = "CertificateExpired"
	CertificateStatusCertificateRevoked     AuthorizeCertificateStatus = "CertificateRevoked"
	CertificateStatusNoCertificateAvailable AuthorizeCertificateStatus = "NoCertificateAvailable"
	CertificateStatusCertChainError         AuthorizeCertificateStatus = "CertChainError"
	CertificateStatusContractCancelled      AuthorizeCertificateStatus = "ContractCancelled"
)

func isValidAuthorizeCertificateStatus(fl validator.FieldLevel) bool {
	switch AuthorizeCertificateStatus(fl.Field().String()) {
	case CertificateStatusAccepted, CertificateStatusSignatureError, CertificateStatusCertificateExpired,
		CertificateStatusCertificateRevoked, CertificateStatusNoCertificateAvailable,
		CertificateStatusCertChainError, CertificateStatusContractCancelled:
		return true
	default:
		return false
	}
}

type AuthorizeRequest struct {
	IdToken                     types.IdToken           `json:"idToken" validate:"required"`
	Certificate                 string                  `json:"certificate,omitempty" validate:"omitempty,max=5500"`
	Iso15118CertificateHashData []types.OCSPRequestData `json:"iso15118CertificateHashData,omitempty" validate:"omitempty,max=4,dive"`
}

type AuthorizeResponse struct {
	IdTokenInfo       types.IdTokenInfo          `json:"idTokenInfo" validate:"required"`
	CertificateStatus AuthorizeCertificateStatus `json:"certificateStatus,omitempty" validate:"omitempty,authorizeCertificateStatus"`
}

type AuthorizeFeature struct{}

func (f AuthorizeFeature) GetFeatureName() string {
	return AuthorizeFeatureName
}

func (f AuthorizeFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(AuthorizeRequest{})
}

func (f AuthorizeFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(AuthorizeResponse{})
}

func (r AuthorizeRequest) GetFeatureName() string {
	return AuthorizeFeatureName
}

func (c AuthorizeResponse) GetFeatureName() string {
	return AuthorizeFeatureName
}

func NewAuthorizeRequest(idToken types.IdToken) *AuthorizeRequest {
	return &AuthorizeRequest{IdToken: idToken}
}

func NewAuthorizeResponse(info types.IdTokenInfo) *AuthorizeResponse {
	return &AuthorizeResponse{IdTokenInfo: info}
}

func init() {
	_ = types.Validate.RegisterValidation("authorizeCertificateStatus", isValidAuthorizeCertificateStatus)
}
