package localauth

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const SendLocalListFeatureName = "SendLocalList"

type UpdateType string
type SendLocalListStatus string

const (
	UpdateTypeDifferential UpdateType = "Differential"
	UpdateTypeFull         UpdateType = "Full"

	UpdateStatusAccepted        SendLocalListStatus = "Accepted"
	UpdateStatusFailed          SendLocalListStatus = "Failed"
	UpdateStatusVersionMismatch SendLocalListStatus = "VersionMismatch"
)

func isValidUpdateType(fl validator.FieldLevel) bool {
	switch UpdateType(fl.Field().String()) {
	case UpdateTypeDifferential, UpdateTypeFull:
		return true
	default:
		return false
	}
}

func isValidUpdateStatus(fl validator.FieldLevel) bool {
	switch SendLocalListStatus(fl.Field().String()) {
	case UpdateStatusAccepted, UpdateStatusFailed, UpdateStatusVersionMismatch:
		return true
	default:
		return false
	}
}

// AuthorizationData entry without idTokenInfo requests deletion on a
// differential update.
type AuthorizationData struct {
	IdToken     types.IdToken      `json:"idToken" validate:"required"`
	IdTokenInfo *types.IdTokenInfo `json:"idTokenInfo,omitempty"`
}

type SendLocalListRequest struct {
	VersionNumber          int                 `json:"versionNumber" validate:"gte=0"`
	UpdateType             UpdateType          `json:"updateType" validate:"required,updateType"`
	LocalAuthorizationList []AuthorizationData `json:"localAuthorizationList,omitempty" validate:"omitempty,dive"`
}

type SendLocalListResponse struct {
	Status     SendLocalListStatus `json:"status" validate:"required,updateStatus"`
	StatusInfo *types.StatusInfo   `json:"statusInfo,omitempty"`
}

type SendLocalListFeature struct{}

func (f SendLocalListFeature) GetFeatureName() string {
	return SendLocalListFeatureName
}

func (f SendLocalListFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SendLocalListRequest{})
}

func (f SendLocalListFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SendLocalListResponse{})
}

func (r SendLocalListRequest) GetFeatureName() string {
	return SendLocalListFeatureName
}

func (c SendLocalListResponse) GetFeatureName() string {
	return SendLocalListFeatureName
}

func NewSendLocalListRequest(version int, updateType UpdateType) *SendLocalListRequest {
	return &SendLocalListRequest{VersionNumber: version, UpdateType: updateType}
}

func NewSendLocalListResponse(status SendLocalListStatus) *SendLocalListResponse {
	return &SendLocalListResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("updateType", isValidUpdateType)
	_ = types.Validate.RegisterValidation("updateStatus", isValidUpdateStatus)
}
