package display

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const ClearDisplayMessageFeatureName = "ClearDisplayMessage"

type ClearMessageStatus string

const (
	ClearMessageStatusAccepted ClearMessageStatus = "Accepted"
	ClearMessageStatusUnknown  ClearMessageStatus = "Unknown"
)

func isValidClearMessageStatus(fl validator.FieldLevel) bool {
	switch ClearMessageStatus(fl.Field().String()) {
	case ClearMessageStatusAccepted, ClearMessageStatusUnknown:
		return true
	default:
		return false
	}
}

type ClearDisplayMessageRequest struct {
	Id int `json:"id" validate:"gte=0"`
}

type ClearDisplayMessageResponse struct {
	Status     ClearMessageStatus `json:"status" validate:"required,clearMessageStatus"`
	StatusInfo *types.StatusInfo  `json:"statusInfo,omitempty"`
}

type ClearDisplayMessageFeature struct{}

func (f ClearDisplayMessageFeature) GetFeatureName() string {
	return ClearDisplayMessageFeatureName
}

func (f ClearDisplayMessageFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(ClearDisplayMessageRequest{})
}

func (f ClearDisplayMessageFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(ClearDisplayMessageResponse{})
}

func (r ClearDisplayMessageRequest) GetFeatureName() string {
	return ClearDisplayMessageFeatureName
}

func (c ClearDisplayMessageResponse) GetFeatureName() string {
	return ClearDisplayMessageFeatureName
}

func NewClearDisplayMessageResponse(status ClearMessageStatus) *ClearDisplayMessageResponse {
	return &ClearDisplayMessageResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("clearMessageStatus", isValidClearMessageStatus)
}
