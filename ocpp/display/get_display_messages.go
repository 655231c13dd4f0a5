package display

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const GetDisplayMessagesFeatureName = "GetDisplayMessages"

type GetDisplayMessagesStatus string

const (
	GetDisplayMessagesStatusAccepted GetDisplayMessagesStatus = "Accepted"
	GetDisplayMessagesStatusUnknown  GetDisplayMessagesStatus = "Unknown"
)

func isValidGetDisplayMessagesStatus(fl validator.FieldLevel) bool {
	switch GetDisplayMessagesStatus(fl.Field().String()) {
	case GetDisplayMessagesStatusAccepted, GetDisplayMessagesStatusUnknown:
		return true
	default:
		return false
	}
}

type GetDisplayMessagesRequest struct {
	RequestId int             `json:"requestId" validate:"gte=0"`
	Id        []int           `json:"id,omitempty"`
	Priority  MessagePriority `json:"priority,omitempty" validate:"omitempty,messagePriority"`
	State     MessageState    `json:"state,omitempty" validate:"omitempty,messageState"`
}

type GetDisplayMessagesResponse struct {
	Status     GetDisplayMessagesStatus `json:"status" validate:"required,getDisplayMessagesStatus"`
	StatusInfo *types.StatusInfo        `json:"statusInfo,omitempty"`
}

type GetDisplayMessagesFeature struct{}

func (f GetDisplayMessagesFeature) GetFeatureName() string {
	return GetDisplayMessagesFeatureName
}

func (f GetDisplayMessagesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetDisplayMessagesRequest{})
}

func (f GetDisplayMessagesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetDisplayMessagesResponse{})
}

func (r GetDisplayMessagesRequest) GetFeatureName() string {
	return GetDisplayMessagesFeatureName
}

func (c GetDisplayMessagesResponse) GetFeatureName() string {
	return GetDisplayMessagesFeatureName
}

func NewGetDisplayMessagesResponse(status GetDisplayMessagesStatus) *GetDisplayMessagesResponse {
	return &GetDisplayMessagesResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("getDisplayMessagesStatus", isValidGetDisplayMessagesStatus)
}
