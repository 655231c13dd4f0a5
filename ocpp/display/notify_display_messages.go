package display

import (
	"reflect"
)

const NotifyDisplayMessagesFeatureName = "NotifyDisplayMessages"

type NotifyDisplayMessagesRequest struct {
	RequestId   int           `json:"requestId" validate:"gte=0"`
	Tbc         bool          `json:"tbc,omitempty"`
	MessageInfo []MessageInfo `json:"messageInfo,omitempty" validate:"omitempty,dive"`
}

type NotifyDisplayMessagesResponse struct {
}

type NotifyDisplayMessagesFeature struct{}

func (f NotifyDisplayMessagesFeature) GetFeatureName() string {
	return NotifyDisplayMessagesFeatureName
}

func (f NotifyDisplayMessagesFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(NotifyDisplayMessagesRequest{})
}

func (f NotifyDisplayMessagesFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(NotifyDisplayMessagesResponse{})
}

func (r NotifyDisplayMessagesRequest) GetFeatureName() string {
	return NotifyDisplayMessagesFeatureName
}

func (c NotifyDisplayMessagesResponse) GetFeatureName() string {
	return NotifyDisplayMessagesFeatureName
}

func NewNotifyDisplayMessagesRequest(requestId int, messages []MessageInfo) *NotifyDisplayMessagesRequest {
	return &NotifyDisplayMessagesRequest{RequestId: requestId, MessageInfo: messages}
}
