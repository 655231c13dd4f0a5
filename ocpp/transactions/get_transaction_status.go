package transactions

import (
	"reflect"
)

const GetTransactionStatusFeatureName = "GetTransactionStatus"

type GetTransactionStatusRequest struct {
	TransactionId string `json:"transactionId,omitempty" validate:"omitempty,max=36"`
}

type GetTransactionStatusResponse struct {
	OngoingIndicator *bool `json:"ongoingIndicator,omitempty"`
	MessagesInQueue  bool  `json:"messagesInQueue"`
}

type GetTransactionStatusFeature struct{}

func (f GetTransactionStatusFeature) GetFeatureName() string {
	return GetTransactionStatusFeatureName
}

func (f GetTransactionStatusFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetTransactionStatusRequest{})
}

func (f GetTransactionStatusFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetTransactionStatusResponse{})
}

func (r GetTransactionStatusRequest) GetFeatureName() string {
	return GetTransactionStatusFeatureName
}

func (c GetTransactionStatusResponse) GetFeatureName() string {
	return GetTransactionStatusFeatureName
}

func NewGetTransactionStatusResponse(messagesInQueue bool) *GetTransactionStatusResponse {
	return &GetTransactionStatusResponse{MessagesInQueue: messagesInQueue}
}
