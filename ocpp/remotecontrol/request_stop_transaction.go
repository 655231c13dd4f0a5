package remotecontrol

import (
	"reflect"

	"evcp/ocpp/types"
)

const RequestStopTransactionFeatureName = "RequestStopTransaction"

type RequestStopTransactionRequest struct {
	TransactionId string `json:"transactionId" validate:"required,max=36"`
}

type RequestStopTransactionResponse struct {
	Status     RequestStartStopStatus `json:"status" validate:"required,requestStartStopStatus"`
	StatusInfo *types.StatusInfo      `json:"statusInfo,omitempty"`
}

type RequestStopTransactionFeature struct{}

func (f RequestStopTransactionFeature) GetFeatureName() string {
	return RequestStopTransactionFeatureName
}

func (f RequestStopTransactionFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(RequestStopTransactionRequest{})
}

func (f RequestStopTransactionFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(RequestStopTransactionResponse{})
}

func (r RequestStopTransactionRequest) GetFeatureName() string {
	return RequestStopTransactionFeatureName
}

func (c RequestStopTransactionResponse) GetFeatureName() string {
	return RequestStopTransactionFeatureName
}

func NewRequestStopTransactionResponse(status RequestStartStopStatus) *RequestStopTransactionResponse {
	return &RequestStopTransactionResponse{Status: status}
}
