package remotecontrol

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const RequestStartTransactionFeatureName = "RequestStartTransaction"

type RequestStartStopStatus string

const (
	RequestStartStopStatusAccepted RequestStartStopStatus = "Accepted"
	RequestStartStopStatusRejected RequestStartStopStatus = "Rejected"
)

func isValidRequestStartStopStatus(fl validator.FieldLevel) bool {
	switch RequestStartStopStatus(fl.Field().String()) {
	case RequestStartStopStatusAccepted, RequestStartStopStatusRejected:
		return true
	default:
		return false
	}
}

type RequestStartTransactionRequest struct {
	EvseId          *int                   `json:"evseId,omitempty" validate:"omitempty,gt=0"`
	RemoteStartId   int                    `json:"remoteStartId"`
	IdToken         types.IdToken          `json:"idToken" validate:"required"`
	ChargingProfile *types.ChargingProfile `json:"chargingProfile,omitempty"`
	GroupIdToken    *types.IdToken         `json:"groupIdToken,omitempty"`
}

type RequestStartTransactionResponse struct {
	Status        RequestStartStopStatus `json:"status" validate:"required,requestStartStopStatus"`
	TransactionId string                 `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	StatusInfo    *types.StatusInfo      `json:"statusInfo,omitempty"`
}

type RequestStartTransactionFeature struct{}

func (f RequestStartTransactionFeature) GetFeatureName() string {
	return RequestStartTransactionFeatureName
}

func (f RequestStartTransactionFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(RequestStartTransactionRequest{})
}

func (f RequestStartTransactionFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(RequestStartTransactionResponse{})
}

func (r RequestStartTransactionRequest) GetFeatureName() string {
	return RequestStartTransactionFeatureName
}

func (c RequestStartTransactionResponse) GetFeatureName() string {
	return RequestStartTransactionFeatureName
}

func NewRequestStartTransactionResponse(status RequestStartStopStatus) *RequestStartTransactionResponse {
	return &RequestStartTransactionResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("requestStartStopStatus", isValidRequestStartStopStatus)
}
