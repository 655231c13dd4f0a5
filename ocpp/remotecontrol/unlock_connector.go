package remotecontrol

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const UnlockConnectorFeatureName = "UnlockConnector"

type UnlockStatus string

const (
	UnlockStatusUnlocked                     UnlockStatus = "Unlocked"
	UnlockStatusUnlockFailed                 UnlockStatus = "UnlockFailed"
	UnlockStatusOngoingAuthorizedTransaction UnlockStatus = "OngoingAuthorizedTransaction"
	UnlockStatusUnknownConnector             UnlockStatus = "UnknownConnector"
)

func isValidUnlockStatus(fl validator.FieldLevel) bool {
	switch UnlockStatus(fl.Field().String()) {
	case UnlockStatusUnlocked, UnlockStatusUnlockFailed, UnlockStatusOngoingAuthorizedTransaction,
		UnlockStatusUnknownConnector:
		return true
	default:
		return false
	}
}

type UnlockConnectorRequest struct {
	EvseId      int `json:"evseId" validate:"gt=0"`
	ConnectorId int `json:"connectorId" validate:"gt=0"`
}

type UnlockConnectorResponse struct {
	Status     UnlockStatus      `json:"status" validate:"required,unlockStatus"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type UnlockConnectorFeature struct{}

func (f UnlockConnectorFeature) GetFeatureName() string {
	return UnlockConnectorFeatureName
}

func (f UnlockConnectorFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(UnlockConnectorRequest{})
}

func (f UnlockConnectorFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(UnlockConnectorResponse{})
}

func (r UnlockConnectorRequest) GetFeatureName() string {
	return UnlockConnectorFeatureName
}

func (c UnlockConnectorResponse) GetFeatureName() string {
	return UnlockConnectorFeatureName
}

func NewUnlockConnectorResponse(status UnlockStatus) *UnlockConnectorResponse {
	return &UnlockConnectorResponse{Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("unlockStatus", isValidUnlockStatus)
}
