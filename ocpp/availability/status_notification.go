package availability

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const StatusNotificationFeatureName = "StatusNotification"

type ConnectorStatus string

const (
	ConnectorStatusAvailable   ConnectorStatus = "Available"
	ConnectorStatusOccupied    ConnectorStatus = "Occupied"
	ConnectorStatusReserved    ConnectorStatus = "Reserved"
	ConnectorStatusUnavailable ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted     ConnectorStatus = "Faulted"
)

func isValidConnectorStatus(fl validator.FieldLevel) bool {
	switch ConnectorStatus(fl.Field().String()) {
	case ConnectorStatusAvailable, ConnectorStatusOccupied, ConnectorStatusReserved,
		ConnectorStatusUnavailable, ConnectorStatusFaulted:
		return true
	default:
		return false
	}
}

type StatusNotificationRequest struct {
	Timestamp       *types.DateTime `json:"timestamp" validate:"required"`
	ConnectorStatus ConnectorStatus `json:"connectorStatus" validate:"required,connectorStatus"`
	EvseId          int             `json:"evseId" validate:"gte=0"`
	ConnectorId     int             `json:"connectorId" validate:"gte=0"`
}

type StatusNotificationResponse struct {
}

type StatusNotificationFeature struct{}

func (f StatusNotificationFeature) GetFeatureName() string {
	return StatusNotificationFeatureName
}

func (f StatusNotificationFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(StatusNotificationRequest{})
}

func (f StatusNotificationFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(StatusNotificationResponse{})
}

func (r StatusNotificationRequest) GetFeatureName() string {
	return StatusNotificationFeatureName
}

func (c StatusNotificationResponse) GetFeatureName() string {
	return StatusNotificationFeatureName
}

func NewStatusNotificationRequest(timestamp *types.DateTime, status ConnectorStatus, evseId int, connectorId int) *StatusNotificationRequest {
	return &StatusNotificationRequest{Timestamp: timestamp, ConnectorStatus: status, EvseId: evseId, ConnectorId: connectorId}
}

func init() {
	_ = types.Validate.RegisterValidation("connectorStatus", isValidConnectorStatus)
}
