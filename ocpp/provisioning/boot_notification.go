package provisioning

import (
	"reflect"
	"time"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const BootNotificationFeatureName = "BootNotification"

type BootReason string
type RegistrationStatus string

const (
	BootReasonApplicationReset BootReason = "ApplicationReset"
	BootReasonFirmwareUpdate   BootReason = "FirmwareUpdate"
	BootReasonLocalReset       BootReason = "LocalReset"
	BootReasonPowerUp          BootReason = "PowerUp"
	BootReasonRemoteReset      BootReason = "RemoteReset"
	BootReasonScheduledReset   BootReason = "ScheduledReset"
	BootReasonTriggered        BootReason = "Triggered"
	BootReasonUnknown          BootReason = "Unknown"
	BootReasonWatchdog         BootReason = "Watchdog"

	RegistrationStatusAccepted RegistrationStatus = "Accepted"
	RegistrationStatusPending  RegistrationStatus = "Pending"
	RegistrationStatusRejected RegistrationStatus = "Rejected"
)

func isValidBootReason(fl validator.FieldLevel) bool {
	switch BootReason(fl.Field().String()) {
	case BootReasonApplicationReset, BootReasonFirmwareUpdate, BootReasonLocalReset, BootReasonPowerUp,
		BootReasonRemoteReset, BootReasonScheduledReset, BootReasonTriggered, BootReasonUnknown, BootReasonWatchdog:
		return true
	default:
		return false
	}
}

func isValidRegistrationStatus(fl validator.FieldLevel) bool {
	switch RegistrationStatus(fl.Field().String()) {
	case RegistrationStatusAccepted, RegistrationStatusPending, RegistrationStatusRejected:
		return true
	default:
		return false
	}
}

type ModemType struct {
	Iccid string `json:"iccid,omitempty" validate:"omitempty,max=20"`
	Imsi  string `json:"imsi,omitempty" validate:"omitempty,max=20"`
}

type ChargingStationType struct {
	Model           string     `json:"model" validate:"required,max=20"`
	VendorName      string     `json:"vendorName" validate:"required,max=50"`
	SerialNumber    string     `json:"serialNumber,omitempty" validate:"omitempty,max=25"`
	FirmwareVersion string     `json:"firmwareVersion,omitempty" validate:"omitempty,max=50"`
	Modem           *ModemType `json:"modem,omitempty"`
}

type BootNotificationRequest struct {
	Reason          BootReason          `json:"reason" validate:"required,bootReason"`
	ChargingStation ChargingStationType `json:"chargingStation" validate:"required"`
}

type BootNotificationResponse struct {
	CurrentTime *types.DateTime    `json:"currentTime" validate:"required"`
	Interval    int                `json:"interval" validate:"gte=0"`
	Status      RegistrationStatus `json:"status" validate:"required,registrationStatus"`
	StatusInfo  *types.StatusInfo  `json:"statusInfo,omitempty"`
}

type BootNotificationFeature struct{}

func (f BootNotificationFeature) GetFeatureName() string {
	return BootNotificationFeatureName
}

func (f BootNotificationFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(BootNotificationRequest{})
}

func (f BootNotificationFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(BootNotificationResponse{})
}

func (r BootNotificationRequest) GetFeatureName() string {
	return BootNotificationFeatureName
}

func (c BootNotificationResponse) GetFeatureName() string {
	return BootNotificationFeatureName
}

func NewBootNotificationRequest(reason BootReason, model string, vendor string) *BootNotificationRequest {
	return &BootNotificationRequest{Reason: reason, ChargingStation: ChargingStationType{Model: model, VendorName: vendor}}
}

func NewBootNotificationResponse(currentTime time.Time, interval int, status RegistrationStatus) *BootNotificationResponse {
	return &BootNotificationResponse{CurrentTime: types.NewDateTime(currentTime), Interval: interval, Status: status}
}

func init() {
	_ = types.Validate.RegisterValidation("bootReason", isValidBootReason)
	_ = types.Validate.RegisterValidation("registrationStatus", isValidRegistrationStatus)
}
