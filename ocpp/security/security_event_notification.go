package security

import (
	"reflect"

	"evcp/ocpp/types"
)

const SecurityEventNotificationFeatureName = "SecurityEventNotification"

// Well-known security event types from the OCPP 2.0.1 appendix.
const (
	EventStartupOfTheDevice         = "StartupOfTheDevice"
	EventResetOrReboot              = "ResetOrReboot"
	EventSecurityLogWasCleared      = "SecurityLogWasCleared"
	EventReconfigurationOfSecurity  = "ReconfigurationOfSecurityParameters"
	EventMemoryExhaustion           = "MemoryExhaustion"
	EventInvalidMessages            = "InvalidMessages"
	EventAttemptedReplayAttacks     = "AttemptedReplayAttacks"
	EventTamperDetectionActivated   = "TamperDetectionActivated"
	EventInvalidFirmwareSignature   = "InvalidFirmwareSignature"
	EventInvalidFirmwareSigningCert = "InvalidFirmwareSigningCertificate"
	EventInvalidCsmsCertificate     = "InvalidCsmsCertificate"
	EventInvalidChargingStationCert = "InvalidChargingStationCertificate"
	EventInvalidTLSVersion          = "InvalidTLSVersion"
	EventInvalidTLSCipherSuite      = "InvalidTLSCipherSuite"
)

type SecurityEventNotificationRequest struct {
	Type      string          `json:"type" validate:"required,max=50"`
	Timestamp *types.DateTime `json:"timestamp" validate:"required"`
	TechInfo  string          `json:"techInfo,omitempty" validate:"omitempty,max=255"`
}

type SecurityEventNotificationResponse struct {
}

type SecurityEventNotificationFeature struct{}

func (f SecurityEventNotificationFeature) GetFeatureName() string {
	return SecurityEventNotificationFeatureName
}

func (f SecurityEventNotificationFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(SecurityEventNotificationRequest{})
}

func (f SecurityEventNotificationFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(SecurityEventNotificationResponse{})
}

func (r SecurityEventNotificationRequest) GetFeatureName() string {
	return SecurityEventNotificationFeatureName
}

func (c SecurityEventNotificationResponse) GetFeatureName() string {
	return SecurityEventNotificationFeatureName
}

func NewSecurityEventNotificationRequest(eventType string, timestamp *types.DateTime) *SecurityEventNotificationRequest {
	return &SecurityEventNotificationRequest{Type: eventType, Timestamp: timestamp}
}
