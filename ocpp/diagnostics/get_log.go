package diagnostics

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const (
	GetLogFeatureName                = "GetLog"
	LogStatusNotificationFeatureName = "LogStatusNotification"
)

type LogType string
type LogStatus string
type UploadLogStatus string

const (
	LogTypeDiagnostics LogType = "DiagnosticsLog"
	LogTypeSecurity    LogType = "SecurityLog"

	LogStatusAccepted         LogStatus = "Accepted"
	LogStatusRejected         LogStatus = "Rejected"
	LogStatusAcceptedCanceled LogStatus = "AcceptedCanceled"

	UploadLogStatusBadMessage       UploadLogStatus = "BadMessage"
	UploadLogStatusIdle             UploadLogStatus = "Idle"
	UploadLogStatusNotSupported     UploadLogStatus = "NotSupportedOperation"
	UploadLogStatusPermissionDenied UploadLogStatus = "PermissionDenied"
	UploadLogStatusUploaded         UploadLogStatus = "Uploaded"
	UploadLogStatusUploadFailure    UploadLogStatus = "UploadFailure"
	UploadLogStatusUploading        UploadLogStatus = "Uploading"
)

func isValidLogType(fl validator.FieldLevel) bool {
	switch LogType(fl.Field().String()) {
	case LogTypeDiagnostics, LogTypeSecurity:
		return true
	default:
		return false
	}
}

func isValidLogStatus(fl validator.FieldLevel) bool {
	switch LogStatus(fl.Field().String()) {
	case LogStatusAccepted, LogStatusRejected, LogStatusAcceptedCanceled:
		return true
	default:
		return false
	}
}

func isValidUploadLogStatus(fl validator.FieldLevel) bool {
	switch UploadLogStatus(fl.Field().String()) {
	case UploadLogStatusBadMessage, UploadLogStatusIdle, UploadLogStatusNotSupported,
		UploadLogStatusPermissionDenied, UploadLogStatusUploaded, UploadLogStatusUploadFailure,
		UploadLogStatusUploading:
		return true
	default:
		return false
	}
}

type LogParameters struct {
	RemoteLocation  string          `json:"remoteLocation" validate:"required,max=512"`
	OldestTimestamp *types.DateTime `json:"oldestTimestamp,omitempty"`
	LatestTimestamp *types.DateTime `json:"latestTimestamp,omitempty"`
}

type GetLogRequest struct {
	Log           LogParameters `json:"log" validate:"required"`
	LogType       LogType       `json:"logType" validate:"required,logType"`
	RequestId     int           `json:"requestId" validate:"gte=0"`
	Retries       *int          `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetryInterval *int          `json:"retryInterval,omitempty" validate:"omitempty,gte=0"`
}

type GetLogResponse struct {
	Status     LogStatus         `json:"status" validate:"required,logStatus"`
	Filename   string            `json:"filename,omitempty" validate:"omitempty,max=255"`
	StatusInfo *types.StatusInfo `json:"statusInfo,omitempty"`
}

type LogStatusNotificationRequest struct {
	Status    UploadLogStatus `json:"status" validate:"required,uploadLogStatus"`
	RequestId int             `json:"requestId" validate:"gte=0"`
}

type LogStatusNotificationResponse struct {
}

type GetLogFeature struct{}

func (f GetLogFeature) GetFeatureName() string {
	return GetLogFeatureName
}

func (f GetLogFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetLogRequest{})
}

func (f GetLogFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetLogResponse{})
}

func (r GetLogRequest) GetFeatureName() string {
	return GetLogFeatureName
}

func (c GetLogResponse) GetFeatureName() string {
	return GetLogFeatureName
}

func (r LogStatusNotificationRequest) GetFeatureName() string {
	return LogStatusNotificationFeatureName
}

func (c LogStatusNotificationResponse) GetFeatureName() string {
	return LogStatusNotificationFeatureName
}

func NewGetLogResponse(status LogStatus) *GetLogResponse {
	return &GetLogResponse{Status: status}
}

func NewLogStatusNotificationRequest(status UploadLogStatus, requestId int) *LogStatusNotificationRequest {
	return &LogStatusNotificationRequest{Status: status, RequestId: requestId}
}

func init() {
	_ = types.Validate.RegisterValidation("logType", isValidLogType)
	_ = types.Validate.RegisterValidation("logStatus", isValidLogStatus)
	_ = types.Validate.RegisterValidation("uploadLogStatus", isValidUploadLogStatus)
}
