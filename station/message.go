package station

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"evcp/ocpp"
	"evcp/ocpp/authorization"
	"evcp/ocpp/availability"
	"evcp/ocpp/diagnostics"
	"evcp/ocpp/display"
	"evcp/ocpp/localauth"
	"evcp/ocpp/metervalues"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/remotecontrol"
	"evcp/ocpp/security"
	"evcp/ocpp/smartcharging"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"
	"evcp/utility"

	"github.com/go-playground/validator/v10"
)

type CallType int

const (
	CallTypeRequest CallType = 2
	CallTypeResult  CallType = 3
	CallTypeError   CallType = 4
)

type ErrorCode string

const (
	FormationViolation            ErrorCode = "FormationViolation"
	ProtocolError                 ErrorCode = "ProtocolError"
	OccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	PropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	TypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
	NotImplemented                ErrorCode = "NotImplemented"
	NotSupported                  ErrorCode = "NotSupported"
	InternalError                 ErrorCode = "InternalError"
	SecurityError                 ErrorCode = "SecurityError"
	GenericError                  ErrorCode = "GenericError"
)

// Call is an outbound or inbound OCPP-J Call, [2, id, action, payload].
type Call struct {
	UniqueId string
	Action   string
	Payload  ocpp.Request
}

func (call *Call) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 4)
	fields[0] = int(CallTypeRequest)
	fields[1] = call.UniqueId
	fields[2] = call.Action
	fields[3] = call.Payload
	return json.Marshal(fields)
}

// CallResult is [3, id, payload].
type CallResult struct {
	UniqueId string
	Payload  ocpp.Response
}

func (callResult *CallResult) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 3)
	fields[0] = int(CallTypeResult)
	fields[1] = callResult.UniqueId
	fields[2] = callResult.Payload
	return json.Marshal(fields)
}

// CallError is [4, id, errorCode, errorDescription, errorDetails].
type CallError struct {
	UniqueId    string
	Code        ErrorCode
	Description string
	Details     map[string]interface{}
}

func (callError *CallError) Error() string {
	return fmt.Sprintf("%s: %s", callError.Code, callError.Description)
}

func (callError *CallError) MarshalJSON() ([]byte, error) {
	details := callError.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	fields := make([]interface{}, 5)
	fields[0] = int(CallTypeError)
	fields[1] = callError.UniqueId
	fields[2] = string(callError.Code)
	fields[3] = callError.Description
	fields[4] = details
	return json.Marshal(fields)
}

func NewCallError(uniqueId string, code ErrorCode, description string) *CallError {
	return &CallError{UniqueId: uniqueId, Code: code, Description: description}
}

// parseJsonArray splits a raw OCPP-J frame into its top-level fields.
func parseJsonArray(data []byte) ([]interface{}, error) {
	var fields []interface{}
	err := json.Unmarshal(data, &fields)
	return fields, err
}

func MessageType(fields []interface{}) (CallType, error) {
	if len(fields) < 3 {
		return 0, utility.Err("incompatible message structure")
	}
	rawTypeId, ok := fields[0].(float64)
	if !ok {
		return 0, utility.Err("invalid message type id")
	}
	typeId := CallType(rawTypeId)
	switch typeId {
	case CallTypeRequest, CallTypeResult, CallTypeError:
		return typeId, nil
	default:
		return 0, utility.Errf("unsupported message type id: %v", typeId)
	}
}

func MessageUniqueId(fields []interface{}) (string, error) {
	if len(fields) < 2 {
		return "", utility.Err("incompatible message structure")
	}
	uniqueId, ok := fields[1].(string)
	if !ok {
		return "", utility.Err("invalid message unique id")
	}
	return uniqueId, nil
}

// ParseCall parses an inbound CSMS request. On failure the returned
// CallError already carries the unique id when one could be extracted.
func ParseCall(fields []interface{}) (*Call, *CallError) {
	uniqueId, err := MessageUniqueId(fields)
	if err != nil {
		return nil, NewCallError("", FormationViolation, err.Error())
	}
	if len(fields) != 4 {
		return nil, NewCallError(uniqueId, FormationViolation, "expected 4 elements in call")
	}
	action, ok := fields[2].(string)
	if !ok {
		return nil, NewCallError(uniqueId, FormationViolation, "invalid action in call")
	}
	requestType, err := getRequestType(action)
	if err != nil {
		return nil, NewCallError(uniqueId, NotImplemented, err.Error())
	}
	request, err := ocpp.ParseRawJsonRequest(fields[3], requestType)
	if err != nil {
		return nil, NewCallError(uniqueId, codeForDecodeError(err), err.Error())
	}
	if err = types.Validate.Struct(request); err != nil {
		return nil, NewCallError(uniqueId, codeForValidationError(err), err.Error())
	}
	return &Call{
		UniqueId: uniqueId,
		Action:   action,
		Payload:  request,
	}, nil
}

// RawResult holds a CallResult payload before it is bound to the
// pending request's response type.
type RawResult struct {
	UniqueId string
	Payload  interface{}
}

func ParseResult(fields []interface{}) (*RawResult, error) {
	uniqueId, err := MessageUniqueId(fields)
	if err != nil {
		return nil, err
	}
	if len(fields) != 3 {
		return nil, utility.Err("expected 3 elements in call result")
	}
	return &RawResult{UniqueId: uniqueId, Payload: fields[2]}, nil
}

func ParseError(fields []interface{}) (*CallError, error) {
	uniqueId, err := MessageUniqueId(fields)
	if err != nil {
		return nil, err
	}
	if len(fields) < 4 {
		return nil, utility.Err("expected at least 4 elements in call error")
	}
	code, ok := fields[2].(string)
	if !ok {
		return nil, utility.Err("invalid error code in call error")
	}
	description, _ := fields[3].(string)
	callError := &CallError{
		UniqueId:    uniqueId,
		Code:        ErrorCode(code),
		Description: description,
	}
	if len(fields) > 4 {
		if details, ok := fields[4].(map[string]interface{}); ok {
			callError.Details = details
		}
	}
	return callError, nil
}

// BindResult decodes a raw result payload into the response type of the
// action it answers, then validates it.
func BindResult(result *RawResult, action string) (ocpp.Response, error) {
	responseType, err := getResponseType(action)
	if err != nil {
		return nil, err
	}
	response, err := ocpp.ParseRawJsonResponse(result.Payload, responseType)
	if err != nil {
		return nil, err
	}
	if err = types.Validate.Struct(response); err != nil {
		return nil, err
	}
	return response, nil
}

func codeForDecodeError(err error) ErrorCode {
	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		return TypeConstraintViolation
	}
	return FormationViolation
}

func codeForValidationError(err error) ErrorCode {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			if fieldError.Tag() == "required" {
				return OccurrenceConstraintViolation
			}
		}
		return PropertyConstraintViolation
	}
	return FormationViolation
}

// getRequestType resolves actions the CSMS may send to the station.
func getRequestType(action string) (reflect.Type, error) {
	switch action {
	case provisioning.GetVariablesFeatureName:
		return reflect.TypeOf(provisioning.GetVariablesRequest{}), nil
	case provisioning.SetVariablesFeatureName:
		return reflect.TypeOf(provisioning.SetVariablesRequest{}), nil
	case provisioning.GetBaseReportFeatureName:
		return reflect.TypeOf(provisioning.GetBaseReportRequest{}), nil
	case provisioning.GetReportFeatureName:
		return reflect.TypeOf(provisioning.GetReportRequest{}), nil
	case provisioning.ResetFeatureName:
		return reflect.TypeOf(provisioning.ResetRequest{}), nil
	case availability.ChangeAvailabilityFeatureName:
		return reflect.TypeOf(availability.ChangeAvailabilityRequest{}), nil
	case authorization.ClearCacheFeatureName:
		return reflect.TypeOf(authorization.ClearCacheRequest{}), nil
	case localauth.SendLocalListFeatureName:
		return reflect.TypeOf(localauth.SendLocalListRequest{}), nil
	case localauth.GetLocalListVersionFeatureName:
		return reflect.TypeOf(localauth.GetLocalListVersionRequest{}), nil
	case remotecontrol.RequestStartTransactionFeatureName:
		return reflect.TypeOf(remotecontrol.RequestStartTransactionRequest{}), nil
	case remotecontrol.RequestStopTransactionFeatureName:
		return reflect.TypeOf(remotecontrol.RequestStopTransactionRequest{}), nil
	case remotecontrol.TriggerMessageFeatureName:
		return reflect.TypeOf(remotecontrol.TriggerMessageRequest{}), nil
	case remotecontrol.UnlockConnectorFeatureName:
		return reflect.TypeOf(remotecontrol.UnlockConnectorRequest{}), nil
	case smartcharging.SetChargingProfileFeatureName:
		return reflect.TypeOf(smartcharging.SetChargingProfileRequest{}), nil
	case smartcharging.ClearChargingProfileFeatureName:
		return reflect.TypeOf(smartcharging.ClearChargingProfileRequest{}), nil
	case smartcharging.GetChargingProfilesFeatureName:
		return reflect.TypeOf(smartcharging.GetChargingProfilesRequest{}), nil
	case smartcharging.GetCompositeScheduleFeatureName:
		return reflect.TypeOf(smartcharging.GetCompositeScheduleRequest{}), nil
	case security.CertificateSignedFeatureName:
		return reflect.TypeOf(security.CertificateSignedRequest{}), nil
	case security.InstallCertificateFeatureName:
		return reflect.TypeOf(security.InstallCertificateRequest{}), nil
	case security.DeleteCertificateFeatureName:
		return reflect.TypeOf(security.DeleteCertificateRequest{}), nil
	case security.GetInstalledCertificateIdsFeatureName:
		return reflect.TypeOf(security.GetInstalledCertificateIdsRequest{}), nil
	case display.SetDisplayMessageFeatureName:
		return reflect.TypeOf(display.SetDisplayMessageRequest{}), nil
	case display.GetDisplayMessagesFeatureName:
		return reflect.TypeOf(display.GetDisplayMessagesRequest{}), nil
	case display.ClearDisplayMessageFeatureName:
		return reflect.TypeOf(display.ClearDisplayMessageRequest{}), nil
	case display.CostUpdatedFeatureName:
		return reflect.TypeOf(display.CostUpdatedRequest{}), nil
	case transactions.GetTransactionStatusFeatureName:
		return reflect.TypeOf(transactions.GetTransactionStatusRequest{}), nil
	case diagnostics.SetVariableMonitoringFeatureName:
		return reflect.TypeOf(diagnostics.SetVariableMonitoringRequest{}), nil
	case diagnostics.ClearVariableMonitoringFeatureName:
		return reflect.TypeOf(diagnostics.ClearVariableMonitoringRequest{}), nil
	case diagnostics.GetMonitoringReportFeatureName:
		return reflect.TypeOf(diagnostics.GetMonitoringReportRequest{}), nil
	case diagnostics.GetLogFeatureName:
		return reflect.TypeOf(diagnostics.GetLogRequest{}), nil
	case ocpp.DataTransferFeatureName:
		return reflect.TypeOf(ocpp.DataTransferRequest{}), nil
	default:
		return nil, utility.Errf("unsupported action requested: %s", action)
	}
}

// getOutboundRequestType resolves station-initiated actions, used when
// restoring persisted queue entries.
func getOutboundRequestType(action string) (reflect.Type, error) {
	switch action {
	case provisioning.BootNotificationFeatureName:
		return reflect.TypeOf(provisioning.BootNotificationRequest{}), nil
	case provisioning.NotifyReportFeatureName:
		return reflect.TypeOf(provisioning.NotifyReportRequest{}), nil
	case availability.HeartbeatFeatureName:
		return reflect.TypeOf(availability.HeartbeatRequest{}), nil
	case availability.StatusNotificationFeatureName:
		return reflect.TypeOf(availability.StatusNotificationRequest{}), nil
	case authorization.AuthorizeFeatureName:
		return reflect.TypeOf(authorization.AuthorizeRequest{}), nil
	case transactions.TransactionEventFeatureName:
		return reflect.TypeOf(transactions.TransactionEventRequest{}), nil
	case metervalues.MeterValuesFeatureName:
		return reflect.TypeOf(metervalues.MeterValuesRequest{}), nil
	case smartcharging.ReportChargingProfilesFeatureName:
		return reflect.TypeOf(smartcharging.ReportChargingProfilesRequest{}), nil
	case security.SecurityEventNotificationFeatureName:
		return reflect.TypeOf(security.SecurityEventNotificationRequest{}), nil
	case security.SignCertificateFeatureName:
		return reflect.TypeOf(security.SignCertificateRequest{}), nil
	case display.NotifyDisplayMessagesFeatureName:
		return reflect.TypeOf(display.NotifyDisplayMessagesRequest{}), nil
	case diagnostics.NotifyEventFeatureName:
		return reflect.TypeOf(diagnostics.NotifyEventRequest{}), nil
	case diagnostics.NotifyMonitoringReportFeatureName:
		return reflect.TypeOf(diagnostics.NotifyMonitoringReportRequest{}), nil
	case diagnostics.LogStatusNotificationFeatureName:
		return reflect.TypeOf(diagnostics.LogStatusNotificationRequest{}), nil
	case ocpp.DataTransferFeatureName:
		return reflect.TypeOf(ocpp.DataTransferRequest{}), nil
	default:
		return nil, utility.Errf("unsupported outbound action: %s", action)
	}
}

// getResponseType resolves actions the station initiates, for binding
// CSMS call results.
func getResponseType(action string) (reflect.Type, error) {
	switch action {
	case provisioning.BootNotificationFeatureName:
		return reflect.TypeOf(provisioning.BootNotificationResponse{}), nil
	case provisioning.NotifyReportFeatureName:
		return reflect.TypeOf(provisioning.NotifyReportResponse{}), nil
	case availability.HeartbeatFeatureName:
		return reflect.TypeOf(availability.HeartbeatResponse{}), nil
	case availability.StatusNotificationFeatureName:
		return reflect.TypeOf(availability.StatusNotificationResponse{}), nil
	case authorization.AuthorizeFeatureName:
		return reflect.TypeOf(authorization.AuthorizeResponse{}), nil
	case transactions.TransactionEventFeatureName:
		return reflect.TypeOf(transactions.TransactionEventResponse{}), nil
	case metervalues.MeterValuesFeatureName:
		return reflect.TypeOf(metervalues.MeterValuesResponse{}), nil
	case smartcharging.ReportChargingProfilesFeatureName:
		return reflect.TypeOf(smartcharging.ReportChargingProfilesResponse{}), nil
	case security.SecurityEventNotificationFeatureName:
		return reflect.TypeOf(security.SecurityEventNotificationResponse{}), nil
	case security.SignCertificateFeatureName:
		return reflect.TypeOf(security.SignCertificateResponse{}), nil
	case display.NotifyDisplayMessagesFeatureName:
		return reflect.TypeOf(display.NotifyDisplayMessagesResponse{}), nil
	case diagnostics.NotifyEventFeatureName:
		return reflect.TypeOf(diagnostics.NotifyEventResponse{}), nil
	case diagnostics.NotifyMonitoringReportFeatureName:
		return reflect.TypeOf(diagnostics.NotifyMonitoringReportResponse{}), nil
	case diagnostics.LogStatusNotificationFeatureName:
		return reflect.TypeOf(diagnostics.LogStatusNotificationResponse{}), nil
	case ocpp.DataTransferFeatureName:
		return reflect.TypeOf(ocpp.DataTransferResponse{}), nil
	default:
		return nil, utility.Errf("unsupported action in call result: %s", action)
	}
}
