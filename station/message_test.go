package station

import (
	"testing"

	"evcp/ocpp/availability"
	"evcp/ocpp/provisioning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFrame(t *testing.T, data string) []interface{} {
	t.Helper()
	fields, err := parseJsonArray([]byte(data))
	require.NoError(t, err)
	return fields
}

func TestCallMarshal(t *testing.T) {
	call := &Call{
		UniqueId: "msg-1",
		Action:   availability.HeartbeatFeatureName,
		Payload:  &availability.HeartbeatRequest{},
	}
	data, err := call.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[2,"msg-1","Heartbeat",{}]`, string(data))
}

func TestCallErrorMarshal(t *testing.T) {
	callError := NewCallError("msg-2", NotImplemented, "no such action")
	data, err := callError.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[4,"msg-2","NotImplemented","no such action",{}]`, string(data))
}

func TestMessageType(t *testing.T) {
	fields := parseFrame(t, `[2,"id","Heartbeat",{}]`)
	messageType, err := MessageType(fields)
	require.NoError(t, err)
	assert.Equal(t, CallTypeRequest, messageType)

	fields = parseFrame(t, `[3,"id",{}]`)
	messageType, err = MessageType(fields)
	require.NoError(t, err)
	assert.Equal(t, CallTypeResult, messageType)

	_, err = MessageType(parseFrame(t, `[9,"id","Heartbeat",{}]`))
	assert.Error(t, err)

	_, err = MessageType(parseFrame(t, `["2","id","Heartbeat",{}]`))
	assert.Error(t, err)
}

func TestParseCall(t *testing.T) {
	fields := parseFrame(t, `[2,"req-7","GetBaseReport",{"requestId":4,"reportBase":"FullInventory"}]`)
	call, callError := ParseCall(fields)
	require.Nil(t, callError)
	assert.Equal(t, "req-7", call.UniqueId)
	assert.Equal(t, provisioning.GetBaseReportFeatureName, call.Action)
	request, ok := call.Payload.(*provisioning.GetBaseReportRequest)
	require.True(t, ok)
	assert.Equal(t, 4, request.RequestId)
	assert.Equal(t, provisioning.ReportBaseFullInventory, request.ReportBase)
}

func TestParseCallUnknownAction(t *testing.T) {
	fields := parseFrame(t, `[2,"req-8","NoSuchAction",{}]`)
	call, callError := ParseCall(fields)
	require.Nil(t, call)
	require.NotNil(t, callError)
	assert.Equal(t, "req-8", callError.UniqueId)
	assert.Equal(t, NotImplemented, callError.Code)
}

func TestParseCallTypeViolation(t *testing.T) {
	fields := parseFrame(t, `[2,"req-9","GetBaseReport",{"requestId":"four","reportBase":"FullInventory"}]`)
	call, callError := ParseCall(fields)
	require.Nil(t, call)
	require.NotNil(t, callError)
	assert.Equal(t, TypeConstraintViolation, callError.Code)
}

func TestParseCallValidationViolation(t *testing.T) {
	fields := parseFrame(t, `[2,"req-10","GetBaseReport",{"requestId":4,"reportBase":"NotAReportBase"}]`)
	call, callError := ParseCall(fields)
	require.Nil(t, call)
	require.NotNil(t, callError)
	assert.Equal(t, PropertyConstraintViolation, callError.Code)
}

func TestParseCallShortFrame(t *testing.T) {
	fields := parseFrame(t, `[2,"req-11","GetBaseReport"]`)
	call, callError := ParseCall(fields)
	require.Nil(t, call)
	require.NotNil(t, callError)
	assert.Equal(t, "req-11", callError.UniqueId)
	assert.Equal(t, FormationViolation, callError.Code)
}

func TestParseError(t *testing.T) {
	fields := parseFrame(t, `[4,"req-12","InternalError","boom",{"detail":"x"}]`)
	callError, err := ParseError(fields)
	require.NoError(t, err)
	assert.Equal(t, "req-12", callError.UniqueId)
	assert.Equal(t, InternalError, callError.Code)
	assert.Equal(t, "boom", callError.Description)
	assert.Equal(t, "x", callError.Details["detail"])
}

func TestBindResult(t *testing.T) {
	fields := parseFrame(t, `[3,"req-13",{"currentTime":"2026-08-30T10:00:00Z"}]`)
	result, err := ParseResult(fields)
	require.NoError(t, err)
	response, err := BindResult(result, availability.HeartbeatFeatureName)
	require.NoError(t, err)
	heartbeat, ok := response.(*availability.HeartbeatResponse)
	require.True(t, ok)
	assert.Equal(t, 2026, heartbeat.CurrentTime.Year())
}
