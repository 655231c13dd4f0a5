package devicemodel

import (
	"testing"
	"time"

	"evcp/entity"
	"evcp/ocpp/diagnostics"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(text string)                     {}
func (nopLogger) Warn(text string)                      {}
func (nopLogger) Error(text string, err error)          {}
func (nopLogger) FeatureEvent(feature, id, text string) {}
func (nopLogger) RawDataEvent(direction, data string)   {}

func intCharacteristics(min, max float64) entity.VariableCharacteristics {
	return entity.VariableCharacteristics{
		DataType:           string(types.DataTypeInteger),
		MinLimit:           &min,
		MaxLimit:           &max,
		SupportsMonitoring: true,
	}
}

func newTestStore() *Store {
	store := NewStore(nil, nopLogger{})
	store.Register(
		types.Component{Name: CtrlrOCPPComm},
		types.Variable{Name: "HeartbeatInterval"},
		intCharacteristics(1, 86400),
		types.MutabilityReadWrite, "300", true)
	store.Register(
		types.Component{Name: CtrlrSecurity},
		types.Variable{Name: "Identity"},
		entity.VariableCharacteristics{DataType: string(types.DataTypeString)},
		types.MutabilityReadOnly, "CS001", false)
	store.Register(
		types.Component{Name: CtrlrSecurity},
		types.Variable{Name: "BasicAuthPassword"},
		entity.VariableCharacteristics{DataType: string(types.DataTypeString)},
		types.MutabilityWriteOnly, "secret", false)
	return store
}

func TestGetVariables(t *testing.T) {
	store := newTestStore()

	results := store.GetVariables([]provisioning.GetVariableData{
		{Component: types.Component{Name: CtrlrOCPPComm}, Variable: types.Variable{Name: "HeartbeatInterval"}},
		{Component: types.Component{Name: CtrlrOCPPComm}, Variable: types.Variable{Name: "NoSuchVariable"}},
		{Component: types.Component{Name: "NoSuchComponent"}, Variable: types.Variable{Name: "X"}},
		{Component: types.Component{Name: CtrlrSecurity}, Variable: types.Variable{Name: "BasicAuthPassword"}},
	})

	require.Len(t, results, 4)
	assert.Equal(t, provisioning.GetVariableStatusAccepted, results[0].AttributeStatus)
	assert.Equal(t, "300", results[0].AttributeValue)
	assert.Equal(t, provisioning.GetVariableStatusUnknownVariable, results[1].AttributeStatus)
	assert.Equal(t, provisioning.GetVariableStatusUnknownComponent, results[2].AttributeStatus)
	assert.Equal(t, provisioning.GetVariableStatusRejected, results[3].AttributeStatus)
	assert.Empty(t, results[3].AttributeValue)
}

func TestSetVariablesMutability(t *testing.T) {
	store := newTestStore()

	results := store.SetVariables([]provisioning.SetVariableData{
		{Component: types.Component{Name: CtrlrSecurity}, Variable: types.Variable{Name: "Identity"}, AttributeValue: "CS002"},
	}, SourceCSMS)
	require.Len(t, results, 1)
	assert.Equal(t, provisioning.SetVariableStatusRejected, results[0].AttributeStatus)

	// internal writes bypass the mutability check
	store.SetInternal(CtrlrSecurity, "Identity", "CS002")
	value, ok := store.Value(CtrlrSecurity, "Identity")
	require.True(t, ok)
	assert.Equal(t, "CS002", value)
}

func TestSetVariablesValidation(t *testing.T) {
	store := newTestStore()

	results := store.SetVariables([]provisioning.SetVariableData{
		{Component: types.Component{Name: CtrlrOCPPComm}, Variable: types.Variable{Name: "HeartbeatInterval"}, AttributeValue: "never"},
		{Component: types.Component{Name: CtrlrOCPPComm}, Variable: types.Variable{Name: "HeartbeatInterval"}, AttributeValue: "100000"},
		{Component: types.Component{Name: CtrlrOCPPComm}, Variable: types.Variable{Name: "HeartbeatInterval"}, AttributeValue: "60"},
	}, SourceCSMS)

	require.Len(t, results, 3)
	assert.Equal(t, provisioning.SetVariableStatusRejected, results[0].AttributeStatus)
	assert.Equal(t, provisioning.SetVariableStatusRejected, results[1].AttributeStatus)
	assert.Equal(t, provisioning.SetVariableStatusAccepted, results[2].AttributeStatus)
	assert.Equal(t, 60, store.IntValue(CtrlrOCPPComm, "HeartbeatInterval", 0))
}

func TestInstanceIntValue(t *testing.T) {
	store := newTestStore()
	store.Register(
		types.Component{Name: CtrlrDeviceData},
		types.Variable{Name: "ItemsPerMessage", Instance: "GetReport"},
		intCharacteristics(1, 100),
		types.MutabilityReadOnly, "20", false)

	assert.Equal(t, 20, store.InstanceIntValue(CtrlrDeviceData, "ItemsPerMessage", "GetReport", 4))
	// the instance-less slot is a different variable
	assert.Equal(t, 4, store.IntValue(CtrlrDeviceData, "ItemsPerMessage", 4))
	assert.Equal(t, 4, store.InstanceIntValue(CtrlrDeviceData, "ItemsPerMessage", "GetVariables", 4))
}

func TestWatcherNotified(t *testing.T) {
	store := newTestStore()

	var gotVariable, gotValue string
	store.Watch(func(component types.Component, variable types.Variable, value string) {
		gotVariable = variable.Name
		gotValue = value
	})

	store.SetInternal(CtrlrOCPPComm, "HeartbeatInterval", "120")
	assert.Equal(t, "HeartbeatInterval", gotVariable)
	assert.Equal(t, "120", gotValue)
}

func TestBaseReportVariants(t *testing.T) {
	store := newTestStore()

	full := store.BaseReport(provisioning.ReportBaseFullInventory)
	assert.Len(t, full, 3)
	require.NotNil(t, full[0].VariableCharacteristics)

	writable := store.BaseReport(provisioning.ReportBaseConfigurationInventory)
	names := make([]string, 0, len(writable))
	for _, entry := range writable {
		names = append(names, entry.Variable.Name)
	}
	assert.NotContains(t, names, "Identity")
	assert.Contains(t, names, "HeartbeatInterval")

	summary := store.BaseReport(provisioning.ReportBaseSummaryInventory)
	require.Len(t, summary, 1)
	assert.Equal(t, "HeartbeatInterval", summary[0].Variable.Name)
}

func TestUpperThresholdMonitor(t *testing.T) {
	store := newTestStore()

	results := store.SetMonitoring([]diagnostics.SetMonitoringData{{
		Value:     200,
		Type:      diagnostics.MonitorUpperThreshold,
		Severity:  entity.SeverityWarning,
		Component: types.Component{Name: CtrlrOCPPComm},
		Variable:  types.Variable{Name: "HeartbeatInterval"},
	}})
	require.Len(t, results, 1)
	require.Equal(t, diagnostics.SetMonitoringStatusAccepted, results[0].Status)
	monitorId := *results[0].Id

	store.SetInternal(CtrlrOCPPComm, "HeartbeatInterval", "600")

	select {
	case event := <-store.Events():
		assert.Equal(t, diagnostics.EventTriggerAlerting, event.Trigger)
		assert.Equal(t, "600", event.ActualValue)
		require.NotNil(t, event.VariableMonitoringId)
		assert.Equal(t, monitorId, *event.VariableMonitoringId)
	case <-time.After(time.Second):
		t.Fatal("no monitor event emitted")
	}

	// already above threshold, no second crossing
	store.SetInternal(CtrlrOCPPComm, "HeartbeatInterval", "700")
	select {
	case <-store.Events():
		t.Fatal("unexpected monitor event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClearMonitoring(t *testing.T) {
	store := newTestStore()

	results := store.SetMonitoring([]diagnostics.SetMonitoringData{{
		Value:     200,
		Type:      diagnostics.MonitorUpperThreshold,
		Severity:  entity.SeverityWarning,
		Component: types.Component{Name: CtrlrOCPPComm},
		Variable:  types.Variable{Name: "HeartbeatInterval"},
	}})
	require.Equal(t, diagnostics.SetMonitoringStatusAccepted, results[0].Status)
	monitorId := *results[0].Id

	cleared := store.ClearMonitoring([]int{monitorId, 999})
	require.Len(t, cleared, 2)
	assert.Equal(t, diagnostics.ClearMonitoringStatusAccepted, cleared[0].Status)
	assert.Equal(t, diagnostics.ClearMonitoringStatusNotFound, cleared[1].Status)
}
