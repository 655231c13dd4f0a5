package tariff

import (
	"strconv"
	"testing"

	"evcp/devicemodel"
	"evcp/ocpp/display"
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

type fakeSettings struct {
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{
		devicemodel.CtrlrDisplay + "/Enabled":             "true",
		devicemodel.CtrlrDisplay + "/SupportedFormats":    "UTF8,ASCII",
		devicemodel.CtrlrDisplay + "/SupportedPriorities": "NormalCycle,InFront",
		devicemodel.CtrlrDisplay + "/DisplayMessages":     "3",
	}}
}

func (f *fakeSettings) Value(componentName, variableName string) (string, bool) {
	value, ok := f.values[componentName+"/"+variableName]
	return value, ok
}

func (f *fakeSettings) IntValue(componentName, variableName string, fallback int) int {
	if value, ok := f.values[componentName+"/"+variableName]; ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func (f *fakeSettings) BoolValue(componentName, variableName string) bool {
	return f.values[componentName+"/"+variableName] == "true"
}

type fakeSessions struct {
	known map[string]bool
}

func (f *fakeSessions) KnownTransaction(transactionId string) bool {
	return f.known[transactionId]
}

func newTestDisplayStore() (*DisplayStore, *fakeSettings, *fakeSessions) {
	settings := newFakeSettings()
	sessions := &fakeSessions{known: make(map[string]bool)}
	return NewDisplayStore(nil, settings, sessions, nopLogger{}), settings, sessions
}

func message(id int) display.MessageInfo {
	return display.MessageInfo{
		Id:       id,
		Priority: display.MessagePriorityNormalCycle,
		State:    display.MessageStateIdle,
		Message: types.MessageContent{
			Format:   types.MessageFormatUTF8,
			Language: "en",
			Content:  "Welcome",
		},
	}
}

func TestSetMessageValidation(t *testing.T) {
	store, settings, sessions := newTestDisplayStore()

	assert.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(1)))

	html := message(2)
	html.Message.Format = types.MessageFormatHTML
	assert.Equal(t, display.DisplayMessageStatusNotSupportedMessageFormat, store.SetMessage(html))

	front := message(3)
	front.Priority = display.MessagePriorityAlwaysFront
	assert.Equal(t, display.DisplayMessageStatusNotSupportedPriority, store.SetMessage(front))

	bound := message(4)
	bound.TransactionId = "tx-1"
	assert.Equal(t, display.DisplayMessageStatusUnknownTransaction, store.SetMessage(bound))

	sessions.known["tx-1"] = true
	assert.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(bound))

	settings.values[devicemodel.CtrlrDisplay+"/Enabled"] = "false"
	assert.Equal(t, display.DisplayMessageStatusRejected, store.SetMessage(message(5)))
}

func TestSetMessageState(t *testing.T) {
	store, settings, _ := newTestDisplayStore()
	settings.values[devicemodel.CtrlrDisplay+"/SupportedStates"] = "Charging,Idle"

	assert.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(1)))

	faulted := message(2)
	faulted.State = display.MessageStateFaulted
	assert.Equal(t, display.DisplayMessageStatusNotSupportedState, store.SetMessage(faulted))

	// a message without a state passes regardless of the supported set
	plain := message(3)
	plain.State = ""
	assert.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(plain))
}

func TestSetMessageCapacity(t *testing.T) {
	store, _, _ := newTestDisplayStore()

	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(1)))
	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(2)))
	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(3)))
	assert.Equal(t, display.DisplayMessageStatusRejected, store.SetMessage(message(4)))

	// replacing an existing id does not count against the capacity
	replacement := message(2)
	replacement.Message.Content = "Updated"
	assert.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(replacement))
}

func TestMessagesFilter(t *testing.T) {
	store, _, sessions := newTestDisplayStore()
	sessions.known["tx-1"] = true

	first := message(1)
	second := message(2)
	second.Priority = display.MessagePriorityInFront
	second.State = display.MessageStateCharging
	second.TransactionId = "tx-1"
	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(first))
	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(second))

	assert.Len(t, store.Messages(nil, "", ""), 2)

	byId := store.Messages([]int{2}, "", "")
	require.Len(t, byId, 1)
	assert.Equal(t, 2, byId[0].Id)
	assert.Equal(t, "tx-1", byId[0].TransactionId)

	byPriority := store.Messages(nil, display.MessagePriorityInFront, "")
	require.Len(t, byPriority, 1)
	assert.Equal(t, 2, byPriority[0].Id)

	byState := store.Messages(nil, "", display.MessageStateIdle)
	require.Len(t, byState, 1)
	assert.Equal(t, 1, byState[0].Id)

	assert.Empty(t, store.Messages([]int{9}, "", ""))
}

func TestClearMessage(t *testing.T) {
	store, _, _ := newTestDisplayStore()

	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(1)))
	assert.Equal(t, display.ClearMessageStatusAccepted, store.ClearMessage(1))
	assert.Equal(t, display.ClearMessageStatusUnknown, store.ClearMessage(1))
}

func TestDropTransactionMessages(t *testing.T) {
	store, _, sessions := newTestDisplayStore()
	sessions.known["tx-1"] = true

	bound := message(1)
	bound.TransactionId = "tx-1"
	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(bound))
	require.Equal(t, display.DisplayMessageStatusAccepted, store.SetMessage(message(2)))

	store.DropTransactionMessages("tx-1")

	remaining := store.Messages(nil, "", "")
	require.Len(t, remaining, 1)
	assert.Equal(t, 2, remaining[0].Id)
}
