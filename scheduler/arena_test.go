package scheduler

import (
	"testing"
	"time"

	"evcp/devicemodel"
	"evcp/ocpp/smartcharging"
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

type fakeSessions struct {
	transactions map[int]string
	starts       map[int]time.Time
}

func (f *fakeSessions) HasActiveTransaction(evseId int) bool {
	_, ok := f.transactions[evseId]
	return ok
}

func (f *fakeSessions) TransactionId(evseId int) (string, bool) {
	id, ok := f.transactions[evseId]
	return id, ok
}

func (f *fakeSessions) TransactionStart(evseId int) (time.Time, bool) {
	start, ok := f.starts[evseId]
	return start, ok
}

type fakeSupply struct {
	values map[string]int
}

func (f *fakeSupply) IntValue(componentName, variableName string, fallback int) int {
	if value, ok := f.values[componentName+"/"+variableName]; ok {
		return value
	}
	return fallback
}

func newSupply(voltageV, phases int) *fakeSupply {
	return &fakeSupply{values: map[string]int{
		devicemodel.ComponentStation + "/SupplyVoltage": voltageV,
		devicemodel.ComponentStation + "/SupplyPhases":  phases,
	}}
}

func newTestArena() (*Arena, *fakeSessions) {
	sessions := &fakeSessions{transactions: make(map[int]string), starts: make(map[int]time.Time)}
	return NewArena(nil, newSupply(230, 3), sessions, nopLogger{}), sessions
}

func absoluteProfile(id, stackLevel int, purpose types.ChargingProfilePurposeType,
	unit types.ChargingRateUnitType, start time.Time, periods []types.ChargingSchedulePeriod) *types.ChargingProfile {
	return &types.ChargingProfile{
		Id:                     id,
		StackLevel:             stackLevel,
		ChargingProfilePurpose: purpose,
		ChargingProfileKind:    types.ChargingProfileKindAbsolute,
		ChargingSchedule: []types.ChargingSchedule{{
			StartSchedule:          types.NewDateTime(start),
			ChargingRateUnit:       unit,
			ChargingSchedulePeriod: periods,
		}},
	}
}

func TestInstallValidation(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC()

	// ChargePointMaxProfile only on evse 0
	status, reason := arena.Install(1, absoluteProfile(1, 0, types.ChargingProfilePurposeChargePointMaxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 20}}))
	assert.Equal(t, smartcharging.ChargingProfileStatusRejected, status)
	assert.Equal(t, "InvalidEvse", reason)

	// periods must start at zero and strictly increase
	status, reason = arena.Install(0, absoluteProfile(2, 0, types.ChargingProfilePurposeChargePointMaxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 60, Limit: 20}}))
	assert.Equal(t, smartcharging.ChargingProfileStatusRejected, status)
	assert.Equal(t, "InvalidSchedule", reason)

	status, _ = arena.Install(0, absoluteProfile(3, 0, types.ChargingProfilePurposeChargePointMaxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 20}}))
	assert.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)
}

func TestInstallTxProfileNeedsTransaction(t *testing.T) {
	arena, sessions := newTestArena()
	now := time.Now().UTC()

	profile := absoluteProfile(5, 1, types.ChargingProfilePurposeTxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}})
	profile.TransactionId = "tx-1"

	status, reason := arena.Install(1, profile)
	assert.Equal(t, smartcharging.ChargingProfileStatusRejected, status)
	assert.Equal(t, "NoActiveTransaction", reason)

	sessions.transactions[1] = "tx-other"
	status, reason = arena.Install(1, profile)
	assert.Equal(t, smartcharging.ChargingProfileStatusRejected, status)
	assert.Equal(t, "TxNotFound", reason)

	sessions.transactions[1] = "tx-1"
	status, _ = arena.Install(1, profile)
	assert.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)
}

func TestInstallReplacesSameSlot(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC()

	first := absoluteProfile(10, 2, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 10}})
	second := absoluteProfile(11, 2, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}})

	status, _ := arena.Install(1, first)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)
	status, _ = arena.Install(1, second)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	matching := arena.Matching(nil, nil)
	require.Len(t, matching[1], 1)
	assert.Equal(t, 11, matching[1][0].Id)
}

func TestClearByIdAndCriteria(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC()

	arena.Install(0, absoluteProfile(1, 0, types.ChargingProfilePurposeChargePointMaxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 20}}))
	arena.Install(1, absoluteProfile(2, 1, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}}))

	profileId := 1
	status := arena.Clear(&smartcharging.ClearChargingProfileRequest{ChargingProfileId: &profileId})
	assert.Equal(t, smartcharging.ClearChargingProfileStatusAccepted, status)

	status = arena.Clear(&smartcharging.ClearChargingProfileRequest{ChargingProfileId: &profileId})
	assert.Equal(t, smartcharging.ClearChargingProfileStatusUnknown, status)

	evseId := 1
	status = arena.Clear(&smartcharging.ClearChargingProfileRequest{
		ChargingProfileCriteria: &smartcharging.ClearChargingProfileType{EvseId: &evseId},
	})
	assert.Equal(t, smartcharging.ClearChargingProfileStatusAccepted, status)
	assert.Empty(t, arena.Matching(nil, nil))
}

// a station ceiling on evse 0 caps the default schedule of an EVSE at
// every instant; the lower limit wins where both apply
func TestCompositeOverlay(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC().Truncate(time.Second)

	stationMax := absoluteProfile(1, 0, types.ChargingProfilePurposeChargePointMaxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 20}})
	status, _ := arena.Install(0, stationMax)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	txDefault := absoluteProfile(2, 1, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{
			{StartPeriod: 0, Limit: 6},
			{StartPeriod: 60, Limit: 10},
			{StartPeriod: 120, Limit: 8},
		})
	status, _ = arena.Install(1, txDefault)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	schedule := arena.Composite(1, 180, types.ChargingRateUnitAmperes, now)
	require.NotNil(t, schedule)
	assert.Equal(t, 1, schedule.EvseId)
	assert.Equal(t, types.ChargingRateUnitAmperes, schedule.ChargingRateUnit)

	require.Len(t, schedule.ChargingSchedulePeriod, 3)
	assert.Equal(t, types.ChargingSchedulePeriod{StartPeriod: 0, Limit: 6}, schedule.ChargingSchedulePeriod[0])
	assert.Equal(t, types.ChargingSchedulePeriod{StartPeriod: 60, Limit: 10}, schedule.ChargingSchedulePeriod[1])
	assert.Equal(t, types.ChargingSchedulePeriod{StartPeriod: 120, Limit: 8}, schedule.ChargingSchedulePeriod[2])
}

func TestCompositeStackLevels(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC().Truncate(time.Second)

	low := absoluteProfile(1, 0, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 32}})
	high := absoluteProfile(2, 5, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}})

	arena.Install(1, low)
	// different stack level lands in its own slot
	status, _ := arena.Install(1, high)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	schedule := arena.Composite(1, 60, types.ChargingRateUnitAmperes, now)
	require.NotEmpty(t, schedule.ChargingSchedulePeriod)
	assert.Equal(t, 16.0, schedule.ChargingSchedulePeriod[0].Limit)
}

func TestCompositeFallbackCeiling(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC()

	schedule := arena.Composite(1, 60, types.ChargingRateUnitAmperes, now)
	require.Len(t, schedule.ChargingSchedulePeriod, 1)
	assert.Equal(t, 32.0, schedule.ChargingSchedulePeriod[0].Limit)
}

func TestCompositeUnitConversion(t *testing.T) {
	arena, _ := newTestArena()
	now := time.Now().UTC().Truncate(time.Second)

	amps := absoluteProfile(1, 0, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}})
	status, _ := arena.Install(1, amps)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	schedule := arena.Composite(1, 60, types.ChargingRateUnitWatts, now)
	require.NotEmpty(t, schedule.ChargingSchedulePeriod)
	// 16 A on the configured 230 V three-phase supply
	assert.InDelta(t, 16*230*3, schedule.ChargingSchedulePeriod[0].Limit, 0.1)
}

func TestCompositeWithoutSupplyVoltage(t *testing.T) {
	sessions := &fakeSessions{transactions: make(map[int]string), starts: make(map[int]time.Time)}
	arena := NewArena(nil, nil, sessions, nopLogger{})
	now := time.Now().UTC().Truncate(time.Second)

	amps := absoluteProfile(1, 0, types.ChargingProfilePurposeTxDefaultProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}})
	status, _ := arena.Install(1, amps)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	// no supply voltage in the device model, the stored unit is kept
	schedule := arena.Composite(1, 60, types.ChargingRateUnitWatts, now)
	assert.Equal(t, types.ChargingRateUnitAmperes, schedule.ChargingRateUnit)
	require.NotEmpty(t, schedule.ChargingSchedulePeriod)
	assert.Equal(t, 16.0, schedule.ChargingSchedulePeriod[0].Limit)
}

func TestCompositeRelativeAnchor(t *testing.T) {
	arena, sessions := newTestArena()
	now := time.Now().UTC().Truncate(time.Second)
	sessions.starts[1] = now.Add(-90 * time.Second)

	profile := &types.ChargingProfile{
		Id:                     4,
		StackLevel:             1,
		ChargingProfilePurpose: types.ChargingProfilePurposeTxDefaultProfile,
		ChargingProfileKind:    types.ChargingProfileKindRelative,
		ChargingSchedule: []types.ChargingSchedule{{
			ChargingRateUnit: types.ChargingRateUnitAmperes,
			ChargingSchedulePeriod: []types.ChargingSchedulePeriod{
				{StartPeriod: 0, Limit: 10},
				{StartPeriod: 60, Limit: 16},
			},
		}},
	}
	status, _ := arena.Install(1, profile)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	// 90 seconds into the session the second period applies
	schedule := arena.Composite(1, 60, types.ChargingRateUnitAmperes, now)
	require.NotEmpty(t, schedule.ChargingSchedulePeriod)
	assert.Equal(t, 16.0, schedule.ChargingSchedulePeriod[0].Limit)
}

func TestDropTransactionProfiles(t *testing.T) {
	arena, sessions := newTestArena()
	now := time.Now().UTC()
	sessions.transactions[1] = "tx-1"

	profile := absoluteProfile(7, 1, types.ChargingProfilePurposeTxProfile,
		types.ChargingRateUnitAmperes, now, []types.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}})
	profile.TransactionId = "tx-1"
	status, _ := arena.Install(1, profile)
	require.Equal(t, smartcharging.ChargingProfileStatusAccepted, status)

	arena.DropTransactionProfiles("tx-1")
	assert.Empty(t, arena.Matching(nil, nil))
}
