package scheduler

import (
	"sort"
	"time"

	"evcp/devicemodel"
	"evcp/entity"
	"evcp/ocpp/types"
)

const (
	defaultPhases = 3
	dailyPeriod   = 24 * time.Hour
	weeklyPeriod  = 7 * 24 * time.Hour
)

// station ceiling applied where no profile limits the rate
const (
	fallbackLimitW = 22000.0
	fallbackLimitA = 32.0
)

type resolvedLimit struct {
	limit  float64
	unit   types.ChargingRateUnitType
	phases int
}

// Composite computes the effective schedule on an EVSE for the coming
// window. At every instant the lowest limit across the active purposes
// wins; instants no profile covers fall back to the station ceiling.
func (a *Arena) Composite(evseId int, durationSec int, unit types.ChargingRateUnitType, now time.Time) *types.CompositeSchedule {
	if unit == "" {
		unit = types.ChargingRateUnitWatts
	}
	end := now.Add(time.Duration(durationSec) * time.Second)

	a.mu.Lock()
	candidates := make([]*entity.ProfileRecord, 0, len(a.profiles))
	for _, record := range a.profiles {
		if record.EvseId == evseId || record.EvseId == 0 {
			candidates = append(candidates, record)
		}
	}
	a.mu.Unlock()

	// relative profiles anchor at the start of the running session
	txStart := now
	if a.sessions != nil {
		if started, ok := a.sessions.TransactionStart(evseId); ok {
			txStart = started
		}
	}

	// without a resolvable supply voltage the stored unit wins
	sup := a.supply()
	if sup.voltageV <= 0 {
		if stored, ok := storedUnit(candidates); ok && stored != unit {
			unit = stored
		}
	}

	points := a.changePoints(candidates, now, end)

	periods := make([]types.ChargingSchedulePeriod, 0, len(points))
	var lastLimit float64
	for i, point := range points {
		limit := a.limitAt(candidates, point, txStart, unit, sup)
		if i > 0 && limit == lastLimit {
			continue
		}
		periods = append(periods, types.ChargingSchedulePeriod{
			StartPeriod: int(point.Sub(now).Seconds()),
			Limit:       limit,
		})
		lastLimit = limit
	}

	return &types.CompositeSchedule{
		EvseId:                 evseId,
		Duration:               durationSec,
		ScheduleStart:          types.NewDateTime(now),
		ChargingRateUnit:       unit,
		ChargingSchedulePeriod: periods,
	}
}

// changePoints collects the instants inside the window where any profile
// may change its limit.
func (a *Arena) changePoints(records []*entity.ProfileRecord, from, to time.Time) []time.Time {
	seen := map[int64]bool{from.Unix(): true}
	points := []time.Time{from}
	add := func(t time.Time) {
		if t.Before(from) || !t.Before(to) {
			return
		}
		if seen[t.Unix()] {
			return
		}
		seen[t.Unix()] = true
		points = append(points, t)
	}

	for _, record := range records {
		profile := &record.Profile
		if profile.ValidFrom != nil {
			add(profile.ValidFrom.Time)
		}
		if profile.ValidTo != nil {
			add(profile.ValidTo.Time)
		}
		for s := range profile.ChargingSchedule {
			schedule := &profile.ChargingSchedule[s]
			for _, start := range scheduleStarts(profile, schedule, from, to) {
				for _, period := range schedule.ChargingSchedulePeriod {
					add(start.Add(time.Duration(period.StartPeriod) * time.Second))
				}
				if schedule.Duration != nil {
					add(start.Add(time.Duration(*schedule.Duration) * time.Second))
				}
			}
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Before(points[j]) })
	return points
}

// scheduleStarts resolves the absolute start instants of a schedule that
// can affect the window. A recurring schedule contributes every cycle
// overlapping it.
func scheduleStarts(profile *types.ChargingProfile, schedule *types.ChargingSchedule, from, to time.Time) []time.Time {
	switch profile.ChargingProfileKind {
	case types.ChargingProfileKindRelative:
		return []time.Time{from}
	case types.ChargingProfileKindAbsolute:
		if schedule.StartSchedule == nil {
			return nil
		}
		return []time.Time{schedule.StartSchedule.Time}
	case types.ChargingProfileKindRecurring:
		if schedule.StartSchedule == nil {
			return nil
		}
		period := recurrencePeriod(profile.RecurrencyKind)
		base := schedule.StartSchedule.Time
		var starts []time.Time
		cycles := int(from.Sub(base) / period)
		for k := cycles - 1; ; k++ {
			start := base.Add(time.Duration(k) * period)
			if start.After(to) {
				break
			}
			starts = append(starts, start)
		}
		return starts
	}
	return nil
}

func recurrencePeriod(kind types.RecurrencyKindType) time.Duration {
	if kind == types.RecurrencyKindWeekly {
		return weeklyPeriod
	}
	return dailyPeriod
}

// limitAt computes the combined limit at one instant in the requested
// unit: per purpose the highest stack level wins, across purposes the
// minimum applies.
func (a *Arena) limitAt(records []*entity.ProfileRecord, t, txStart time.Time, unit types.ChargingRateUnitType, sup supplyInfo) float64 {
	purposeBest := make(map[types.ChargingProfilePurposeType]*struct {
		record *entity.ProfileRecord
		limit  resolvedLimit
	})

	for _, record := range records {
		limit, ok := profileLimitAt(&record.Profile, t, txStart)
		if !ok {
			continue
		}
		purpose := record.Profile.ChargingProfilePurpose
		if purpose == types.ChargingProfilePurposeTxProfile {
			// TxProfile and TxDefaultProfile share one slot
			purpose = types.ChargingProfilePurposeTxDefaultProfile
		}
		best := purposeBest[purpose]
		if best == nil || betterProfile(record, best.record) {
			purposeBest[purpose] = &struct {
				record *entity.ProfileRecord
				limit  resolvedLimit
			}{record: record, limit: limit}
		}
	}

	combined := fallbackLimit(unit)
	for _, best := range purposeBest {
		converted, convertedUnit := sup.convert(best.limit, unit)
		if convertedUnit != unit {
			continue
		}
		if converted < combined {
			combined = converted
		}
	}
	return combined
}

// betterProfile prefers the higher stack level; TxProfile beats
// TxDefaultProfile on equal level, then the later install wins.
func betterProfile(candidate, current *entity.ProfileRecord) bool {
	if candidate.Profile.StackLevel != current.Profile.StackLevel {
		return candidate.Profile.StackLevel > current.Profile.StackLevel
	}
	candidateTx := candidate.Profile.ChargingProfilePurpose == types.ChargingProfilePurposeTxProfile
	currentTx := current.Profile.ChargingProfilePurpose == types.ChargingProfilePurposeTxProfile
	if candidateTx != currentTx {
		return candidateTx
	}
	return candidate.InstalledAt.After(current.InstalledAt)
}

func profileLimitAt(profile *types.ChargingProfile, t, txStart time.Time) (resolvedLimit, bool) {
	if profile.ValidFrom != nil && t.Before(profile.ValidFrom.Time) {
		return resolvedLimit{}, false
	}
	if profile.ValidTo != nil && !t.Before(profile.ValidTo.Time) {
		return resolvedLimit{}, false
	}
	if len(profile.ChargingSchedule) == 0 {
		return resolvedLimit{}, false
	}
	schedule := &profile.ChargingSchedule[0]

	var start time.Time
	switch profile.ChargingProfileKind {
	case types.ChargingProfileKindRelative:
		start = txStart
	case types.ChargingProfileKindAbsolute:
		if schedule.StartSchedule == nil {
			return resolvedLimit{}, false
		}
		start = schedule.StartSchedule.Time
	case types.ChargingProfileKindRecurring:
		if schedule.StartSchedule == nil {
			return resolvedLimit{}, false
		}
		period := recurrencePeriod(profile.RecurrencyKind)
		base := schedule.StartSchedule.Time
		if t.Before(base) {
			return resolvedLimit{}, false
		}
		cycles := t.Sub(base) / period
		start = base.Add(cycles * period)
	default:
		return resolvedLimit{}, false
	}

	offset := t.Sub(start)
	if offset < 0 {
		return resolvedLimit{}, false
	}
	if schedule.Duration != nil && offset >= time.Duration(*schedule.Duration)*time.Second {
		return resolvedLimit{}, false
	}

	var active *types.ChargingSchedulePeriod
	for i := range schedule.ChargingSchedulePeriod {
		period := &schedule.ChargingSchedulePeriod[i]
		if time.Duration(period.StartPeriod)*time.Second <= offset {
			active = period
		}
	}
	if active == nil {
		return resolvedLimit{}, false
	}
	phases := 0
	if active.NumberPhases != nil && *active.NumberPhases > 0 {
		phases = *active.NumberPhases
	}
	return resolvedLimit{limit: active.Limit, unit: schedule.ChargingRateUnit, phases: phases}, true
}

type supplyInfo struct {
	voltageV float64
	phases   int
}

// supply resolves the nominal supply voltage and phase count from the
// device model. Voltage zero means A/W conversion is undefined.
func (a *Arena) supply() supplyInfo {
	if a.settings == nil {
		return supplyInfo{phases: defaultPhases}
	}
	return supplyInfo{
		voltageV: float64(a.settings.IntValue(devicemodel.ComponentStation, "SupplyVoltage", 0)),
		phases:   a.settings.IntValue(devicemodel.ComponentStation, "SupplyPhases", defaultPhases),
	}
}

// convert expresses a resolved limit in the requested unit. Without a
// supply voltage the stored unit is kept.
func (s supplyInfo) convert(limit resolvedLimit, unit types.ChargingRateUnitType) (float64, types.ChargingRateUnitType) {
	if limit.unit == unit {
		return limit.limit, unit
	}
	if s.voltageV <= 0 {
		return limit.limit, limit.unit
	}
	phases := limit.phases
	if phases <= 0 {
		phases = s.phases
	}
	if phases <= 0 {
		phases = defaultPhases
	}
	if unit == types.ChargingRateUnitWatts {
		return limit.limit * s.voltageV * float64(phases), unit
	}
	return limit.limit / (s.voltageV * float64(phases)), unit
}

// storedUnit reports the single rate unit shared by every stored
// schedule, if there is one.
func storedUnit(records []*entity.ProfileRecord) (types.ChargingRateUnitType, bool) {
	var unit types.ChargingRateUnitType
	for _, record := range records {
		for s := range record.Profile.ChargingSchedule {
			scheduleUnit := record.Profile.ChargingSchedule[s].ChargingRateUnit
			if unit == "" {
				unit = scheduleUnit
			} else if unit != scheduleUnit {
				return "", false
			}
		}
	}
	return unit, unit != ""
}

func fallbackLimit(unit types.ChargingRateUnitType) float64 {
	if unit == types.ChargingRateUnitAmperes {
		return fallbackLimitA
	}
	return fallbackLimitW
}
