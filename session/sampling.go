package session

import (
	"strconv"
	"strings"
	"time"

	"evcp/devicemodel"
	"evcp/metrics/counters"
	"evcp/ocpp/metervalues"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"
)

// sampleLocked reads the meter and builds one MeterValue holding the
// measurands configured under the given controller variable.
func (m *Manager) sampleLocked(evse *evseState, component, setting string, context types.ReadingContext) []types.MeterValue {
	configured, _ := m.settings.Value(component, setting)
	measurands := splitMeasurands(configured)
	if len(measurands) == 0 {
		measurands = []types.Measurand{types.MeasurandEnergyActiveImportRegister}
	}

	var sampled []types.SampledValue
	for _, measurand := range measurands {
		switch measurand {
		case types.MeasurandEnergyActiveImportRegister:
			sampled = append(sampled, types.SampledValue{
				Value:         m.meter.EnergyWh(evse.id),
				Context:       context,
				Measurand:     measurand,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "Wh"},
			})
		case types.MeasurandPowerActiveImport:
			power := m.meter.PowerW(evse.id)
			sampled = append(sampled, types.SampledValue{
				Value:         power,
				Context:       context,
				Measurand:     measurand,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "W"},
			})
			counters.ObservePowerRate(strconv.Itoa(evse.id), power)
		}
	}
	if len(sampled) == 0 {
		return nil
	}
	return []types.MeterValue{{
		Timestamp:    types.NewDateTime(time.Now().UTC()),
		SampledValue: sampled,
	}}
}

func splitMeasurands(configured string) []types.Measurand {
	var measurands []types.Measurand
	for _, part := range strings.Split(configured, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			measurands = append(measurands, types.Measurand(part))
		}
	}
	return measurands
}

// Run drives periodic and clock-aligned metering until stop closes.
func (m *Manager) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	nextAligned := m.nextAlignedBoundary(time.Now())
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			m.samplePeriodic(now)
			m.notifySamples()
			if !nextAligned.IsZero() && !now.Before(nextAligned) {
				m.sampleAligned()
				nextAligned = m.nextAlignedBoundary(now.Add(time.Second))
			}
		}
	}
}

func (m *Manager) nextAlignedBoundary(now time.Time) time.Time {
	interval := m.settings.IntValue(devicemodel.CtrlrAlignedData, "Interval", 0)
	if interval <= 0 || !m.settings.BoolValue(devicemodel.CtrlrAlignedData, "Enabled") {
		return time.Time{}
	}
	step := time.Duration(interval) * time.Second
	return now.Truncate(step).Add(step)
}

// samplePeriodic queues Updated events with sampled values on every
// EVSE whose TxUpdatedInterval has elapsed.
func (m *Manager) samplePeriodic(now time.Time) {
	interval := m.settings.IntValue(devicemodel.CtrlrSampledData, "TxUpdatedInterval", 0)
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evse := range m.evses {
		if evse.tx == nil || evse.chargingState != transactions.ChargingStateCharging {
			continue
		}
		if now.Sub(evse.tx.lastSample) < time.Duration(interval)*time.Second {
			continue
		}
		evse.tx.lastSample = now
		request := m.eventRequestLocked(evse, transactions.TransactionEventUpdated, transactions.TriggerReasonMeterValuePeriodic)
		request.MeterValue = m.sampleLocked(evse, devicemodel.CtrlrSampledData, "TxUpdatedMeasurands", types.ReadingContextSamplePeriodic)
		m.sendEventLocked(evse, request)
	}
}

// notifySamples feeds meter readings of running sessions to the
// registered sample listeners.
func (m *Manager) notifySamples() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evse := range m.evses {
		if evse.tx == nil {
			continue
		}
		energy := m.meter.EnergyWh(evse.id)
		power := m.meter.PowerW(evse.id)
		for _, listener := range m.samplers {
			listener(evse.id, evse.tx.id, energy, power)
		}
	}
}

// sampleAligned reports clock-aligned readings. Running transactions get
// an Updated event, idle EVSEs a plain MeterValues request.
func (m *Manager) sampleAligned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evse := range m.evses {
		if evse.tx != nil {
			request := m.eventRequestLocked(evse, transactions.TransactionEventUpdated, transactions.TriggerReasonMeterValueClock)
			request.MeterValue = m.sampleLocked(evse, devicemodel.CtrlrAlignedData, "Measurands", types.ReadingContextSampleClock)
			m.sendEventLocked(evse, request)
			continue
		}
		values := m.sampleLocked(evse, devicemodel.CtrlrAlignedData, "Measurands", types.ReadingContextSampleClock)
		if len(values) == 0 {
			continue
		}
		m.conn.SendMeterValues(&metervalues.MeterValuesRequest{
			EvseId:     evse.id,
			MeterValue: values,
		}, "")
	}
}

// TriggerMeterValues answers a TriggerMessage for MeterValues.
func (m *Manager) TriggerMeterValues(evseId int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	evse, ok := m.evses[evseId]
	if !ok {
		return false
	}
	values := m.sampleLocked(evse, devicemodel.CtrlrSampledData, "TxUpdatedMeasurands", types.ReadingContextTrigger)
	if len(values) == 0 {
		return false
	}
	m.conn.SendMeterValues(&metervalues.MeterValuesRequest{
		EvseId:     evseId,
		MeterValue: values,
	}, txIdLocked(evse))
	return true
}
