package devicemodel

import (
	"strconv"
	"sync"
	"time"

	"evcp/entity"
	"evcp/ocpp/diagnostics"
	"evcp/ocpp/types"
)

type monitorSet struct {
	mu     sync.Mutex
	byId   map[int]*entity.MonitorEntry
	nextId int
	events chan diagnostics.EventData
	seq    int
}

func newMonitorSet() *monitorSet {
	return &monitorSet{
		byId:   make(map[int]*entity.MonitorEntry),
		nextId: 1,
		events: make(chan diagnostics.EventData, 32),
	}
}

func (m *monitorSet) load(monitors []*entity.MonitorEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, monitor := range monitors {
		m.byId[monitor.Id] = monitor
		if monitor.Id >= m.nextId {
			m.nextId = monitor.Id + 1
		}
	}
}

// Events delivers monitor notifications, emitted after the causing write.
func (s *Store) Events() <-chan diagnostics.EventData {
	return s.monitors.events
}

func (m *monitorSet) emit(monitor *entity.MonitorEntry, trigger diagnostics.EventTrigger, actualValue string) {
	m.mu.Lock()
	m.seq++
	eventId := m.seq
	m.mu.Unlock()
	monitorId := monitor.Id
	component := types.Component{Name: monitor.ComponentName, Instance: monitor.ComponentInstance}
	if monitor.EvseId != 0 {
		component.EVSE = &types.EVSE{Id: monitor.EvseId}
	}
	event := diagnostics.EventData{
		EventId:               eventId,
		Timestamp:             types.NewDateTime(time.Now().UTC()),
		Trigger:               trigger,
		ActualValue:           actualValue,
		VariableMonitoringId:  &monitorId,
		EventNotificationType: diagnostics.EventCustomMonitor,
		Component:             component,
		Variable:              types.Variable{Name: monitor.VariableName, Instance: monitor.VariableInstance},
	}
	select {
	case m.events <- event:
	default:
		// monitor consumer is behind, drop rather than block the write path
	}
}

func (m *monitorSet) evaluate(s *Store, k variableKey, previous, current string) {
	prev, prevErr := strconv.ParseFloat(previous, 64)
	cur, curErr := strconv.ParseFloat(current, 64)

	m.mu.Lock()
	matching := make([]*entity.MonitorEntry, 0)
	for _, monitor := range m.byId {
		if monitor.ComponentName == k.component && monitor.ComponentInstance == k.componentInstance &&
			monitor.EvseId == k.evseId && monitor.VariableName == k.variable &&
			monitor.VariableInstance == k.variableInstance {
			matching = append(matching, monitor)
		}
	}
	m.mu.Unlock()

	for _, monitor := range matching {
		switch diagnostics.MonitorType(monitor.Type) {
		case diagnostics.MonitorUpperThreshold:
			if curErr == nil && cur > monitor.Value && (prevErr != nil || prev <= monitor.Value) {
				m.emit(monitor, diagnostics.EventTriggerAlerting, current)
			}
		case diagnostics.MonitorLowerThreshold:
			if curErr == nil && cur < monitor.Value && (prevErr != nil || prev >= monitor.Value) {
				m.emit(monitor, diagnostics.EventTriggerAlerting, current)
			}
		case diagnostics.MonitorDelta:
			if curErr == nil && prevErr == nil {
				delta := cur - prev
				if delta < 0 {
					delta = -delta
				}
				if delta >= monitor.Value {
					m.emit(monitor, diagnostics.EventTriggerDelta, current)
				}
			} else if previous != current {
				m.emit(monitor, diagnostics.EventTriggerDelta, current)
			}
		}
	}
}

// SetMonitoring installs CSMS-requested monitors.
func (s *Store) SetMonitoring(requests []diagnostics.SetMonitoringData) []diagnostics.SetMonitoringResult {
	results := make([]diagnostics.SetMonitoringResult, 0, len(requests))
	for _, request := range requests {
		results = append(results, s.setMonitor(request))
	}
	return results
}

func (s *Store) setMonitor(request diagnostics.SetMonitoringData) diagnostics.SetMonitoringResult {
	result := diagnostics.SetMonitoringResult{
		Type:      request.Type,
		Severity:  request.Severity,
		Component: request.Component,
		Variable:  request.Variable,
	}
	k := keyOf(request.Component, request.Variable)
	s.mu.RLock()
	data, ok := s.vars[k]
	known := s.componentKnown(request.Component)
	s.mu.RUnlock()
	if !ok {
		if known {
			result.Status = diagnostics.SetMonitoringStatusUnknownVariable
		} else {
			result.Status = diagnostics.SetMonitoringStatusUnknownComponent
		}
		return result
	}
	if !data.characteristics.SupportsMonitoring {
		result.Status = diagnostics.SetMonitoringStatusRejected
		result.StatusInfo = &types.StatusInfo{ReasonCode: "MonitoringNotSupported"}
		return result
	}

	monitor := &entity.MonitorEntry{
		ComponentName:     k.component,
		ComponentInstance: k.componentInstance,
		EvseId:            k.evseId,
		VariableName:      k.variable,
		VariableInstance:  k.variableInstance,
		Type:              string(request.Type),
		Value:             request.Value,
		Severity:          request.Severity,
		Transaction:       request.Transaction,
	}
	s.monitors.mu.Lock()
	if request.Id != nil {
		monitor.Id = *request.Id
		if _, exists := s.monitors.byId[monitor.Id]; !exists {
			s.monitors.mu.Unlock()
			result.Status = diagnostics.SetMonitoringStatusRejected
			result.StatusInfo = &types.StatusInfo{ReasonCode: "UnknownMonitorId"}
			return result
		}
	} else {
		monitor.Id = s.monitors.nextId
		s.monitors.nextId++
	}
	s.monitors.byId[monitor.Id] = monitor
	s.monitors.mu.Unlock()

	if s.db != nil {
		if err := s.db.SaveMonitor(monitor); err != nil {
			s.logger.Error("persisting monitor", err)
		}
	}
	monitorId := monitor.Id
	result.Id = &monitorId
	result.Status = diagnostics.SetMonitoringStatusAccepted
	return result
}

// ClearMonitoring removes monitors by id.
func (s *Store) ClearMonitoring(ids []int) []diagnostics.ClearMonitoringResult {
	results := make([]diagnostics.ClearMonitoringResult, 0, len(ids))
	for _, id := range ids {
		result := diagnostics.ClearMonitoringResult{Id: id}
		s.monitors.mu.Lock()
		_, ok := s.monitors.byId[id]
		if ok {
			delete(s.monitors.byId, id)
		}
		s.monitors.mu.Unlock()
		if !ok {
			result.Status = diagnostics.ClearMonitoringStatusNotFound
		} else {
			result.Status = diagnostics.ClearMonitoringStatusAccepted
			if s.db != nil {
				if err := s.db.DeleteMonitor(id); err != nil {
					s.logger.Error("deleting monitor", err)
				}
			}
		}
		results = append(results, result)
	}
	return results
}

// MonitoringReport lists installed monitors, optionally filtered.
func (s *Store) MonitoringReport(criteria []diagnostics.MonitoringCriterion, filter []types.ComponentVariable) []diagnostics.MonitoringData {
	s.monitors.mu.Lock()
	monitors := make([]*entity.MonitorEntry, 0, len(s.monitors.byId))
	for _, monitor := range s.monitors.byId {
		monitors = append(monitors, monitor)
	}
	s.monitors.mu.Unlock()

	var report []diagnostics.MonitoringData
	for _, monitor := range monitors {
		if !monitorMatchesCriteria(monitor, criteria) {
			continue
		}
		component := types.Component{Name: monitor.ComponentName, Instance: monitor.ComponentInstance}
		if monitor.EvseId != 0 {
			component.EVSE = &types.EVSE{Id: monitor.EvseId}
		}
		variable := types.Variable{Name: monitor.VariableName, Instance: monitor.VariableInstance}
		if len(filter) > 0 && !matchesFilter(component, variable, filter) {
			continue
		}
		report = append(report, diagnostics.MonitoringData{
			Component: component,
			Variable:  variable,
			VariableMonitoring: []diagnostics.VariableMonitoring{{
				Id:          monitor.Id,
				Transaction: monitor.Transaction,
				Value:       monitor.Value,
				Type:        diagnostics.MonitorType(monitor.Type),
				Severity:    monitor.Severity,
			}},
		})
	}
	return report
}

func monitorMatchesCriteria(monitor *entity.MonitorEntry, criteria []diagnostics.MonitoringCriterion) bool {
	if len(criteria) == 0 {
		return true
	}
	for _, criterion := range criteria {
		switch criterion {
		case diagnostics.MonitoringCriterionThreshold:
			t := diagnostics.MonitorType(monitor.Type)
			if t == diagnostics.MonitorUpperThreshold || t == diagnostics.MonitorLowerThreshold {
				return true
			}
		case diagnostics.MonitoringCriterionDelta:
			if diagnostics.MonitorType(monitor.Type) == diagnostics.MonitorDelta {
				return true
			}
		case diagnostics.MonitoringCriterionPeriodic:
			t := diagnostics.MonitorType(monitor.Type)
			if t == diagnostics.MonitorPeriodic || t == diagnostics.MonitorPeriodicClockAligned {
				return true
			}
		}
	}
	return false
}
