package devicemodel

import (
	"evcp/ocpp/provisioning"
	"evcp/ocpp/types"
)

var attributeOrder = []types.AttributeType{
	types.AttributeActual,
	types.AttributeTarget,
	types.AttributeMinSet,
	types.AttributeMaxSet,
}

// BaseReport assembles the inventory for GetBaseReport. FullInventory
// returns every entry, ConfigurationInventory the writable ones and
// SummaryInventory the required set.
func (s *Store) BaseReport(base provisioning.ReportBase) []provisioning.ReportData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var report []provisioning.ReportData
	for _, k := range s.order {
		data := s.vars[k]
		switch base {
		case provisioning.ReportBaseConfigurationInventory:
			if !hasWritableAttribute(data) {
				continue
			}
		case provisioning.ReportBaseSummaryInventory:
			if !data.required {
				continue
			}
		}
		report = append(report, s.reportEntryLocked(k, data, base == provisioning.ReportBaseFullInventory))
	}
	return report
}

// Report assembles the filtered inventory for GetReport.
func (s *Store) Report(criteria []provisioning.ComponentCriterion, filter []types.ComponentVariable) []provisioning.ReportData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var report []provisioning.ReportData
	for _, k := range s.order {
		data := s.vars[k]
		component := k.component2()
		variable := k.variable2()
		if len(filter) > 0 && !matchesFilter(component, variable, filter) {
			continue
		}
		if !s.matchesCriteriaLocked(k, criteria) {
			continue
		}
		report = append(report, s.reportEntryLocked(k, data, true))
	}
	return report
}

func (s *Store) reportEntryLocked(k variableKey, data *variableData, withCharacteristics bool) provisioning.ReportData {
	entry := provisioning.ReportData{
		Component: k.component2(),
		Variable:  k.variable2(),
	}
	for _, attrType := range attributeOrder {
		attr, ok := data.attributes[attrType]
		if !ok {
			continue
		}
		reported := provisioning.VariableAttribute{
			Type:       attrType,
			Mutability: types.MutabilityType(attr.Mutability),
			Persistent: attr.Persistent,
			Constant:   attr.Constant,
		}
		if types.MutabilityType(attr.Mutability) != types.MutabilityWriteOnly {
			reported.Value = attr.Value
		}
		entry.VariableAttribute = append(entry.VariableAttribute, reported)
	}
	if withCharacteristics {
		entry.VariableCharacteristics = &provisioning.VariableCharacteristics{
			Unit:               data.characteristics.Unit,
			DataType:           types.DataType(data.characteristics.DataType),
			MinLimit:           data.characteristics.MinLimit,
			MaxLimit:           data.characteristics.MaxLimit,
			ValuesList:         data.characteristics.ValuesList,
			SupportsMonitoring: data.characteristics.SupportsMonitoring,
		}
	}
	return entry
}

func hasWritableAttribute(data *variableData) bool {
	for _, attr := range data.attributes {
		if types.MutabilityType(attr.Mutability) != types.MutabilityReadOnly && !attr.Constant {
			return true
		}
	}
	return false
}

// matchesCriteriaLocked checks the component against criteria such as
// Enabled or Available. A component without the criterion variable only
// drops out when it explicitly reports false.
func (s *Store) matchesCriteriaLocked(k variableKey, criteria []provisioning.ComponentCriterion) bool {
	if len(criteria) == 0 {
		return true
	}
	for _, criterion := range criteria {
		value, ok := s.componentVariableLocked(k, string(criterion))
		if !ok || value == "true" {
			return true
		}
	}
	return false
}

func (s *Store) componentVariableLocked(k variableKey, variableName string) (string, bool) {
	lookup := k
	lookup.variable = variableName
	lookup.variableInstance = ""
	data, ok := s.vars[lookup]
	if !ok {
		return "", false
	}
	attr, ok := data.attributes[types.AttributeActual]
	if !ok {
		return "", false
	}
	return attr.Value, true
}

func matchesFilter(component types.Component, variable types.Variable, filter []types.ComponentVariable) bool {
	for _, f := range filter {
		if f.Component.Name != component.Name {
			continue
		}
		if f.Component.Instance != "" && f.Component.Instance != component.Instance {
			continue
		}
		if f.Component.EVSE != nil {
			if component.EVSE == nil || f.Component.EVSE.Id != component.EVSE.Id {
				continue
			}
			if f.Component.EVSE.ConnectorId != nil {
				if component.EVSE.ConnectorId == nil || *f.Component.EVSE.ConnectorId != *component.EVSE.ConnectorId {
					continue
				}
			}
		}
		if f.Variable.Name != "" && f.Variable.Name != variable.Name {
			continue
		}
		if f.Variable.Instance != "" && f.Variable.Instance != variable.Instance {
			continue
		}
		return true
	}
	return false
}
