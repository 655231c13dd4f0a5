package devicemodel

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"evcp/entity"
	"evcp/internal"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/types"
)

// SetSource records who wrote an attribute.
type SetSource string

const (
	SourceCSMS     SetSource = "CSMS"
	SourceInternal SetSource = "Internal"
	SourceDefault  SetSource = "Default"
)

// Well-known controller components.
const (
	CtrlrOCPPComm      = "OCPPCommCtrlr"
	CtrlrAuth          = "AuthCtrlr"
	CtrlrAuthCache     = "AuthCacheCtrlr"
	CtrlrLocalAuthList = "LocalAuthListCtrlr"
	CtrlrSampledData   = "SampledDataCtrlr"
	CtrlrAlignedData   = "AlignedDataCtrlr"
	CtrlrTxCtrlr       = "TxCtrlr"
	CtrlrDisplay       = "DisplayMessageCtrlr"
	CtrlrTariffCost    = "TariffCostCtrlr"
	CtrlrISO15118      = "ISO15118Ctrlr"
	CtrlrDeviceData    = "DeviceDataCtrlr"
	CtrlrSmartCharging = "SmartChargingCtrlr"
	CtrlrMonitoring    = "MonitoringCtrlr"
	CtrlrCustomization = "CustomizationCtrlr"
	CtrlrSecurity      = "SecurityCtrlr"
	ComponentStation   = "ChargingStation"
	ComponentEVSE      = "EVSE"
	ComponentConnector = "Connector"
)

type Database interface {
	ReadVariables() ([]*entity.VariableEntry, error)
	SaveVariable(entry *entity.VariableEntry) error
	ReadMonitors() ([]*entity.MonitorEntry, error)
	SaveMonitor(monitor *entity.MonitorEntry) error
	DeleteMonitor(id int) error
}

type variableKey struct {
	component         string
	componentInstance string
	evseId            int
	connectorId       int
	variable          string
	variableInstance  string
}

func keyOf(component types.Component, variable types.Variable) variableKey {
	k := variableKey{
		component:         component.Name,
		componentInstance: component.Instance,
		variable:          variable.Name,
		variableInstance:  variable.Instance,
	}
	if component.EVSE != nil {
		k.evseId = component.EVSE.Id
		if component.EVSE.ConnectorId != nil {
			k.connectorId = *component.EVSE.ConnectorId
		}
	}
	return k
}

func (k variableKey) component2() types.Component {
	c := types.Component{Name: k.component, Instance: k.componentInstance}
	if k.evseId != 0 || k.connectorId != 0 {
		evse := &types.EVSE{Id: k.evseId}
		if k.connectorId != 0 {
			connectorId := k.connectorId
			evse.ConnectorId = &connectorId
		}
		c.EVSE = evse
	}
	return c
}

func (k variableKey) variable2() types.Variable {
	return types.Variable{Name: k.variable, Instance: k.variableInstance}
}

type variableData struct {
	required        bool
	characteristics entity.VariableCharacteristics
	attributes      map[types.AttributeType]*entity.VariableAttribute
}

// Store is the in-memory device model with write-through persistence.
// Writes are validated against mutability and characteristics; observers
// are notified after the write has been applied.
type Store struct {
	mu       sync.RWMutex
	db       Database
	vars     map[variableKey]*variableData
	order    []variableKey
	monitors *monitorSet
	logger   internal.LogHandler
	watchers []func(component types.Component, variable types.Variable, value string)
}

func NewStore(db Database, logger internal.LogHandler) *Store {
	return &Store{
		db:       db,
		vars:     make(map[variableKey]*variableData),
		monitors: newMonitorSet(),
		logger:   logger,
	}
}

// Load replays persisted rows over the registered defaults.
func (s *Store) Load() error {
	if s.db == nil {
		return nil
	}
	entries, err := s.db.ReadVariables()
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, entry := range entries {
		k := variableKey{
			component:         entry.ComponentName,
			componentInstance: entry.ComponentInstance,
			evseId:            entry.EvseId,
			connectorId:       entry.ConnectorId,
			variable:          entry.VariableName,
			variableInstance:  entry.VariableInstance,
		}
		data, ok := s.vars[k]
		if !ok {
			data = &variableData{attributes: make(map[types.AttributeType]*entity.VariableAttribute)}
			s.vars[k] = data
			s.order = append(s.order, k)
		}
		data.required = entry.Required
		data.characteristics = entry.Characteristics
		for i := range entry.Attributes {
			attr := entry.Attributes[i]
			data.attributes[types.AttributeType(attr.Type)] = &attr
		}
	}
	s.mu.Unlock()

	monitors, err := s.db.ReadMonitors()
	if err != nil {
		return err
	}
	s.monitors.load(monitors)
	return nil
}

// Register seeds a variable; existing entries keep their persisted value.
func (s *Store) Register(component types.Component, variable types.Variable, characteristics entity.VariableCharacteristics, mutability types.MutabilityType, value string, required bool) {
	k := keyOf(component, variable)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vars[k]; ok {
		return
	}
	s.vars[k] = &variableData{
		required:        required,
		characteristics: characteristics,
		attributes: map[types.AttributeType]*entity.VariableAttribute{
			types.AttributeActual: {
				Type:       string(types.AttributeActual),
				Value:      value,
				Mutability: string(mutability),
				Persistent: true,
			},
		},
	}
	s.order = append(s.order, k)
}

// Watch registers a change observer, called after every applied write.
func (s *Store) Watch(watcher func(component types.Component, variable types.Variable, value string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, watcher)
}

// GetVariables answers a CSMS GetVariables request.
func (s *Store) GetVariables(requests []provisioning.GetVariableData) []provisioning.GetVariableResult {
	results := make([]provisioning.GetVariableResult, 0, len(requests))
	for _, request := range requests {
		results = append(results, s.getVariable(request))
	}
	return results
}

func (s *Store) getVariable(request provisioning.GetVariableData) provisioning.GetVariableResult {
	attributeType := request.AttributeType
	if attributeType == "" {
		attributeType = types.AttributeActual
	}
	result := provisioning.GetVariableResult{
		AttributeType: attributeType,
		Component:     request.Component,
		Variable:      request.Variable,
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.vars[keyOf(request.Component, request.Variable)]
	if !ok {
		if s.componentKnown(request.Component) {
			result.AttributeStatus = provisioning.GetVariableStatusUnknownVariable
		} else {
			result.AttributeStatus = provisioning.GetVariableStatusUnknownComponent
		}
		return result
	}
	attribute, ok := data.attributes[attributeType]
	if !ok {
		result.AttributeStatus = provisioning.GetVariableStatusNotSupported
		return result
	}
	if types.MutabilityType(attribute.Mutability) == types.MutabilityWriteOnly {
		result.AttributeStatus = provisioning.GetVariableStatusRejected
		result.AttributeStatusInfo = &types.StatusInfo{ReasonCode: "WriteOnly"}
		return result
	}
	result.AttributeStatus = provisioning.GetVariableStatusAccepted
	result.AttributeValue = attribute.Value
	return result
}

func (s *Store) componentKnown(component types.Component) bool {
	want := keyOf(component, types.Variable{})
	for k := range s.vars {
		if k.component == want.component && k.componentInstance == want.componentInstance &&
			k.evseId == want.evseId && k.connectorId == want.connectorId {
			return true
		}
	}
	return false
}

// SetVariables applies a batch of writes; each result is independent.
func (s *Store) SetVariables(requests []provisioning.SetVariableData, source SetSource) []provisioning.SetVariableResult {
	results := make([]provisioning.SetVariableResult, 0, len(requests))
	for _, request := range requests {
		results = append(results, s.setVariable(request, source))
	}
	return results
}

func (s *Store) setVariable(request provisioning.SetVariableData, source SetSource) provisioning.SetVariableResult {
	attributeType := request.AttributeType
	if attributeType == "" {
		attributeType = types.AttributeActual
	}
	result := provisioning.SetVariableResult{
		AttributeType: attributeType,
		Component:     request.Component,
		Variable:      request.Variable,
	}
	k := keyOf(request.Component, request.Variable)

	s.mu.Lock()
	data, ok := s.vars[k]
	if !ok {
		if s.componentKnown(request.Component) {
			result.AttributeStatus = provisioning.SetVariableStatusUnknownVariable
		} else {
			result.AttributeStatus = provisioning.SetVariableStatusUnknownComponent
		}
		s.mu.Unlock()
		return result
	}
	attribute, ok := data.attributes[attributeType]
	if !ok {
		result.AttributeStatus = provisioning.SetVariableStatusNotSupported
		s.mu.Unlock()
		return result
	}
	if source == SourceCSMS {
		mutability := types.MutabilityType(attribute.Mutability)
		if mutability == types.MutabilityReadOnly || attribute.Constant {
			result.AttributeStatus = provisioning.SetVariableStatusRejected
			result.AttributeStatusInfo = &types.StatusInfo{ReasonCode: "ReadOnly"}
			s.mu.Unlock()
			return result
		}
	}
	if err := validateValue(request.AttributeValue, data.characteristics); err != nil {
		result.AttributeStatus = provisioning.SetVariableStatusRejected
		result.AttributeStatusInfo = &types.StatusInfo{ReasonCode: "InvalidValue", AdditionalInfo: err.Error()}
		s.mu.Unlock()
		return result
	}
	previous := attribute.Value
	attribute.Value = request.AttributeValue
	entry := s.entryLocked(k, data)
	watchers := append([]func(types.Component, types.Variable, string){}, s.watchers...)
	s.mu.Unlock()

	if s.db != nil && attribute.Persistent {
		if err := s.db.SaveVariable(entry); err != nil {
			s.logger.Error("persisting variable write", err)
		}
	}
	result.AttributeStatus = provisioning.SetVariableStatusAccepted

	// Monitors and watchers fire strictly after the write is applied.
	if attributeType == types.AttributeActual {
		s.monitors.evaluate(s, k, previous, request.AttributeValue)
		for _, watcher := range watchers {
			watcher(request.Component, request.Variable, request.AttributeValue)
		}
	}
	return result
}

func (s *Store) entryLocked(k variableKey, data *variableData) *entity.VariableEntry {
	entry := &entity.VariableEntry{
		ComponentName:     k.component,
		ComponentInstance: k.componentInstance,
		EvseId:            k.evseId,
		ConnectorId:       k.connectorId,
		VariableName:      k.variable,
		VariableInstance:  k.variableInstance,
		Required:          data.required,
		Characteristics:   data.characteristics,
	}
	for _, attr := range data.attributes {
		entry.Attributes = append(entry.Attributes, *attr)
	}
	return entry
}

func validateValue(value string, characteristics entity.VariableCharacteristics) error {
	switch types.DataType(characteristics.DataType) {
	case types.DataTypeInteger:
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %s", value)
		}
		return checkLimits(float64(v), characteristics)
	case types.DataTypeDecimal:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("not a decimal: %s", value)
		}
		return checkLimits(v, characteristics)
	case types.DataTypeBoolean:
		if value != "true" && value != "false" {
			return fmt.Errorf("not a boolean: %s", value)
		}
	case types.DataTypeOptionList:
		if characteristics.ValuesList == "" {
			return nil
		}
		for _, option := range strings.Split(characteristics.ValuesList, ",") {
			if strings.TrimSpace(option) == value {
				return nil
			}
		}
		return fmt.Errorf("value %s not in values list", value)
	}
	return nil
}

func checkLimits(v float64, characteristics entity.VariableCharacteristics) error {
	if characteristics.MinLimit != nil && v < *characteristics.MinLimit {
		return fmt.Errorf("below minimum %v", *characteristics.MinLimit)
	}
	if characteristics.MaxLimit != nil && v > *characteristics.MaxLimit {
		return fmt.Errorf("above maximum %v", *characteristics.MaxLimit)
	}
	return nil
}

// Typed read helpers for internal consumers.

func (s *Store) Value(componentName, variableName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.vars[variableKey{component: componentName, variable: variableName}]
	if !ok {
		return "", false
	}
	attribute, ok := data.attributes[types.AttributeActual]
	if !ok {
		return "", false
	}
	return attribute.Value, true
}

func (s *Store) BoolValue(componentName, variableName string) bool {
	value, ok := s.Value(componentName, variableName)
	return ok && value == "true"
}

func (s *Store) IntValue(componentName, variableName string, fallback int) int {
	value, ok := s.Value(componentName, variableName)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return v
}

// InstanceIntValue reads an integer variable registered with a variable
// instance, like DeviceDataCtrlr ItemsPerMessage/GetReport.
func (s *Store) InstanceIntValue(componentName, variableName, instance string, fallback int) int {
	s.mu.RLock()
	data, ok := s.vars[variableKey{component: componentName, variable: variableName, variableInstance: instance}]
	s.mu.RUnlock()
	if !ok {
		return fallback
	}
	attribute, ok := data.attributes[types.AttributeActual]
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(attribute.Value)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Store) FloatValue(componentName, variableName string) (float64, bool) {
	value, ok := s.Value(componentName, variableName)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetInternal writes a value on behalf of the station itself.
func (s *Store) SetInternal(componentName, variableName, value string) {
	s.setVariable(provisioning.SetVariableData{
		AttributeValue: value,
		Component:      types.Component{Name: componentName},
		Variable:       types.Variable{Name: variableName},
	}, SourceInternal)
}
