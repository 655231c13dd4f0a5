package devicemodel

import (
	"strconv"

	"evcp/entity"
	"evcp/internal/config"
	"evcp/ocpp/types"
)

func boolChar() entity.VariableCharacteristics {
	return entity.VariableCharacteristics{DataType: string(types.DataTypeBoolean), SupportsMonitoring: false}
}

func intChar(unit string) entity.VariableCharacteristics {
	return entity.VariableCharacteristics{DataType: string(types.DataTypeInteger), Unit: unit, SupportsMonitoring: true}
}

func stringChar() entity.VariableCharacteristics {
	return entity.VariableCharacteristics{DataType: string(types.DataTypeString)}
}

func listChar(valuesList string) entity.VariableCharacteristics {
	return entity.VariableCharacteristics{DataType: string(types.DataTypeMemberList), ValuesList: valuesList}
}

// RegisterDefaults seeds the standard controller components. Register is
// idempotent, so persisted values loaded beforehand win over these seeds.
func (s *Store) RegisterDefaults(conf *config.Config) {
	station := types.Component{Name: ComponentStation}
	s.Register(station, types.Variable{Name: "Available"}, boolChar(), types.MutabilityReadOnly, "true", true)
	s.Register(station, types.Variable{Name: "AvailabilityState"}, stringChar(), types.MutabilityReadOnly, "Available", true)
	s.Register(station, types.Variable{Name: "SupplyPhases"}, intChar(""), types.MutabilityReadOnly, "3", true)
	s.Register(station, types.Variable{Name: "SupplyVoltage"}, intChar("V"), types.MutabilityReadOnly, "230", true)
	s.Register(station, types.Variable{Name: "Model"}, stringChar(), types.MutabilityReadOnly, conf.Station.Model, false)
	s.Register(station, types.Variable{Name: "VendorName"}, stringChar(), types.MutabilityReadOnly, conf.Station.Vendor, false)
	s.Register(station, types.Variable{Name: "SerialNumber"}, stringChar(), types.MutabilityReadOnly, conf.Station.SerialNumber, false)
	s.Register(station, types.Variable{Name: "FirmwareVersion"}, stringChar(), types.MutabilityReadOnly, conf.Station.FirmwareVersion, false)

	comm := types.Component{Name: CtrlrOCPPComm}
	s.Register(comm, types.Variable{Name: "HeartbeatInterval"}, intChar("s"), types.MutabilityReadWrite,
		strconv.Itoa(conf.Timing.HeartbeatInterval), true)
	s.Register(comm, types.Variable{Name: "MessageTimeout", Instance: "Default"}, intChar("s"), types.MutabilityReadOnly,
		strconv.Itoa(conf.Timing.MessageTimeout), true)
	s.Register(comm, types.Variable{Name: "MessageAttempts", Instance: "TransactionEvent"}, intChar(""), types.MutabilityReadWrite,
		strconv.Itoa(conf.Timing.MessageAttempts), true)
	s.Register(comm, types.Variable{Name: "MessageAttemptInterval", Instance: "TransactionEvent"}, intChar("s"), types.MutabilityReadWrite,
		strconv.Itoa(conf.Timing.MessageAttemptInterval), true)
	s.Register(comm, types.Variable{Name: "RetryBackOffWaitMinimum"}, intChar("s"), types.MutabilityReadWrite,
		strconv.Itoa(conf.Timing.RetryBackoffWaitMinimum), true)
	s.Register(comm, types.Variable{Name: "RetryBackOffRepeatTimes"}, intChar(""), types.MutabilityReadWrite,
		strconv.Itoa(conf.Timing.RetryBackoffRepeatTimes), true)
	s.Register(comm, types.Variable{Name: "RetryBackOffRandomRange"}, intChar("s"), types.MutabilityReadWrite,
		strconv.Itoa(conf.Timing.RetryBackoffRandomRange), true)
	s.Register(comm, types.Variable{Name: "NetworkConfigurationPriority"}, stringChar(), types.MutabilityReadWrite, "1", true)
	s.Register(comm, types.Variable{Name: "NetworkProfileConnectionAttempts"}, intChar(""), types.MutabilityReadWrite, "3", true)
	s.Register(comm, types.Variable{Name: "OfflineThreshold"}, intChar("s"), types.MutabilityReadWrite, "60", true)
	s.Register(comm, types.Variable{Name: "UnlockOnEVSideDisconnect"}, boolChar(), types.MutabilityReadWrite, "true", true)
	s.Register(comm, types.Variable{Name: "WebSocketPingInterval"}, intChar("s"), types.MutabilityReadWrite, "30", false)
	s.Register(comm, types.Variable{Name: "ResetRetries"}, intChar(""), types.MutabilityReadWrite, "1", true)

	security := types.Component{Name: CtrlrSecurity}
	s.Register(security, types.Variable{Name: "SecurityProfile"}, intChar(""), types.MutabilityReadOnly,
		strconv.Itoa(conf.Csms.SecurityProfile), true)
	s.Register(security, types.Variable{Name: "OrganizationName"}, stringChar(), types.MutabilityReadWrite, conf.Pki.Organization, true)
	s.Register(security, types.Variable{Name: "CertificateEntries"}, intChar(""), types.MutabilityReadOnly, "0", true)

	auth := types.Component{Name: CtrlrAuth}
	s.Register(auth, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(auth, types.Variable{Name: "AuthorizeRemoteStart"}, boolChar(), types.MutabilityReadWrite, "false", true)
	s.Register(auth, types.Variable{Name: "LocalAuthorizeOffline"}, boolChar(), types.MutabilityReadWrite, "true", true)
	s.Register(auth, types.Variable{Name: "LocalPreAuthorize"}, boolChar(), types.MutabilityReadWrite, "false", true)
	s.Register(auth, types.Variable{Name: "OfflineTxForUnknownIdEnabled"}, boolChar(), types.MutabilityReadWrite, "false", false)

	cache := types.Component{Name: CtrlrAuthCache}
	s.Register(cache, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(cache, types.Variable{Name: "LifeTime"}, intChar("s"), types.MutabilityReadWrite, "86400", false)
	s.Register(cache, types.Variable{Name: "Storage"}, intChar("B"), types.MutabilityReadOnly, "1000000", false)
	s.Register(cache, types.Variable{Name: "Policy"}, stringChar(), types.MutabilityReadWrite, "LRU", false)

	localList := types.Component{Name: CtrlrLocalAuthList}
	s.Register(localList, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(localList, types.Variable{Name: "Entries"}, intChar(""), types.MutabilityReadOnly, "0", true)
	s.Register(localList, types.Variable{Name: "ItemsPerMessage"}, intChar(""), types.MutabilityReadOnly, "50", true)
	s.Register(localList, types.Variable{Name: "BytesPerMessage"}, intChar("B"), types.MutabilityReadOnly, "65536", true)

	sampled := types.Component{Name: CtrlrSampledData}
	s.Register(sampled, types.Variable{Name: "TxStartedMeasurands"}, listChar("Energy.Active.Import.Register"),
		types.MutabilityReadWrite, "Energy.Active.Import.Register", true)
	s.Register(sampled, types.Variable{Name: "TxUpdatedMeasurands"}, listChar("Energy.Active.Import.Register,Power.Active.Import"),
		types.MutabilityReadWrite, "Energy.Active.Import.Register,Power.Active.Import", true)
	s.Register(sampled, types.Variable{Name: "TxEndedMeasurands"}, listChar("Energy.Active.Import.Register"),
		types.MutabilityReadWrite, "Energy.Active.Import.Register", true)
	s.Register(sampled, types.Variable{Name: "TxUpdatedInterval"}, intChar("s"), types.MutabilityReadWrite, "60", true)
	s.Register(sampled, types.Variable{Name: "TxEndedInterval"}, intChar("s"), types.MutabilityReadWrite, "0", true)

	aligned := types.Component{Name: CtrlrAlignedData}
	s.Register(aligned, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(aligned, types.Variable{Name: "Interval"}, intChar("s"), types.MutabilityReadWrite, "900", true)
	s.Register(aligned, types.Variable{Name: "Measurands"}, listChar("Energy.Active.Import.Register"),
		types.MutabilityReadWrite, "Energy.Active.Import.Register", true)
	s.Register(aligned, types.Variable{Name: "TxEndedInterval"}, intChar("s"), types.MutabilityReadWrite, "0", true)

	tx := types.Component{Name: CtrlrTxCtrlr}
	s.Register(tx, types.Variable{Name: "EVConnectionTimeOut"}, intChar("s"), types.MutabilityReadWrite, "120", true)
	s.Register(tx, types.Variable{Name: "StopTxOnEVSideDisconnect"}, boolChar(), types.MutabilityReadOnly, "true", true)
	s.Register(tx, types.Variable{Name: "StopTxOnInvalidId"}, boolChar(), types.MutabilityReadWrite, "true", true)
	s.Register(tx, types.Variable{Name: "TxStartPoint"}, listChar("PowerPathClosed,Authorized,EVConnected"),
		types.MutabilityReadWrite, "PowerPathClosed", true)
	s.Register(tx, types.Variable{Name: "TxStopPoint"}, listChar("PowerPathClosed,Authorized,EVConnected"),
		types.MutabilityReadWrite, "PowerPathClosed", true)
	s.Register(tx, types.Variable{Name: "MaxEnergyOnInvalidId"}, intChar("Wh"), types.MutabilityReadWrite, "0", false)

	display := types.Component{Name: CtrlrDisplay}
	s.Register(display, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(display, types.Variable{Name: "DisplayMessages"}, intChar(""), types.MutabilityReadOnly, "10", true)
	s.Register(display, types.Variable{Name: "SupportedFormats"}, listChar("ASCII,UTF8"), types.MutabilityReadOnly, "ASCII,UTF8", true)
	s.Register(display, types.Variable{Name: "SupportedPriorities"}, listChar("AlwaysFront,InFront,NormalCycle"),
		types.MutabilityReadOnly, "AlwaysFront,InFront,NormalCycle", true)
	s.Register(display, types.Variable{Name: "SupportedStates"}, listChar("Charging,Faulted,Idle,Unavailable"),
		types.MutabilityReadOnly, "Charging,Faulted,Idle,Unavailable", true)

	tariff := types.Component{Name: CtrlrTariffCost}
	s.Register(tariff, types.Variable{Name: "Enabled", Instance: "Tariff"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(tariff, types.Variable{Name: "Enabled", Instance: "Cost"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(tariff, types.Variable{Name: "TariffFallbackMessage"}, stringChar(), types.MutabilityReadWrite, "", true)
	s.Register(tariff, types.Variable{Name: "TotalCostFallbackMessage"}, stringChar(), types.MutabilityReadWrite, "", true)
	s.Register(tariff, types.Variable{Name: "Currency"}, stringChar(), types.MutabilityReadWrite, "EUR", true)

	smart := types.Component{Name: CtrlrSmartCharging}
	s.Register(smart, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(smart, types.Variable{Name: "ProfileStackLevel"}, intChar(""), types.MutabilityReadOnly, "10", true)
	s.Register(smart, types.Variable{Name: "RateUnit"}, listChar("A,W"), types.MutabilityReadOnly, "A,W", true)
	s.Register(smart, types.Variable{Name: "PeriodsPerSchedule"}, intChar(""), types.MutabilityReadOnly, "48", true)
	s.Register(smart, types.Variable{Name: "LimitChangeSignificance"}, entity.VariableCharacteristics{
		DataType: string(types.DataTypeDecimal), Unit: "%"}, types.MutabilityReadWrite, "10", false)

	iso := types.Component{Name: CtrlrISO15118}
	s.Register(iso, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "false", false)
	s.Register(iso, types.Variable{Name: "ContractValidationOffline"}, boolChar(), types.MutabilityReadWrite, "false", true)
	s.Register(iso, types.Variable{Name: "PnCEnabled"}, boolChar(), types.MutabilityReadWrite, "false", false)

	deviceData := types.Component{Name: CtrlrDeviceData}
	s.Register(deviceData, types.Variable{Name: "ItemsPerMessage", Instance: "GetReport"}, intChar(""), types.MutabilityReadOnly, "20", true)
	s.Register(deviceData, types.Variable{Name: "ItemsPerMessage", Instance: "GetVariables"}, intChar(""), types.MutabilityReadOnly, "20", true)
	s.Register(deviceData, types.Variable{Name: "BytesPerMessage", Instance: "GetReport"}, intChar("B"), types.MutabilityReadOnly, "65536", true)
	s.Register(deviceData, types.Variable{Name: "BytesPerMessage", Instance: "GetVariables"}, intChar("B"), types.MutabilityReadOnly, "65536", true)

	custom := types.Component{Name: CtrlrCustomization}
	s.Register(custom, types.Variable{Name: "TriggerAllConnectors"}, boolChar(), types.MutabilityReadWrite, "false", false)

	monitoring := types.Component{Name: CtrlrMonitoring}
	s.Register(monitoring, types.Variable{Name: "Enabled"}, boolChar(), types.MutabilityReadWrite, "true", false)
	s.Register(monitoring, types.Variable{Name: "ItemsPerMessage", Instance: "SetVariableMonitoring"}, intChar(""),
		types.MutabilityReadOnly, "20", true)
	s.Register(monitoring, types.Variable{Name: "BytesPerMessage", Instance: "SetVariableMonitoring"}, intChar("B"),
		types.MutabilityReadOnly, "65536", true)

	for evseId := 1; evseId <= conf.Station.EvseCount; evseId++ {
		evse := types.Component{Name: ComponentEVSE, EVSE: &types.EVSE{Id: evseId}}
		s.Register(evse, types.Variable{Name: "Available"}, boolChar(), types.MutabilityReadOnly, "true", true)
		s.Register(evse, types.Variable{Name: "AvailabilityState"}, stringChar(), types.MutabilityReadOnly, "Available", true)
		s.Register(evse, types.Variable{Name: "Power"}, entity.VariableCharacteristics{
			DataType: string(types.DataTypeDecimal), Unit: "W", SupportsMonitoring: true,
			MaxLimit: floatPtr(22000)}, types.MutabilityReadOnly, "0", true)
		s.Register(evse, types.Variable{Name: "SupplyPhases"}, intChar(""), types.MutabilityReadOnly, "3", true)
		for connectorId := 1; connectorId <= conf.Station.ConnectorsPerEvse; connectorId++ {
			id := connectorId
			connector := types.Component{Name: ComponentConnector, EVSE: &types.EVSE{Id: evseId, ConnectorId: &id}}
			s.Register(connector, types.Variable{Name: "Available"}, boolChar(), types.MutabilityReadOnly, "true", true)
			s.Register(connector, types.Variable{Name: "AvailabilityState"}, stringChar(), types.MutabilityReadOnly, "Available", true)
			s.Register(connector, types.Variable{Name: "ConnectorType"}, stringChar(), types.MutabilityReadOnly, "cType2", true)
			s.Register(connector, types.Variable{Name: "SupplyPhases"}, intChar(""), types.MutabilityReadOnly, "3", true)
		}
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
