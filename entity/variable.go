package entity

// VariableEntry is one persisted device model row: a component+variable pair
// with its characteristics and up to four attributes.
type VariableEntry struct {
	ComponentName     string                  `json:"component_name" bson:"component_name"`
	ComponentInstance string                  `json:"component_instance,omitempty" bson:"component_instance,omitempty"`
	EvseId            int                     `json:"evse_id" bson:"evse_id"`
	ConnectorId       int                     `json:"connector_id" bson:"connector_id"`
	VariableName      string                  `json:"variable_name" bson:"variable_name"`
	VariableInstance  string                  `json:"variable_instance,omitempty" bson:"variable_instance,omitempty"`
	Required          bool                    `json:"required" bson:"required"`
	Characteristics   VariableCharacteristics `json:"characteristics" bson:"characteristics"`
	Attributes        []VariableAttribute     `json:"attributes" bson:"attributes"`
}

type VariableCharacteristics struct {
	DataType           string   `json:"data_type" bson:"data_type"`
	MinLimit           *float64 `json:"min_limit,omitempty" bson:"min_limit,omitempty"`
	MaxLimit           *float64 `json:"max_limit,omitempty" bson:"max_limit,omitempty"`
	Unit               string   `json:"unit,omitempty" bson:"unit,omitempty"`
	ValuesList         string   `json:"values_list,omitempty" bson:"values_list,omitempty"`
	SupportsMonitoring bool     `json:"supports_monitoring" bson:"supports_monitoring"`
}

type VariableAttribute struct {
	Type       string `json:"type" bson:"type"`
	Value      string `json:"value" bson:"value"`
	Mutability string `json:"mutability" bson:"mutability"`
	Persistent bool   `json:"persistent" bson:"persistent"`
	Constant   bool   `json:"constant" bson:"constant"`
}

// MonitorEntry is a persisted variable monitor.
type MonitorEntry struct {
	Id                int     `json:"id" bson:"monitor_id"`
	ComponentName     string  `json:"component_name" bson:"component_name"`
	ComponentInstance string  `json:"component_instance,omitempty" bson:"component_instance,omitempty"`
	EvseId            int     `json:"evse_id" bson:"evse_id"`
	VariableName      string  `json:"variable_name" bson:"variable_name"`
	VariableInstance  string  `json:"variable_instance,omitempty" bson:"variable_instance,omitempty"`
	Type              string  `json:"type" bson:"type"`
	Value             float64 `json:"value" bson:"value"`
	Severity          int     `json:"severity" bson:"severity"`
	Transaction       bool    `json:"transaction" bson:"transaction"`
}
