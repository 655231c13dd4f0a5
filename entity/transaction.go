package entity

import "time"

// TransactionRecord is the persisted header of a charging transaction.
// Events are appended to the message store separately, keyed by seqNo.
type TransactionRecord struct {
	TransactionId string     `json:"transaction_id" bson:"transaction_id"`
	EvseId        int        `json:"evse_id" bson:"evse_id"`
	ConnectorId   int        `json:"connector_id" bson:"connector_id"`
	IdToken       string     `json:"id_token,omitempty" bson:"id_token,omitempty"`
	IdTokenType   string     `json:"id_token_type,omitempty" bson:"id_token_type,omitempty"`
	GroupIdToken  string     `json:"group_id_token,omitempty" bson:"group_id_token,omitempty"`
	RemoteStartId *int       `json:"remote_start_id,omitempty" bson:"remote_start_id,omitempty"`
	ChargingState string     `json:"charging_state" bson:"charging_state"`
	SeqNo         int        `json:"seq_no" bson:"seq_no"`
	StartedAt     time.Time  `json:"started_at" bson:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	StoppedReason string     `json:"stopped_reason,omitempty" bson:"stopped_reason,omitempty"`
	MeterStart    float64    `json:"meter_start" bson:"meter_start"`
	MeterStop     *float64   `json:"meter_stop,omitempty" bson:"meter_stop,omitempty"`
	Offline       bool       `json:"offline" bson:"offline"`
	Finished      bool       `json:"finished" bson:"finished"`
}
