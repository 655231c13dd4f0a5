package entity

import (
	"time"

	"evcp/ocpp/types"
)

// ProfileRecord holds an installed charging profile together with the EVSE
// it was installed on and the installation instant used for tie-breaking.
type ProfileRecord struct {
	EvseId      int                   `json:"evse_id" bson:"evse_id"`
	Profile     types.ChargingProfile `json:"profile" bson:"profile"`
	InstalledAt time.Time             `json:"installed_at" bson:"installed_at"`
}
