package entity

import "time"

// Severity mirrors the device model severity table: 0 is Danger, 9 is Debug.
const (
	SeverityDanger        = 0
	SeverityHardwareFault = 1
	SeverityError         = 3
	SeverityAlert         = 4
	SeverityWarning       = 5
	SeverityInfo          = 7
	SeverityDebug         = 9
)

type ErrorData struct {
	Type      string    `json:"type" bson:"type"`
	SubType   string    `json:"sub_type" bson:"sub_type"`
	Severity  int       `json:"severity" bson:"severity"`
	Message   string    `json:"message" bson:"message"`
	Origin    string    `json:"origin" bson:"origin"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type ErrorCounterId struct {
	Origin    string `json:"origin" bson:"origin"`
	ErrorType string `json:"error_type" bson:"error_type"`
}

type ErrorCounter struct {
	ID    ErrorCounterId `json:"id" bson:"_id"`
	Count int            `json:"count" bson:"count"`
}
