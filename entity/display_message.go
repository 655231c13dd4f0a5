package entity

import "time"

type DisplayMessageRecord struct {
	Id            int        `json:"id" bson:"message_id"`
	Priority      string     `json:"priority" bson:"priority"`
	State         string     `json:"state,omitempty" bson:"state,omitempty"`
	Format        string     `json:"format" bson:"format"`
	Language      string     `json:"language,omitempty" bson:"language,omitempty"`
	Content       string     `json:"content" bson:"content"`
	TransactionId string     `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	StartDateTime *time.Time `json:"start_date_time,omitempty" bson:"start_date_time,omitempty"`
	EndDateTime   *time.Time `json:"end_date_time,omitempty" bson:"end_date_time,omitempty"`
}
