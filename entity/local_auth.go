package entity

import "time"

type LocalListEntry struct {
	IdToken      string     `json:"id_token" bson:"id_token"`
	IdTokenType  string     `json:"id_token_type" bson:"id_token_type"`
	Status       string     `json:"status" bson:"status"`
	GroupIdToken string     `json:"group_id_token,omitempty" bson:"group_id_token,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
}

type LocalList struct {
	Version int              `json:"version" bson:"version"`
	Entries []LocalListEntry `json:"entries" bson:"entries"`
}

type AuthCacheEntry struct {
	IdToken      string     `json:"id_token" bson:"id_token"`
	IdTokenType  string     `json:"id_token_type" bson:"id_token_type"`
	Status       string     `json:"status" bson:"status"`
	GroupIdToken string     `json:"group_id_token,omitempty" bson:"group_id_token,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
	CachedAt     time.Time  `json:"cached_at" bson:"cached_at"`
	LastUsed     time.Time  `json:"last_used" bson:"last_used"`
}
