package internal

import "evcp/entity"

type Data interface{}

// Database is the persistent document store behind the protocol engine.
// All methods are safe for concurrent use; each call owns its connection.
type Database interface {
	WriteLogMessage(data Data) error
	ReadLog() (interface{}, error)

	ReadVariables() ([]*entity.VariableEntry, error)
	SaveVariable(entry *entity.VariableEntry) error
	ReadMonitors() ([]*entity.MonitorEntry, error)
	SaveMonitor(monitor *entity.MonitorEntry) error
	DeleteMonitor(id int) error

	WriteTransaction(record *entity.TransactionRecord) error
	UpdateTransaction(record *entity.TransactionRecord) error
	GetOpenTransactions() ([]*entity.TransactionRecord, error)

	ReadLocalList() (*entity.LocalList, error)
	SaveLocalList(list *entity.LocalList) error

	ReadAuthCache() ([]*entity.AuthCacheEntry, error)
	SaveCacheEntry(entry *entity.AuthCacheEntry) error
	DeleteCacheEntry(idToken string) error
	ClearAuthCache() error

	ReadChargingProfiles() ([]*entity.ProfileRecord, error)
	SaveChargingProfile(record *entity.ProfileRecord) error
	DeleteChargingProfile(evseId int, profileId int) error

	ReadDisplayMessages() ([]*entity.DisplayMessageRecord, error)
	SaveDisplayMessage(record *entity.DisplayMessageRecord) error
	DeleteDisplayMessage(id int) error

	WriteError(data *entity.ErrorData) error
	GetTodayErrorCount() ([]*entity.ErrorCounter, error)
}
