package tariff

import (
	"strings"
	"sync"

	"evcp/devicemodel"
	"evcp/entity"
	"evcp/internal"
	"evcp/ocpp/display"
	"evcp/ocpp/types"
)

type Database interface {
	ReadDisplayMessages() ([]*entity.DisplayMessageRecord, error)
	SaveDisplayMessage(record *entity.DisplayMessageRecord) error
	DeleteDisplayMessage(id int) error
}

// Settings reads DisplayMessageCtrlr variables.
type Settings interface {
	Value(componentName, variableName string) (string, bool)
	IntValue(componentName, variableName string, fallback int) int
	BoolValue(componentName, variableName string) bool
}

// Sessions answers whether a transaction id is currently running.
type Sessions interface {
	KnownTransaction(transactionId string) bool
}

// DisplayStore keeps the CSMS-managed display messages and validates
// incoming ones against what the display supports.
type DisplayStore struct {
	mu       sync.Mutex
	db       Database
	settings Settings
	sessions Sessions
	logger   internal.LogHandler
	messages map[int]*entity.DisplayMessageRecord
}

func NewDisplayStore(db Database, settings Settings, sessions Sessions, logger internal.LogHandler) *DisplayStore {
	return &DisplayStore{
		db:       db,
		settings: settings,
		sessions: sessions,
		logger:   logger,
		messages: make(map[int]*entity.DisplayMessageRecord),
	}
}

func (d *DisplayStore) Load() error {
	if d.db == nil {
		return nil
	}
	records, err := d.db.ReadDisplayMessages()
	if err != nil {
		return err
	}
	d.mu.Lock()
	for _, record := range records {
		d.messages[record.Id] = record
	}
	d.mu.Unlock()
	return nil
}

func (d *DisplayStore) supported(variable, value string) bool {
	configured, ok := d.settings.Value(devicemodel.CtrlrDisplay, variable)
	if !ok {
		return true
	}
	for _, part := range strings.Split(configured, ",") {
		if strings.TrimSpace(part) == value {
			return true
		}
	}
	return false
}

// SetMessage validates and stores a SetDisplayMessage payload.
func (d *DisplayStore) SetMessage(message display.MessageInfo) display.DisplayMessageStatus {
	if !d.settings.BoolValue(devicemodel.CtrlrDisplay, "Enabled") {
		return display.DisplayMessageStatusRejected
	}
	if !d.supported("SupportedFormats", string(message.Message.Format)) {
		return display.DisplayMessageStatusNotSupportedMessageFormat
	}
	if !d.supported("SupportedPriorities", string(message.Priority)) {
		return display.DisplayMessageStatusNotSupportedPriority
	}
	if message.State != "" && !d.supported("SupportedStates", string(message.State)) {
		return display.DisplayMessageStatusNotSupportedState
	}
	if message.TransactionId != "" && !d.sessions.KnownTransaction(message.TransactionId) {
		return display.DisplayMessageStatusUnknownTransaction
	}

	record := &entity.DisplayMessageRecord{
		Id:            message.Id,
		Priority:      string(message.Priority),
		State:         string(message.State),
		Format:        string(message.Message.Format),
		Language:      message.Message.Language,
		Content:       message.Message.Content,
		TransactionId: message.TransactionId,
	}
	if message.StartDateTime != nil {
		start := message.StartDateTime.Time
		record.StartDateTime = &start
	}
	if message.EndDateTime != nil {
		end := message.EndDateTime.Time
		record.EndDateTime = &end
	}

	d.mu.Lock()
	_, replacing := d.messages[message.Id]
	capacity := d.settings.IntValue(devicemodel.CtrlrDisplay, "DisplayMessages", 10)
	if !replacing && len(d.messages) >= capacity {
		d.mu.Unlock()
		return display.DisplayMessageStatusRejected
	}
	d.messages[message.Id] = record
	d.mu.Unlock()

	if d.db != nil {
		if err := d.db.SaveDisplayMessage(record); err != nil {
			d.logger.Error("saving display message", err)
		}
	}
	return display.DisplayMessageStatusAccepted
}

// Messages filters the stored messages for GetDisplayMessages.
func (d *DisplayStore) Messages(ids []int, priority display.MessagePriority, state display.MessageState) []display.MessageInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []display.MessageInfo
	for _, record := range d.messages {
		if len(ids) > 0 && !containsInt(ids, record.Id) {
			continue
		}
		if priority != "" && string(priority) != record.Priority {
			continue
		}
		if state != "" && string(state) != record.State {
			continue
		}
		result = append(result, messageInfo(record))
	}
	return result
}

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func messageInfo(record *entity.DisplayMessageRecord) display.MessageInfo {
	info := display.MessageInfo{
		Id:            record.Id,
		Priority:      display.MessagePriority(record.Priority),
		State:         display.MessageState(record.State),
		TransactionId: record.TransactionId,
		Message: types.MessageContent{
			Format:   types.MessageFormatType(record.Format),
			Language: record.Language,
			Content:  record.Content,
		},
	}
	if record.StartDateTime != nil {
		info.StartDateTime = types.NewDateTime(*record.StartDateTime)
	}
	if record.EndDateTime != nil {
		info.EndDateTime = types.NewDateTime(*record.EndDateTime)
	}
	return info
}

// ClearMessage removes one message by id.
func (d *DisplayStore) ClearMessage(id int) display.ClearMessageStatus {
	d.mu.Lock()
	_, ok := d.messages[id]
	if ok {
		delete(d.messages, id)
	}
	d.mu.Unlock()
	if !ok {
		return display.ClearMessageStatusUnknown
	}
	if d.db != nil {
		if err := d.db.DeleteDisplayMessage(id); err != nil {
			d.logger.Error("deleting display message", err)
		}
	}
	return display.ClearMessageStatusAccepted
}

// DropTransactionMessages removes messages bound to an ended transaction.
func (d *DisplayStore) DropTransactionMessages(transactionId string) {
	d.mu.Lock()
	var dropped []int
	for id, record := range d.messages {
		if record.TransactionId == transactionId {
			dropped = append(dropped, id)
			delete(d.messages, id)
		}
	}
	d.mu.Unlock()
	if d.db == nil {
		return
	}
	for _, id := range dropped {
		_ = d.db.DeleteDisplayMessage(id)
	}
}
