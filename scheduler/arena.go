package scheduler

import (
	"fmt"
	"sync"
	"time"

	"evcp/entity"
	"evcp/internal"
	"evcp/ocpp/smartcharging"
	"evcp/ocpp/types"
)

type Database interface {
	ReadChargingProfiles() ([]*entity.ProfileRecord, error)
	SaveChargingProfile(record *entity.ProfileRecord) error
	DeleteChargingProfile(evseId int, profileId int) error
}

// Sessions exposes the transaction state the profile rules depend on.
type Sessions interface {
	HasActiveTransaction(evseId int) bool
	TransactionId(evseId int) (string, bool)
	TransactionStart(evseId int) (time.Time, bool)
}

// Settings reads the supply characteristics from the device model.
type Settings interface {
	IntValue(componentName, variableName string, fallback int) int
}

// Arena holds the installed charging profiles and answers composite
// schedule queries over them.
type Arena struct {
	mu       sync.Mutex
	db       Database
	settings Settings
	sessions Sessions
	logger   internal.LogHandler
	profiles []*entity.ProfileRecord
}

func NewArena(db Database, settings Settings, sessions Sessions, logger internal.LogHandler) *Arena {
	return &Arena{db: db, settings: settings, sessions: sessions, logger: logger}
}

func (a *Arena) Load() error {
	if a.db == nil {
		return nil
	}
	records, err := a.db.ReadChargingProfiles()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.profiles = records
	a.mu.Unlock()
	return nil
}

// Install validates and stores a profile from SetChargingProfile. A
// profile with the same id, or the same (evseId, purpose, stackLevel)
// slot, replaces the previous occupant.
func (a *Arena) Install(evseId int, profile *types.ChargingProfile) (smartcharging.ChargingProfileStatus, string) {
	if reason := validateProfile(evseId, profile); reason != "" {
		return smartcharging.ChargingProfileStatusRejected, reason
	}
	if profile.ChargingProfilePurpose == types.ChargingProfilePurposeTxProfile {
		transactionId, ok := a.sessions.TransactionId(evseId)
		if !ok {
			return smartcharging.ChargingProfileStatusRejected, "NoActiveTransaction"
		}
		if profile.TransactionId == "" || profile.TransactionId != transactionId {
			return smartcharging.ChargingProfileStatusRejected, "TxNotFound"
		}
	}

	record := &entity.ProfileRecord{
		EvseId:      evseId,
		Profile:     *profile,
		InstalledAt: time.Now().UTC(),
	}

	a.mu.Lock()
	var kept []*entity.ProfileRecord
	var dropped []*entity.ProfileRecord
	for _, existing := range a.profiles {
		sameId := existing.Profile.Id == profile.Id
		sameSlot := existing.EvseId == evseId &&
			existing.Profile.ChargingProfilePurpose == profile.ChargingProfilePurpose &&
			existing.Profile.StackLevel == profile.StackLevel
		if sameId || sameSlot {
			dropped = append(dropped, existing)
			continue
		}
		kept = append(kept, existing)
	}
	a.profiles = append(kept, record)
	a.mu.Unlock()

	if a.db != nil {
		for _, old := range dropped {
			_ = a.db.DeleteChargingProfile(old.EvseId, old.Profile.Id)
		}
		if err := a.db.SaveChargingProfile(record); err != nil {
			a.logger.Error("persisting charging profile", err)
		}
	}
	a.logger.FeatureEvent(smartcharging.SetChargingProfileFeatureName, "",
		fmt.Sprintf("profile %d installed on evse %d", profile.Id, evseId))
	return smartcharging.ChargingProfileStatusAccepted, ""
}

func validateProfile(evseId int, profile *types.ChargingProfile) string {
	switch profile.ChargingProfilePurpose {
	case types.ChargingProfilePurposeChargePointMaxProfile:
		if evseId != 0 {
			return "InvalidEvse"
		}
	case types.ChargingProfilePurposeTxProfile:
		if evseId == 0 {
			return "InvalidEvse"
		}
	case types.ChargingProfilePurposeChargingStationExternalConstraints:
		return "NotSupported"
	}
	if profile.ChargingProfileKind == types.ChargingProfileKindRecurring && profile.RecurrencyKind == "" {
		return "MissingRecurrencyKind"
	}
	for _, schedule := range profile.ChargingSchedule {
		if profile.ChargingProfileKind != types.ChargingProfileKindRelative && schedule.StartSchedule == nil {
			return "MissingStartSchedule"
		}
		if len(schedule.ChargingSchedulePeriod) == 0 {
			return "EmptySchedule"
		}
		if schedule.ChargingSchedulePeriod[0].StartPeriod != 0 {
			return "InvalidSchedule"
		}
		for i := 1; i < len(schedule.ChargingSchedulePeriod); i++ {
			if schedule.ChargingSchedulePeriod[i].StartPeriod <= schedule.ChargingSchedulePeriod[i-1].StartPeriod {
				return "InvalidSchedule"
			}
		}
	}
	return ""
}

// Clear removes profiles by id or criteria for ClearChargingProfile.
func (a *Arena) Clear(request *smartcharging.ClearChargingProfileRequest) smartcharging.ClearChargingProfileStatus {
	a.mu.Lock()
	var kept []*entity.ProfileRecord
	var dropped []*entity.ProfileRecord
	for _, record := range a.profiles {
		if clearMatches(record, request) {
			dropped = append(dropped, record)
		} else {
			kept = append(kept, record)
		}
	}
	a.profiles = kept
	a.mu.Unlock()

	if len(dropped) == 0 {
		return smartcharging.ClearChargingProfileStatusUnknown
	}
	if a.db != nil {
		for _, record := range dropped {
			_ = a.db.DeleteChargingProfile(record.EvseId, record.Profile.Id)
		}
	}
	return smartcharging.ClearChargingProfileStatusAccepted
}

func clearMatches(record *entity.ProfileRecord, request *smartcharging.ClearChargingProfileRequest) bool {
	if request.ChargingProfileId != nil {
		return record.Profile.Id == *request.ChargingProfileId
	}
	criteria := request.ChargingProfileCriteria
	if criteria == nil {
		return record.Profile.ChargingProfilePurpose != types.ChargingProfilePurposeChargingStationExternalConstraints
	}
	if criteria.EvseId != nil && record.EvseId != *criteria.EvseId {
		return false
	}
	if criteria.ChargingProfilePurpose != "" && record.Profile.ChargingProfilePurpose != criteria.ChargingProfilePurpose {
		return false
	}
	if criteria.StackLevel != nil && record.Profile.StackLevel != *criteria.StackLevel {
		return false
	}
	return true
}

// Matching lists installed profiles per EVSE for GetChargingProfiles.
func (a *Arena) Matching(evseId *int, criteria *smartcharging.ChargingProfileCriterion) map[int][]types.ChargingProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make(map[int][]types.ChargingProfile)
	for _, record := range a.profiles {
		if evseId != nil && record.EvseId != *evseId {
			continue
		}
		if criteria != nil {
			if criteria.ChargingProfilePurpose != "" && record.Profile.ChargingProfilePurpose != criteria.ChargingProfilePurpose {
				continue
			}
			if criteria.StackLevel != nil && record.Profile.StackLevel != *criteria.StackLevel {
				continue
			}
			if len(criteria.ChargingProfileId) > 0 && !containsInt(criteria.ChargingProfileId, record.Profile.Id) {
				continue
			}
		}
		result[record.EvseId] = append(result[record.EvseId], record.Profile)
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

// DropTransactionProfiles removes TxProfiles bound to a finished
// transaction.
func (a *Arena) DropTransactionProfiles(transactionId string) {
	a.mu.Lock()
	var kept []*entity.ProfileRecord
	var dropped []*entity.ProfileRecord
	for _, record := range a.profiles {
		if record.Profile.ChargingProfilePurpose == types.ChargingProfilePurposeTxProfile &&
			record.Profile.TransactionId == transactionId {
			dropped = append(dropped, record)
			continue
		}
		kept = append(kept, record)
	}
	a.profiles = kept
	a.mu.Unlock()
	if a.db == nil {
		return
	}
	for _, record := range dropped {
		_ = a.db.DeleteChargingProfile(record.EvseId, record.Profile.Id)
	}
}
