package auth

import (
	"fmt"

	"evcp/devicemodel"
	"evcp/entity"
	"evcp/ocpp/localauth"
	"evcp/ocpp/types"
)

// ListVersion reports the installed local list version, 0 when the list
// is disabled or empty.
func (s *Service) ListVersion() int {
	if !s.settings.BoolValue(devicemodel.CtrlrLocalAuthList, "Enabled") {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localList.Version
}

// ApplyLocalList installs a SendLocalList update. Version numbers only
// move forward; a differential update against a stale version is rejected
// with VersionMismatch.
func (s *Service) ApplyLocalList(request *localauth.SendLocalListRequest) localauth.SendLocalListStatus {
	if !s.settings.BoolValue(devicemodel.CtrlrLocalAuthList, "Enabled") {
		return localauth.UpdateStatusFailed
	}
	if request.VersionNumber <= 0 {
		return localauth.UpdateStatusFailed
	}
	if hasDuplicates(request.LocalAuthorizationList) {
		return localauth.UpdateStatusFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch request.UpdateType {
	case localauth.UpdateTypeFull:
		entries := make([]entity.LocalListEntry, 0, len(request.LocalAuthorizationList))
		for _, data := range request.LocalAuthorizationList {
			if data.IdTokenInfo == nil {
				return localauth.UpdateStatusFailed
			}
			entries = append(entries, listEntry(data))
		}
		s.localList = &entity.LocalList{Version: request.VersionNumber, Entries: entries}
	case localauth.UpdateTypeDifferential:
		if request.VersionNumber <= s.localList.Version {
			return localauth.UpdateStatusVersionMismatch
		}
		for _, data := range request.LocalAuthorizationList {
			if data.IdTokenInfo == nil {
				s.removeEntryLocked(data.IdToken)
			} else {
				s.upsertEntryLocked(listEntry(data))
			}
		}
		s.localList.Version = request.VersionNumber
	default:
		return localauth.UpdateStatusFailed
	}

	if s.db != nil {
		if err := s.db.SaveLocalList(s.localList); err != nil {
			s.logger.Error("saving local list", err)
			return localauth.UpdateStatusFailed
		}
	}
	s.settings.SetInternal(devicemodel.CtrlrLocalAuthList, "Entries", fmt.Sprintf("%d", len(s.localList.Entries)))
	return localauth.UpdateStatusAccepted
}

func hasDuplicates(list []localauth.AuthorizationData) bool {
	seen := make(map[string]bool, len(list))
	for _, data := range list {
		key := cacheKey(data.IdToken.IdToken, string(data.IdToken.Type))
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

func listEntry(data localauth.AuthorizationData) entity.LocalListEntry {
	entry := entity.LocalListEntry{
		IdToken:     data.IdToken.IdToken,
		IdTokenType: string(data.IdToken.Type),
		Status:      string(data.IdTokenInfo.Status),
	}
	if data.IdTokenInfo.GroupIdToken != nil {
		entry.GroupIdToken = data.IdTokenInfo.GroupIdToken.IdToken
	}
	if data.IdTokenInfo.CacheExpiryDateTime != nil {
		expiry := data.IdTokenInfo.CacheExpiryDateTime.Time
		entry.ExpiryDate = &expiry
	}
	return entry
}

func (s *Service) upsertEntryLocked(entry entity.LocalListEntry) {
	for i := range s.localList.Entries {
		existing := &s.localList.Entries[i]
		if existing.IdToken == entry.IdToken && existing.IdTokenType == entry.IdTokenType {
			*existing = entry
			return
		}
	}
	s.localList.Entries = append(s.localList.Entries, entry)
}

func (s *Service) removeEntryLocked(idToken types.IdToken) {
	for i := range s.localList.Entries {
		entry := &s.localList.Entries[i]
		if entry.IdToken == idToken.IdToken && entry.IdTokenType == string(idToken.Type) {
			s.localList.Entries = append(s.localList.Entries[:i], s.localList.Entries[i+1:]...)
			return
		}
	}
}
