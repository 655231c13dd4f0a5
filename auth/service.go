package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"evcp/devicemodel"
	"evcp/entity"
	"evcp/internal"
	"evcp/ocpp/authorization"
	"evcp/ocpp/types"
	"evcp/pki"
)

const defaultCacheLifetime = 86400

type Database interface {
	ReadLocalList() (*entity.LocalList, error)
	SaveLocalList(list *entity.LocalList) error
	ReadAuthCache() ([]*entity.AuthCacheEntry, error)
	SaveCacheEntry(entry *entity.AuthCacheEntry) error
	DeleteCacheEntry(idToken string) error
	ClearAuthCache() error
}

// Settings reads controller variables from the device model.
type Settings interface {
	BoolValue(componentName, variableName string) bool
	IntValue(componentName, variableName string, fallback int) int
	SetInternal(componentName, variableName, value string)
}

// Remote sends an Authorize request to the CSMS and waits for the verdict.
type Remote interface {
	Authorize(request *authorization.AuthorizeRequest) (*authorization.AuthorizeResponse, error)
}

// Certificates validates EV contract certificate chains for Plug & Charge.
type Certificates interface {
	ContractOCSPData(chainPem string) ([]types.OCSPRequestData, error)
	ValidateContract(chainPem string) error
}

// Service decides whether an id token may charge. The order is fixed:
// local list first, then the authorization cache, then the CSMS. Offline,
// the local sources alone decide.
type Service struct {
	mu           sync.Mutex
	db           Database
	settings     Settings
	remote       Remote
	logger       internal.LogHandler
	localList    *entity.LocalList
	cache        map[string]*entity.AuthCacheEntry
	cacheCap     int
	certificates Certificates
}

func NewService(db Database, settings Settings, remote Remote, logger internal.LogHandler) *Service {
	return &Service{
		db:       db,
		settings: settings,
		remote:   remote,
		logger:   logger,
		localList: &entity.LocalList{
			Version: 0,
		},
		cache:    make(map[string]*entity.AuthCacheEntry),
		cacheCap: 1000,
	}
}

func (s *Service) Load() error {
	if s.db == nil {
		return nil
	}
	list, err := s.db.ReadLocalList()
	if err != nil {
		return err
	}
	entries, err := s.db.ReadAuthCache()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.localList = list
	for _, entry := range entries {
		s.cache[cacheKey(entry.IdToken, entry.IdTokenType)] = entry
	}
	s.mu.Unlock()
	s.settings.SetInternal(devicemodel.CtrlrLocalAuthList, "Entries", fmt.Sprintf("%d", len(list.Entries)))
	return nil
}

func cacheKey(idToken, idTokenType string) string {
	return idTokenType + ":" + idToken
}

// SetCertificateStore attaches the certificate store used for contract
// certificate validation.
func (s *Service) SetCertificateStore(certificates Certificates) {
	s.certificates = certificates
}

// Authorize runs the authorization pipeline for the given token. With
// online=false the CSMS step is skipped and the offline rules apply.
func (s *Service) Authorize(idToken types.IdToken, online bool) *types.IdTokenInfo {
	if idToken.Type == types.IdTokenTypeNoAuthorization {
		return types.NewIdTokenInfo(types.AuthorizationStatusAccepted)
	}

	localEntry := s.localListLookup(idToken)

	// a matching local list entry decides without asking the CSMS
	if localEntry != nil {
		if !online && !s.settings.BoolValue(devicemodel.CtrlrAuth, "LocalAuthorizeOffline") {
			return types.NewIdTokenInfo(types.AuthorizationStatusInvalid)
		}
		return localEntryInfo(localEntry)
	}

	if s.settings.BoolValue(devicemodel.CtrlrAuth, "LocalPreAuthorize") || !online {
		if info := s.cacheLookup(idToken); info != nil {
			return info
		}
	}

	if online {
		response, err := s.remote.Authorize(authorization.NewAuthorizeRequest(idToken))
		if err != nil {
			s.logger.Warn(fmt.Sprintf("authorize %s failed: %s", idToken.Type, err))
			return s.offlineVerdict(idToken, localEntry)
		}
		s.cacheStore(idToken, &response.IdTokenInfo)
		return &response.IdTokenInfo
	}
	return s.offlineVerdict(idToken, localEntry)
}

// AuthorizeContract runs the pipeline for an id token backed by an
// ISO 15118 contract certificate chain. Online the chain hash data goes
// along with the request and the certificate status in the response is
// honored; offline the chain is validated against the installed roots.
func (s *Service) AuthorizeContract(idToken types.IdToken, contractChain string, online bool) *types.IdTokenInfo {
	if contractChain == "" {
		return s.Authorize(idToken, online)
	}

	localEntry := s.localListLookup(idToken)
	if localEntry != nil {
		if !online && !s.settings.BoolValue(devicemodel.CtrlrAuth, "LocalAuthorizeOffline") {
			return types.NewIdTokenInfo(types.AuthorizationStatusInvalid)
		}
		return localEntryInfo(localEntry)
	}

	if !online {
		return s.offlineContractVerdict(idToken, contractChain)
	}

	request := authorization.NewAuthorizeRequest(idToken)
	if s.certificates != nil {
		hashData, err := s.certificates.ContractOCSPData(contractChain)
		if err == nil {
			request.Iso15118CertificateHashData = hashData
		} else {
			request.Certificate = contractChain
		}
	} else {
		request.Certificate = contractChain
	}

	response, err := s.remote.Authorize(request)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("authorize %s failed: %s", idToken.Type, err))
		return s.offlineContractVerdict(idToken, contractChain)
	}
	if response.CertificateStatus != "" && response.CertificateStatus != authorization.CertificateStatusAccepted {
		if response.CertificateStatus == authorization.CertificateStatusCertificateExpired {
			return types.NewIdTokenInfo(types.AuthorizationStatusExpired)
		}
		return types.NewIdTokenInfo(types.AuthorizationStatusInvalid)
	}
	s.cacheStore(idToken, &response.IdTokenInfo)
	return &response.IdTokenInfo
}

// offlineContractVerdict validates the chain locally when the CSMS
// cannot be asked.
func (s *Service) offlineContractVerdict(idToken types.IdToken, contractChain string) *types.IdTokenInfo {
	if s.certificates == nil || !s.settings.BoolValue(devicemodel.CtrlrISO15118, "ContractValidationOffline") {
		return s.offlineVerdict(idToken, nil)
	}
	err := s.certificates.ValidateContract(contractChain)
	switch {
	case err == nil:
		return types.NewIdTokenInfo(types.AuthorizationStatusAccepted)
	case errors.Is(err, pki.ErrContractExpired):
		return types.NewIdTokenInfo(types.AuthorizationStatusExpired)
	default:
		return types.NewIdTokenInfo(types.AuthorizationStatusInvalid)
	}
}

// offlineVerdict applies the offline rules when the CSMS cannot decide.
func (s *Service) offlineVerdict(idToken types.IdToken, localEntry *entity.LocalListEntry) *types.IdTokenInfo {
	if localEntry != nil && s.settings.BoolValue(devicemodel.CtrlrAuth, "LocalAuthorizeOffline") {
		return localEntryInfo(localEntry)
	}
	if info := s.cacheLookup(idToken); info != nil {
		return info
	}
	if s.settings.BoolValue(devicemodel.CtrlrAuth, "OfflineTxForUnknownIdEnabled") {
		return types.NewIdTokenInfo(types.AuthorizationStatusAccepted)
	}
	return types.NewIdTokenInfo(types.AuthorizationStatusUnknown)
}

func (s *Service) localListLookup(idToken types.IdToken) *entity.LocalListEntry {
	if !s.settings.BoolValue(devicemodel.CtrlrLocalAuthList, "Enabled") {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.localList.Entries {
		entry := &s.localList.Entries[i]
		if entry.IdToken == idToken.IdToken && entry.IdTokenType == string(idToken.Type) {
			return entry
		}
	}
	return nil
}

func localEntryInfo(entry *entity.LocalListEntry) *types.IdTokenInfo {
	if entry.ExpiryDate != nil && time.Now().After(*entry.ExpiryDate) {
		return types.NewIdTokenInfo(types.AuthorizationStatusExpired)
	}
	info := types.NewIdTokenInfo(types.AuthorizationStatus(entry.Status))
	if entry.GroupIdToken != "" {
		info.GroupIdToken = &types.GroupIdToken{IdToken: entry.GroupIdToken, Type: types.IdTokenTypeCentral}
	}
	return info
}

func (s *Service) cacheLookup(idToken types.IdToken) *types.IdTokenInfo {
	if !s.settings.BoolValue(devicemodel.CtrlrAuthCache, "Enabled") {
		return nil
	}
	lifetime := s.settings.IntValue(devicemodel.CtrlrAuthCache, "LifeTime", defaultCacheLifetime)
	key := cacheKey(idToken.IdToken, string(idToken.Type))

	s.mu.Lock()
	entry, ok := s.cache[key]
	if ok && time.Since(entry.CachedAt) > time.Duration(lifetime)*time.Second {
		delete(s.cache, key)
		ok = false
	}
	if ok {
		entry.LastUsed = time.Now().UTC()
	}
	s.mu.Unlock()

	if !ok {
		if entry != nil && s.db != nil {
			_ = s.db.DeleteCacheEntry(idToken.IdToken)
		}
		return nil
	}
	if entry.ExpiryDate != nil && time.Now().After(*entry.ExpiryDate) {
		return types.NewIdTokenInfo(types.AuthorizationStatusExpired)
	}
	info := types.NewIdTokenInfo(types.AuthorizationStatus(entry.Status))
	if entry.GroupIdToken != "" {
		info.GroupIdToken = &types.GroupIdToken{IdToken: entry.GroupIdToken, Type: types.IdTokenTypeCentral}
	}
	return info
}

// cacheStore records a CSMS verdict for later offline use. Entries for
// tokens on the local list are not cached, the list wins anyway.
func (s *Service) cacheStore(idToken types.IdToken, info *types.IdTokenInfo) {
	if !s.settings.BoolValue(devicemodel.CtrlrAuthCache, "Enabled") {
		return
	}
	if s.localListLookup(idToken) != nil {
		return
	}
	now := time.Now().UTC()
	entry := &entity.AuthCacheEntry{
		IdToken:     idToken.IdToken,
		IdTokenType: string(idToken.Type),
		Status:      string(info.Status),
		CachedAt:    now,
		LastUsed:    now,
	}
	if info.GroupIdToken != nil {
		entry.GroupIdToken = info.GroupIdToken.IdToken
	}
	if info.CacheExpiryDateTime != nil {
		expiry := info.CacheExpiryDateTime.Time
		entry.ExpiryDate = &expiry
	}

	s.mu.Lock()
	s.cache[cacheKey(entry.IdToken, entry.IdTokenType)] = entry
	evicted := s.evictLocked()
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.SaveCacheEntry(entry); err != nil {
			s.logger.Error("saving auth cache entry", err)
		}
		for _, idToken := range evicted {
			_ = s.db.DeleteCacheEntry(idToken)
		}
	}
}

// evictLocked drops least recently used entries over capacity.
func (s *Service) evictLocked() []string {
	var evicted []string
	for len(s.cache) > s.cacheCap {
		var oldestKey string
		var oldest time.Time
		for key, entry := range s.cache {
			if oldestKey == "" || entry.LastUsed.Before(oldest) {
				oldestKey = key
				oldest = entry.LastUsed
			}
		}
		evicted = append(evicted, s.cache[oldestKey].IdToken)
		delete(s.cache, oldestKey)
	}
	return evicted
}

// ClearCache empties the authorization cache, for the ClearCache request.
func (s *Service) ClearCache() error {
	s.mu.Lock()
	s.cache = make(map[string]*entity.AuthCacheEntry)
	s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.ClearAuthCache()
}

// ContractId formats an EV contract certificate identity the way it
// appears in authorization requests.
func ContractId(mac string) string {
	cleaned := strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(mac))
	return "VID:" + cleaned
}
