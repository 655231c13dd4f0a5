package auth

import (
	"testing"

	"evcp/devicemodel"
	"evcp/ocpp/authorization"
	"evcp/ocpp/localauth"
	"evcp/ocpp/types"
	"evcp/pki"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(text string)                     {}
func (nopLogger) Warn(text string)                      {}
func (nopLogger) Error(text string, err error)          {}
func (nopLogger) FeatureEvent(feature, id, text string) {}
func (nopLogger) RawDataEvent(direction, data string)   {}

// fakeSettings is an in-memory stand-in for the device model.
type fakeSettings struct {
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{
		devicemodel.CtrlrLocalAuthList + "/Enabled":      "true",
		devicemodel.CtrlrAuthCache + "/Enabled":          "true",
		devicemodel.CtrlrAuth + "/LocalPreAuthorize":     "true",
		devicemodel.CtrlrAuth + "/LocalAuthorizeOffline": "true",
	}}
}

func (f *fakeSettings) BoolValue(componentName, variableName string) bool {
	return f.values[componentName+"/"+variableName] == "true"
}

func (f *fakeSettings) IntValue(componentName, variableName string, fallback int) int {
	return fallback
}

func (f *fakeSettings) SetInternal(componentName, variableName, value string) {
	f.values[componentName+"/"+variableName] = value
}

type fakeRemote struct {
	status            types.AuthorizationStatus
	certificateStatus authorization.AuthorizeCertificateStatus
	err               error
	calls             int
	lastRequest       *authorization.AuthorizeRequest
}

func (f *fakeRemote) Authorize(request *authorization.AuthorizeRequest) (*authorization.AuthorizeResponse, error) {
	f.calls++
	f.lastRequest = request
	if f.err != nil {
		return nil, f.err
	}
	return &authorization.AuthorizeResponse{
		IdTokenInfo:       *types.NewIdTokenInfo(f.status),
		CertificateStatus: f.certificateStatus,
	}, nil
}

type fakeCertificates struct {
	hashData    []types.OCSPRequestData
	hashErr     error
	validateErr error
}

func (f *fakeCertificates) ContractOCSPData(chainPem string) ([]types.OCSPRequestData, error) {
	return f.hashData, f.hashErr
}

func (f *fakeCertificates) ValidateContract(chainPem string) error {
	return f.validateErr
}

func token(id string) types.IdToken {
	return types.IdToken{IdToken: id, Type: types.IdTokenTypeISO14443}
}

func entry(id string, status types.AuthorizationStatus) localauth.AuthorizationData {
	return localauth.AuthorizationData{
		IdToken:     token(id),
		IdTokenInfo: types.NewIdTokenInfo(status),
	}
}

func newTestService(remote *fakeRemote) (*Service, *fakeSettings) {
	settings := newFakeSettings()
	return NewService(nil, settings, remote, nopLogger{}), settings
}

func TestApplyLocalListFull(t *testing.T) {
	service, _ := newTestService(&fakeRemote{})

	status := service.ApplyLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 3,
		UpdateType:    localauth.UpdateTypeFull,
		LocalAuthorizationList: []localauth.AuthorizationData{
			entry("AA11", types.AuthorizationStatusAccepted),
			entry("BB22", types.AuthorizationStatusBlocked),
		},
	})
	require.Equal(t, localauth.UpdateStatusAccepted, status)
	assert.Equal(t, 3, service.ListVersion())

	info := service.Authorize(token("AA11"), false)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)

	info = service.Authorize(token("BB22"), false)
	assert.Equal(t, types.AuthorizationStatusBlocked, info.Status)
}

func TestApplyLocalListDifferential(t *testing.T) {
	service, _ := newTestService(&fakeRemote{})

	require.Equal(t, localauth.UpdateStatusAccepted, service.ApplyLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 2,
		UpdateType:    localauth.UpdateTypeFull,
		LocalAuthorizationList: []localauth.AuthorizationData{
			entry("AA11", types.AuthorizationStatusAccepted),
			entry("BB22", types.AuthorizationStatusAccepted),
		},
	}))

	// stale version is rejected
	status := service.ApplyLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 2,
		UpdateType:    localauth.UpdateTypeDifferential,
	})
	assert.Equal(t, localauth.UpdateStatusVersionMismatch, status)
	assert.Equal(t, 2, service.ListVersion())

	// remove BB22, add CC33
	status = service.ApplyLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 3,
		UpdateType:    localauth.UpdateTypeDifferential,
		LocalAuthorizationList: []localauth.AuthorizationData{
			{IdToken: token("BB22")},
			entry("CC33", types.AuthorizationStatusAccepted),
		},
	})
	require.Equal(t, localauth.UpdateStatusAccepted, status)
	assert.Equal(t, 3, service.ListVersion())

	assert.Equal(t, types.AuthorizationStatusAccepted, service.Authorize(token("CC33"), false).Status)
	assert.Equal(t, types.AuthorizationStatusUnknown, service.Authorize(token("BB22"), false).Status)
}

func TestApplyLocalListRejectsDuplicates(t *testing.T) {
	service, _ := newTestService(&fakeRemote{})

	status := service.ApplyLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 1,
		UpdateType:    localauth.UpdateTypeFull,
		LocalAuthorizationList: []localauth.AuthorizationData{
			entry("AA11", types.AuthorizationStatusAccepted),
			entry("AA11", types.AuthorizationStatusBlocked),
		},
	})
	assert.Equal(t, localauth.UpdateStatusFailed, status)
}

func TestAuthorizeOnlineCachesVerdict(t *testing.T) {
	remote := &fakeRemote{status: types.AuthorizationStatusAccepted}
	service, _ := newTestService(remote)

	id := faker.UUIDDigit()
	info := service.Authorize(token(id), true)
	require.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Equal(t, 1, remote.calls)

	// offline, the cached verdict answers
	info = service.Authorize(token(id), false)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Equal(t, 1, remote.calls)
}

func TestAuthorizeRemoteFailureFallsBack(t *testing.T) {
	remote := &fakeRemote{err: assert.AnError}
	service, settings := newTestService(remote)

	info := service.Authorize(token("DD44"), true)
	assert.Equal(t, types.AuthorizationStatusUnknown, info.Status)

	settings.SetInternal(devicemodel.CtrlrAuth, "OfflineTxForUnknownIdEnabled", "true")
	info = service.Authorize(token("DD44"), true)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
}

func TestAuthorizeNoAuthorizationToken(t *testing.T) {
	remote := &fakeRemote{}
	service, _ := newTestService(remote)

	info := service.Authorize(types.IdToken{Type: types.IdTokenTypeNoAuthorization}, true)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Zero(t, remote.calls)
}

func TestClearCache(t *testing.T) {
	remote := &fakeRemote{status: types.AuthorizationStatusAccepted}
	service, _ := newTestService(remote)

	service.Authorize(token("EE55"), true)
	require.NoError(t, service.ClearCache())

	// cache is empty, offline lookup falls through to unknown
	info := service.Authorize(token("EE55"), false)
	assert.Equal(t, types.AuthorizationStatusUnknown, info.Status)
}

func TestAuthorizeLocalListOverridesRemote(t *testing.T) {
	remote := &fakeRemote{status: types.AuthorizationStatusBlocked}
	service, settings := newTestService(remote)
	settings.SetInternal(devicemodel.CtrlrAuth, "LocalPreAuthorize", "false")

	require.Equal(t, localauth.UpdateStatusAccepted, service.ApplyLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 1,
		UpdateType:    localauth.UpdateTypeFull,
		LocalAuthorizationList: []localauth.AuthorizationData{
			entry("AA11", types.AuthorizationStatusAccepted),
		},
	}))

	// the list entry decides even when the CSMS would block the token
	info := service.Authorize(token("AA11"), true)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Zero(t, remote.calls)
}

func emaidToken() types.IdToken {
	return types.IdToken{IdToken: "DE-8AA-C12345678-9", Type: types.IdTokenTypeEMAID}
}

const contractChain = "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"

func TestAuthorizeContractAttachesHashData(t *testing.T) {
	remote := &fakeRemote{status: types.AuthorizationStatusAccepted}
	service, _ := newTestService(remote)
	service.SetCertificateStore(&fakeCertificates{hashData: []types.OCSPRequestData{{
		HashAlgorithm:  types.SHA256,
		IssuerNameHash: "aa",
		IssuerKeyHash:  "bb",
		SerialNumber:   "01",
		ResponderURL:   "https://ocsp.example.com",
	}}})

	info := service.AuthorizeContract(emaidToken(), contractChain, true)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	require.NotNil(t, remote.lastRequest)
	require.Len(t, remote.lastRequest.Iso15118CertificateHashData, 1)
	assert.Empty(t, remote.lastRequest.Certificate)
}

func TestAuthorizeContractSendsRawChain(t *testing.T) {
	remote := &fakeRemote{status: types.AuthorizationStatusAccepted}
	service, _ := newTestService(remote)
	service.SetCertificateStore(&fakeCertificates{hashErr: assert.AnError})

	service.AuthorizeContract(emaidToken(), contractChain, true)
	require.NotNil(t, remote.lastRequest)
	assert.Empty(t, remote.lastRequest.Iso15118CertificateHashData)
	assert.Equal(t, contractChain, remote.lastRequest.Certificate)
}

func TestAuthorizeContractCertificateStatus(t *testing.T) {
	remote := &fakeRemote{
		status:            types.AuthorizationStatusAccepted,
		certificateStatus: authorization.CertificateStatusCertificateRevoked,
	}
	service, _ := newTestService(remote)
	service.SetCertificateStore(&fakeCertificates{})

	// a revoked certificate overrides the accepted token verdict
	info := service.AuthorizeContract(emaidToken(), contractChain, true)
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)

	remote.certificateStatus = authorization.CertificateStatusCertificateExpired
	info = service.AuthorizeContract(emaidToken(), contractChain, true)
	assert.Equal(t, types.AuthorizationStatusExpired, info.Status)

	remote.certificateStatus = authorization.CertificateStatusAccepted
	info = service.AuthorizeContract(emaidToken(), contractChain, true)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
}

func TestAuthorizeContractOfflineValidation(t *testing.T) {
	remote := &fakeRemote{}
	service, settings := newTestService(remote)
	settings.SetInternal(devicemodel.CtrlrISO15118, "ContractValidationOffline", "true")
	certificates := &fakeCertificates{}
	service.SetCertificateStore(certificates)

	info := service.AuthorizeContract(emaidToken(), contractChain, false)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Zero(t, remote.calls)

	certificates.validateErr = pki.ErrContractExpired
	info = service.AuthorizeContract(emaidToken(), contractChain, false)
	assert.Equal(t, types.AuthorizationStatusExpired, info.Status)

	certificates.validateErr = pki.ErrContractUntrusted
	info = service.AuthorizeContract(emaidToken(), contractChain, false)
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorizeContractOfflineValidationDisabled(t *testing.T) {
	remote := &fakeRemote{}
	service, _ := newTestService(remote)
	service.SetCertificateStore(&fakeCertificates{})

	info := service.AuthorizeContract(emaidToken(), contractChain, false)
	assert.Equal(t, types.AuthorizationStatusUnknown, info.Status)
	assert.Zero(t, remote.calls)
}

func TestContractId(t *testing.T) {
	assert.Equal(t, "VID:AABBCC010203", ContractId("aa:bb:cc:01:02:03"))
	assert.Equal(t, "VID:AABBCC010203", ContractId("AA-BB-CC-01-02-03"))
}
