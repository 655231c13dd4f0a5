package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"testing"
	"time"

	"evcp/ocpp/security"
	"evcp/ocpp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(text string)                     {}
func (nopLogger) Warn(text string)                      {}
func (nopLogger) Error(text string, err error)          {}
func (nopLogger) FeatureEvent(feature, id, text string) {}
func (nopLogger) RawDataEvent(direction, data string)   {}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(t.TempDir(), "TestOrg", "de", nopLogger{})
	require.NoError(t, store.Open())
	return store
}

type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	pem  string
}

func newTestCA(t *testing.T) *testCA {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1000),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &testCA{
		cert: cert,
		key:  key,
		pem:  string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}
}

func (ca *testCA) sign(t *testing.T, publicKey crypto.PublicKey, notBefore, notAfter time.Time) string {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(2000),
		Subject:      pkix.Name{CommonName: "CS001"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, publicKey, ca.key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func (ca *testCA) signContract(t *testing.T, notBefore, notAfter time.Time) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(3000),
		Subject:      pkix.Name{CommonName: "DE-8AA-C12345678-9"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		OCSPServer:   []string{"https://ocsp.example.com"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestInstallRootCertificate(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)

	status := store.Install(types.InstallCSMSRootCertificate, ca.pem)
	require.Equal(t, security.CertificateStatusAccepted, status)
	assert.Equal(t, 1, store.Entries())

	assert.Equal(t, security.CertificateStatusRejected, store.Install(types.InstallCSMSRootCertificate, "not a certificate"))

	// a leaf certificate is not accepted as a root
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leaf := ca.sign(t, &key.PublicKey, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.Equal(t, security.CertificateStatusRejected, store.Install(types.InstallCSMSRootCertificate, leaf))
}

func TestInstalledIdsFilter(t *testing.T) {
	store := newTestStore(t)

	require.Equal(t, security.CertificateStatusAccepted, store.Install(types.InstallCSMSRootCertificate, newTestCA(t).pem))
	require.Equal(t, security.CertificateStatusAccepted, store.Install(types.InstallMORootCertificate, newTestCA(t).pem))

	all := store.InstalledIds(nil)
	assert.Len(t, all, 2)

	csms := store.InstalledIds([]types.GetCertificateIdUseType{types.CSMSRootCertificate})
	require.Len(t, csms, 1)
	assert.Equal(t, types.CSMSRootCertificate, csms[0].CertificateType)
	assert.Equal(t, string(types.SHA256), string(csms[0].CertificateHashData.HashAlgorithm))

	assert.Empty(t, store.InstalledIds([]types.GetCertificateIdUseType{types.V2GRootCertificate}))
}

func TestDeleteCertificate(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)

	require.Equal(t, security.CertificateStatusAccepted, store.Install(types.InstallCSMSRootCertificate, ca.pem))

	hash := HashData(ca.cert, ca.cert)
	assert.Equal(t, security.DeleteCertificateStatusAccepted, store.Delete(hash))
	assert.Equal(t, security.DeleteCertificateStatusNotFound, store.Delete(hash))
	assert.Zero(t, store.Entries())
}

func TestGenerateCSR(t *testing.T) {
	store := newTestStore(t)

	csrPem, err := store.GenerateCSR("CS001")
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(csrPem))
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE REQUEST", block.Type)

	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "CS001", csr.Subject.CommonName)
	assert.Equal(t, []string{"TestOrg"}, csr.Subject.Organization)
	assert.Equal(t, []string{"DE"}, csr.Subject.Country)
}

func TestGenerateCSRRequiresStationId(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GenerateCSR("")
	assert.Error(t, err)
	_, err = store.GenerateCSR("   ")
	assert.Error(t, err)
}

func TestContractOCSPData(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)
	leaf := ca.signContract(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	data, err := store.ContractOCSPData(leaf + ca.pem)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, types.SHA256, data[0].HashAlgorithm)
	assert.Equal(t, "https://ocsp.example.com", data[0].ResponderURL)
	assert.NotEmpty(t, data[0].SerialNumber)
	// both entries name the root as issuer: the leaf through the chain,
	// the root through itself
	assert.Equal(t, data[1].IssuerKeyHash, data[0].IssuerKeyHash)

	_, err = store.ContractOCSPData("not a certificate")
	assert.Error(t, err)
}

func TestValidateContract(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)
	leaf := ca.signContract(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	// no trusted roots installed yet
	assert.ErrorIs(t, store.ValidateContract(leaf+ca.pem), ErrContractUntrusted)

	require.Equal(t, security.CertificateStatusAccepted, store.Install(types.InstallMORootCertificate, ca.pem))
	assert.NoError(t, store.ValidateContract(leaf+ca.pem))

	expired := ca.signContract(t, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
	assert.ErrorIs(t, store.ValidateContract(expired+ca.pem), ErrContractExpired)

	foreign := newTestCA(t)
	foreignLeaf := foreign.signContract(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.ErrorIs(t, store.ValidateContract(foreignLeaf+foreign.pem), ErrContractUntrusted)
}

func TestApplySignedChain(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)

	csrPem, err := store.GenerateCSR("CS001")
	require.NoError(t, err)
	block, _ := pem.Decode([]byte(csrPem))
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)

	leaf := ca.sign(t, csr.PublicKey, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))
	status := store.ApplySignedChain(leaf + ca.pem)
	require.Equal(t, security.CertificateSignedStatusAccepted, status)

	certPath, keyPath := store.ClientCertificatePaths()
	_, err = os.Stat(certPath)
	assert.NoError(t, err)
	_, err = os.Stat(keyPath)
	assert.NoError(t, err)
}

func TestApplySignedChainRejectsForeignKey(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)

	_, err := store.GenerateCSR("CS001")
	require.NoError(t, err)

	// leaf signed for a key that never left this test
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leaf := ca.sign(t, &other.PublicKey, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	assert.Equal(t, security.CertificateSignedStatusRejected, store.ApplySignedChain(leaf+ca.pem))
}

func TestApplySignedChainRejectsExpiredLeaf(t *testing.T) {
	store := newTestStore(t)
	ca := newTestCA(t)

	csrPem, err := store.GenerateCSR("CS001")
	require.NoError(t, err)
	block, _ := pem.Decode([]byte(csrPem))
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)

	leaf := ca.sign(t, csr.PublicKey, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
	assert.Equal(t, security.CertificateSignedStatusRejected, store.ApplySignedChain(leaf+ca.pem))
}
