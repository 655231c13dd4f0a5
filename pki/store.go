package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"evcp/internal"
	"evcp/ocpp/security"
	"evcp/ocpp/types"
	"evcp/utility"
)

const (
	clientCertFile = "client.pem"
	clientKeyFile  = "client.key"
	pendingKeyFile = "client_next.key"
)

// Store manages the certificate directory: installed root certificates,
// the client certificate chain and the key material for renewal.
type Store struct {
	mu           sync.Mutex
	dir          string
	organization string
	country      string
	logger       internal.LogHandler
}

func NewStore(dir, organization, country string, logger internal.LogHandler) *Store {
	return &Store{dir: dir, organization: organization, country: country, logger: logger}
}

func (s *Store) Open() error {
	return os.MkdirAll(s.dir, 0o700)
}

func useFilePrefix(use types.InstallCertificateUseType) string {
	switch use {
	case types.InstallCSMSRootCertificate:
		return "csms_root"
	case types.InstallV2GRootCertificate:
		return "v2g_root"
	case types.InstallMORootCertificate:
		return "mo_root"
	case types.InstallManufacturerRootCertificate:
		return "mf_root"
	}
	return "root"
}

func prefixUse(name string) types.GetCertificateIdUseType {
	switch {
	case strings.HasPrefix(name, "csms_root"):
		return types.CSMSRootCertificate
	case strings.HasPrefix(name, "v2g_root"):
		return types.V2GRootCertificate
	case strings.HasPrefix(name, "mo_root"):
		return types.MORootCertificate
	case strings.HasPrefix(name, "mf_root"):
		return types.ManufacturerRootCertificate
	}
	return ""
}

// Install stores a root certificate received via InstallCertificate.
func (s *Store) Install(use types.InstallCertificateUseType, pemData string) security.InstallCertificateStatus {
	cert, err := parseCertificate(pemData)
	if err != nil {
		return security.CertificateStatusRejected
	}
	if !cert.IsCA {
		return security.CertificateStatusRejected
	}
	hash := sha256.Sum256(cert.Raw)
	name := fmt.Sprintf("%s_%s.pem", useFilePrefix(use), hex.EncodeToString(hash[:4]))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = os.WriteFile(filepath.Join(s.dir, name), []byte(pemData), 0o600); err != nil {
		s.logger.Error("writing certificate", err)
		return security.CertificateStatusFailed
	}
	return security.CertificateStatusAccepted
}

// Delete removes an installed certificate matched by its hash data.
func (s *Store) Delete(hashData types.CertificateHashData) security.DeleteCertificateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, installed := range s.installedLocked() {
		if !hashEqual(installed.hash, hashData) {
			continue
		}
		if err := os.Remove(installed.path); err != nil {
			s.logger.Error("removing certificate", err)
			return security.DeleteCertificateStatusFailed
		}
		return security.DeleteCertificateStatusAccepted
	}
	return security.DeleteCertificateStatusNotFound
}

// InstalledIds lists installed certificates for GetInstalledCertificateIds.
func (s *Store) InstalledIds(filter []types.GetCertificateIdUseType) []security.CertificateHashDataChain {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chains []security.CertificateHashDataChain
	for _, installed := range s.installedLocked() {
		if len(filter) > 0 && !containsUse(filter, installed.use) {
			continue
		}
		chains = append(chains, security.CertificateHashDataChain{
			CertificateType:     installed.use,
			CertificateHashData: installed.hash,
		})
	}
	return chains
}

// Entries reports the number of installed certificates.
func (s *Store) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.installedLocked())
}

type installedCert struct {
	path string
	use  types.GetCertificateIdUseType
	hash types.CertificateHashData
}

func (s *Store) installedLocked() []installedCert {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var installed []installedCert
	for _, entry := range entries {
		use := prefixUse(entry.Name())
		if use == "" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cert, err := parseCertificate(string(data))
		if err != nil {
			continue
		}
		installed = append(installed, installedCert{
			path: path,
			use:  use,
			hash: HashData(cert, cert),
		})
	}
	return installed
}

func containsUse(filter []types.GetCertificateIdUseType, use types.GetCertificateIdUseType) bool {
	for _, f := range filter {
		if f == use {
			return true
		}
	}
	return false
}

func hashEqual(a, b types.CertificateHashData) bool {
	return strings.EqualFold(a.IssuerNameHash, b.IssuerNameHash) &&
		strings.EqualFold(a.IssuerKeyHash, b.IssuerKeyHash) &&
		strings.EqualFold(strings.TrimLeft(a.SerialNumber, "0"), strings.TrimLeft(b.SerialNumber, "0"))
}

// GenerateCSR creates a fresh key pair and returns a PEM encoded signing
// request for the station certificate. The key stays pending until the
// signed chain arrives.
func (s *Store) GenerateCSR(stationId string) (string, error) {
	if strings.TrimSpace(stationId) == "" {
		return "", utility.Err("station id required for a certificate request")
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", err
	}
	subject := pkix.Name{CommonName: utility.Truncate(stationId, 64)}
	if s.organization != "" {
		subject.Organization = []string{s.organization}
	}
	if len(s.country) == 2 {
		subject.Country = []string{strings.ToUpper(s.country)}
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{Subject: subject}, key)
	if err != nil {
		return "", err
	}

	keyDer, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", err
	}
	keyPem := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer})
	s.mu.Lock()
	err = os.WriteFile(filepath.Join(s.dir, pendingKeyFile), keyPem, 0o600)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})), nil
}

// ApplySignedChain installs the chain from CertificateSigned. The leaf
// must match the pending key and the chain must verify leaf to root.
func (s *Store) ApplySignedChain(chainPem string) security.CertificateSignedStatus {
	certs, err := parseChain(chainPem)
	if err != nil || len(certs) == 0 {
		return security.CertificateSignedStatusRejected
	}
	leaf := certs[0]
	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return security.CertificateSignedStatusRejected
	}
	for i := 0; i+1 < len(certs); i++ {
		if err = certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
			return security.CertificateSignedStatusRejected
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, err := s.pendingKeyLocked()
	if err != nil {
		return security.CertificateSignedStatusRejected
	}
	leafKey, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok || !leafKey.Equal(&key.PublicKey) {
		return security.CertificateSignedStatusRejected
	}

	if err = os.WriteFile(filepath.Join(s.dir, clientCertFile), []byte(chainPem), 0o600); err != nil {
		s.logger.Error("writing client certificate", err)
		return security.CertificateSignedStatusRejected
	}
	if err = os.Rename(filepath.Join(s.dir, pendingKeyFile), filepath.Join(s.dir, clientKeyFile)); err != nil {
		s.logger.Error("promoting client key", err)
		return security.CertificateSignedStatusRejected
	}
	return security.CertificateSignedStatusAccepted
}

func (s *Store) pendingKeyLocked() (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, pendingKeyFile))
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, utility.Err("no key in pending file")
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

// ClientCertificatePaths names the active client certificate and key,
// for the mutual TLS dialer.
func (s *Store) ClientCertificatePaths() (string, string) {
	return filepath.Join(s.dir, clientCertFile), filepath.Join(s.dir, clientKeyFile)
}

func parseCertificate(pemData string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, utility.Err("no certificate in pem data")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parseChain(pemData string) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := []byte(pemData)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, utility.Err("no certificates in chain")
	}
	return certs, nil
}

var (
	ErrContractExpired   = utility.Err("contract certificate expired")
	ErrContractUntrusted = utility.Err("contract certificate chain not trusted")
)

// ContractOCSPData builds OCSP request data for a contract certificate
// chain, leaf first. The root pairs with itself.
func (s *Store) ContractOCSPData(chainPem string) ([]types.OCSPRequestData, error) {
	certs, err := parseChain(chainPem)
	if err != nil {
		return nil, err
	}
	var data []types.OCSPRequestData
	for i, cert := range certs {
		issuer := cert
		if i+1 < len(certs) {
			issuer = certs[i+1]
		}
		hash := HashData(cert, issuer)
		entry := types.OCSPRequestData{
			HashAlgorithm:  hash.HashAlgorithm,
			IssuerNameHash: hash.IssuerNameHash,
			IssuerKeyHash:  hash.IssuerKeyHash,
			SerialNumber:   hash.SerialNumber,
		}
		if len(cert.OCSPServer) > 0 {
			entry.ResponderURL = cert.OCSPServer[0]
		}
		data = append(data, entry)
		if len(data) == 4 {
			break
		}
	}
	return data, nil
}

// ValidateContract checks a contract certificate chain against the
// installed MO and V2G root certificates.
func (s *Store) ValidateContract(chainPem string) error {
	certs, err := parseChain(chainPem)
	if err != nil {
		return err
	}
	leaf := certs[0]
	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return ErrContractExpired
	}

	roots := x509.NewCertPool()
	trusted := 0
	s.mu.Lock()
	for _, installed := range s.installedLocked() {
		if installed.use != types.MORootCertificate && installed.use != types.V2GRootCertificate {
			continue
		}
		data, err := os.ReadFile(installed.path)
		if err != nil {
			continue
		}
		root, err := parseCertificate(string(data))
		if err != nil {
			continue
		}
		roots.AddCert(root)
		trusted++
	}
	s.mu.Unlock()
	if trusted == 0 {
		return ErrContractUntrusted
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}
	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return ErrContractUntrusted
	}
	return nil
}

// HashData computes the OCPP hash triple of a certificate. The key hash
// covers the raw public key bits: PKCS#1 for RSA, the uncompressed point
// for EC keys.
func HashData(cert, issuer *x509.Certificate) types.CertificateHashData {
	nameHash := sha256.Sum256(cert.RawIssuer)
	return types.CertificateHashData{
		HashAlgorithm:  types.SHA256,
		IssuerNameHash: hex.EncodeToString(nameHash[:]),
		IssuerKeyHash:  hex.EncodeToString(spkiHash(issuer)),
		SerialNumber:   strings.TrimLeft(hex.EncodeToString(cert.SerialNumber.Bytes()), "0"),
	}
}

func spkiHash(cert *x509.Certificate) []byte {
	var keyBits []byte
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		keyBits = x509.MarshalPKCS1PublicKey(pub)
	case *ecdsa.PublicKey:
		keyBits = elliptic.Marshal(pub.Curve, pub.X, pub.Y)
	default:
		keyBits = cert.RawSubjectPublicKeyInfo
	}
	sum := sha256.Sum256(keyBits)
	return sum[:]
}
