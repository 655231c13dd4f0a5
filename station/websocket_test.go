package station

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCertSource struct {
	certFile string
	keyFile  string
}

func (f *fakeCertSource) ClientCertificatePaths() (string, string) {
	return f.certFile, f.keyFile
}

func TestClientCertificateFiles(t *testing.T) {
	conf := testConfig()
	conf.Csms.ClientCertFile = "/etc/evcp/client.pem"
	conf.Csms.ClientKeyFile = "/etc/evcp/client.key"
	client := NewClient(conf, nopLogger{})

	// no store attached, the configured files apply
	certFile, keyFile := client.clientCertificateFiles()
	assert.Equal(t, conf.Csms.ClientCertFile, certFile)
	assert.Equal(t, conf.Csms.ClientKeyFile, keyFile)

	dir := t.TempDir()
	source := &fakeCertSource{
		certFile: filepath.Join(dir, "client.pem"),
		keyFile:  filepath.Join(dir, "client.key"),
	}
	client.SetCertificateSource(source)

	// an incomplete store pair does not override the configured files
	require.NoError(t, os.WriteFile(source.certFile, []byte("cert"), 0600))
	certFile, keyFile = client.clientCertificateFiles()
	assert.Equal(t, conf.Csms.ClientCertFile, certFile)
	assert.Equal(t, conf.Csms.ClientKeyFile, keyFile)

	// a complete pair renewed through the store wins
	require.NoError(t, os.WriteFile(source.keyFile, []byte("key"), 0600))
	certFile, keyFile = client.clientCertificateFiles()
	assert.Equal(t, source.certFile, certFile)
	assert.Equal(t, source.keyFile, keyFile)
}
