package station

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"evcp/internal"
	"evcp/internal/config"
	"evcp/metrics/counters"
	"evcp/ocpp/types"
	"evcp/utility"

	"github.com/gorilla/websocket"
)

// CertificateSource names the client certificate pair managed by the
// certificate store.
type CertificateSource interface {
	ClientCertificatePaths() (certFile, keyFile string)
}

// Client maintains the websocket to the CSMS. It reconnects with
// exponential backoff and hands every inbound frame to the message
// handler. Writes are serialized; the protocol loop is the only caller.
type Client struct {
	conf           *config.Config
	logger         internal.LogHandler
	conn           *websocket.Conn
	writeMutex     sync.Mutex
	connected      bool
	connMutex      sync.RWMutex
	messageHandler func(data []byte) error
	onConnect      func()
	onDisconnect   func()
	certificates   CertificateSource
	done           chan struct{}
}

func NewClient(conf *config.Config, logger internal.LogHandler) *Client {
	return &Client{
		conf:   conf,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (c *Client) SetMessageHandler(handler func(data []byte) error) {
	c.messageHandler = handler
}

func (c *Client) SetConnectionHandlers(onConnect, onDisconnect func()) {
	c.onConnect = onConnect
	c.onDisconnect = onDisconnect
}

// SetCertificateSource attaches the certificate store whose client pair
// takes precedence over the configured files for mutual TLS.
func (c *Client) SetCertificateSource(source CertificateSource) {
	c.certificates = source
}

func (c *Client) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

func (c *Client) setConnected(connected bool) {
	c.connMutex.Lock()
	c.connected = connected
	c.connMutex.Unlock()
	counters.ObserveConnected(connected)
}

// Start runs the connect/read/reconnect loop until Stop is called.
func (c *Client) Start() {
	go c.run()
}

func (c *Client) run() {
	attempt := 0
	for {
		select {
		case <-c.done:
			return
		default:
		}
		err := c.connect()
		if err != nil {
			c.logger.Error("connecting to csms", err)
			wait := c.backoff(attempt)
			attempt++
			select {
			case <-c.done:
				return
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0
		c.setConnected(true)
		if c.onConnect != nil {
			c.onConnect()
		}
		c.messageReader()
		c.setConnected(false)
		if c.onDisconnect != nil {
			c.onDisconnect()
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	t := c.conf.Timing
	if attempt > t.RetryBackoffRepeatTimes {
		attempt = t.RetryBackoffRepeatTimes
	}
	wait := t.RetryBackoffWaitMinimum << attempt
	if t.RetryBackoffRandomRange > 0 {
		wait += rand.Intn(t.RetryBackoffRandomRange)
	}
	return time.Duration(wait) * time.Second
}

func (c *Client) connect() error {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.conf.Csms.Url, "/"), c.conf.Station.Id)
	c.logger.Debug(fmt.Sprintf("connecting to %s", url))

	dialer := websocket.Dialer{
		Subprotocols:     []string{types.SubProtocol201},
		HandshakeTimeout: 30 * time.Second,
	}
	header := http.Header{}
	switch c.conf.Csms.SecurityProfile {
	case 1:
		c.setBasicAuth(header)
	case 2:
		tlsConfig, err := c.serverAuthTLS()
		if err != nil {
			return err
		}
		dialer.TLSClientConfig = tlsConfig
		c.setBasicAuth(header)
	case 3:
		tlsConfig, err := c.mutualTLS()
		if err != nil {
			return err
		}
		dialer.TLSClientConfig = tlsConfig
	default:
		return utility.Errf("security profile %d not supported", c.conf.Csms.SecurityProfile)
	}

	conn, response, err := dialer.Dial(url, header)
	if err != nil {
		if response != nil {
			return fmt.Errorf("dial failed with status %s: %w", response.Status, err)
		}
		return err
	}
	if conn.Subprotocol() != types.SubProtocol201 {
		_ = conn.Close()
		return utility.Errf("csms did not accept subprotocol %s", types.SubProtocol201)
	}
	c.conn = conn
	c.logger.Debug("connection established")
	return nil
}

func (c *Client) setBasicAuth(header http.Header) {
	if c.conf.Csms.BasicAuthPassword == "" {
		return
	}
	req := &http.Request{Header: header}
	req.SetBasicAuth(c.conf.Station.Id, c.conf.Csms.BasicAuthPassword)
}

func (c *Client) serverAuthTLS() (*tls.Config, error) {
	if !strings.HasPrefix(c.conf.Csms.Url, "wss://") {
		return nil, utility.Err("csms url must be wss:// for this profile")
	}
	certPool, err := x509.SystemCertPool()
	if err != nil {
		return nil, err
	}
	if c.conf.Csms.RootCaFile != "" {
		rootCert, err := os.ReadFile(c.conf.Csms.RootCaFile)
		if err != nil {
			return nil, err
		}
		if !certPool.AppendCertsFromPEM(rootCert) {
			return nil, utility.Err("failed to append root certificate")
		}
	}
	return &tls.Config{RootCAs: certPool}, nil
}

func (c *Client) mutualTLS() (*tls.Config, error) {
	tlsConfig, err := c.serverAuthTLS()
	if err != nil {
		return nil, err
	}
	certFile, keyFile := c.clientCertificateFiles()
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	tlsConfig.Certificates = []tls.Certificate{cert}
	return tlsConfig, nil
}

// clientCertificateFiles picks the certificate pair for mutual TLS. A
// pair renewed through the certificate store wins over the configured
// files, so a CertificateSigned exchange takes effect on reconnect.
func (c *Client) clientCertificateFiles() (string, string) {
	if c.certificates != nil {
		certFile, keyFile := c.certificates.ClientCertificatePaths()
		if fileExists(certFile) && fileExists(keyFile) {
			return certFile, keyFile
		}
	}
	return c.conf.Csms.ClientCertFile, c.conf.Csms.ClientKeyFile
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (c *Client) messageReader() {
	conn := c.conn
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("csms closed the session")
			} else {
				c.logger.Debug(fmt.Sprintf("session closed: %s", err))
			}
			err = conn.Close()
			if err != nil {
				c.logger.Warn(fmt.Sprintf("error while closing socket: %s", err))
			}
			return
		}
		c.logger.RawDataEvent("IN", string(message))
		if c.messageHandler != nil {
			err = c.messageHandler(message)
			if err != nil {
				c.logger.Error("handling message from csms", err)
				continue
			}
		}
	}
}

func (c *Client) Send(data []byte) error {
	if !c.IsConnected() {
		return utility.Err("not connected")
	}
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	c.logger.RawDataEvent("OUT", string(data))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) Stop() {
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
