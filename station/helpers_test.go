package station

import (
	"sync"

	"evcp/internal/config"
)

type nopLogger struct{}

func (nopLogger) Debug(text string)                     {}
func (nopLogger) Warn(text string)                      {}
func (nopLogger) Error(text string, err error)          {}
func (nopLogger) FeatureEvent(feature, id, text string) {}
func (nopLogger) RawDataEvent(direction, data string)   {}

// fakeTransport records every frame handed to Send.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	frames    [][]byte
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([][]byte, len(f.frames))
	copy(frames, f.frames)
	return frames
}

func testConfig() *config.Config {
	conf := &config.Config{}
	conf.Station.Id = "CS001"
	conf.Station.Vendor = "Pionix"
	conf.Station.Model = "Yeti"
	conf.Station.EvseCount = 2
	conf.Timing.MessageTimeout = 30
	conf.Timing.MessageAttempts = 3
	conf.Timing.MessageAttemptInterval = 1
	conf.Timing.BootRetryInterval = 30
	conf.Timing.HeartbeatInterval = 300
	conf.Queue.NormalCapacity = 16
	return conf
}
