package session

import (
	"sync"
	"time"
)

// MeterSource reads the energy meter of an EVSE. EnergyWh is the
// lifetime import register, PowerW the momentary active power.
type MeterSource interface {
	EnergyWh(evseId int) float64
	PowerW(evseId int) float64
}

// SimulatedMeter integrates a configurable power draw over time, for
// running the engine without charging hardware.
type SimulatedMeter struct {
	mu     sync.Mutex
	meters map[int]*simulatedRegister
}

type simulatedRegister struct {
	energyWh float64
	powerW   float64
	lastRead time.Time
}

func NewSimulatedMeter() *SimulatedMeter {
	return &SimulatedMeter{meters: make(map[int]*simulatedRegister)}
}

func (m *SimulatedMeter) register(evseId int) *simulatedRegister {
	r, ok := m.meters[evseId]
	if !ok {
		r = &simulatedRegister{lastRead: time.Now()}
		m.meters[evseId] = r
	}
	return r
}

// SetPower changes the simulated draw; the register integrates the
// previous level up to now first.
func (m *SimulatedMeter) SetPower(evseId int, powerW float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.register(evseId)
	r.integrate()
	r.powerW = powerW
}

func (r *simulatedRegister) integrate() {
	now := time.Now()
	elapsed := now.Sub(r.lastRead).Hours()
	r.energyWh += r.powerW * elapsed
	r.lastRead = now
}

func (m *SimulatedMeter) EnergyWh(evseId int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.register(evseId)
	r.integrate()
	return r.energyWh
}

func (m *SimulatedMeter) PowerW(evseId int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(evseId).powerW
}
