package tariff

import (
	"fmt"
	"math"
	"sync"
	"time"

	"evcp/internal"
	"evcp/ocpp/metervalues"
	"evcp/ocpp/transactions"
	"evcp/ocpp/types"

	"github.com/relvacode/iso8601"
)

// MeterSender reports out-of-cycle readings to the CSMS. A non-empty
// transactionId marks the message as transaction-related.
type MeterSender interface {
	SendMeterValues(request *metervalues.MeterValuesRequest, transactionId string)
}

type runningCost struct {
	transactionId string
	evseId        int
	total         float64
	currency      string
	lastPowerW    float64
	lastObservedW float64
	finished      bool
	atTime        []time.Time
	atEnergykWh   []float64
	atPowerkW     []float64
}

// CostTracker follows the running cost of each transaction from
// TransactionEvent responses and CostUpdated requests, and reports power
// swings large enough to move the price.
type CostTracker struct {
	mu       sync.Mutex
	settings Settings
	sender   MeterSender
	logger   internal.LogHandler
	costs    map[string]*runningCost
}

func NewCostTracker(settings Settings, sender MeterSender, logger internal.LogHandler) *CostTracker {
	return &CostTracker{
		settings: settings,
		sender:   sender,
		logger:   logger,
		costs:    make(map[string]*runningCost),
	}
}

// OnTransactionEvent consumes the cost fields of an event response. It
// is wired as a session response listener.
func (c *CostTracker) OnTransactionEvent(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse) {
	if response.TotalCost == nil && response.CustomData == nil {
		return
	}
	c.mu.Lock()
	cost := c.costs[transactionId]
	if cost == nil {
		cost = &runningCost{transactionId: transactionId, evseId: evseId}
		c.costs[transactionId] = cost
	}
	if response.TotalCost != nil {
		cost.total = *response.TotalCost
	}
	if chunk, ok := parseCostChunk(response.CustomData); ok {
		if chunk.hasCost {
			cost.total = chunk.total
			cost.finished = chunk.finished
		}
		if chunk.currency != "" {
			cost.currency = chunk.currency
		}
		if chunk.hasTriggers {
			cost.atTime = chunk.atTime
			cost.atEnergykWh = chunk.atEnergykWh
			cost.atPowerkW = chunk.atPowerkW
		}
	}
	if eventType == transactions.TransactionEventEnded {
		cost.finished = true
	}
	total := cost.total
	currency := cost.currency
	finished := cost.finished
	if finished {
		delete(c.costs, transactionId)
	}
	c.mu.Unlock()

	if finished {
		c.logger.FeatureEvent(transactions.TransactionEventFeatureName, "",
			fmt.Sprintf("final cost for %s: %.2f %s", transactionId, total, currency))
	}
}

type costChunk struct {
	total       float64
	currency    string
	finished    bool
	hasCost     bool
	hasTriggers bool
	atTime      []time.Time
	atEnergykWh []float64
	atPowerkW   []float64
}

// parseCostChunk reads the California-pricing payload carried in the
// response customData.
func parseCostChunk(data map[string]interface{}) (costChunk, bool) {
	if data == nil {
		return costChunk{}, false
	}
	var chunk costChunk
	if running, ok := data["runningCost"].(map[string]interface{}); ok {
		if cost, ok := running["cost"].(float64); ok {
			chunk.total = cost
			chunk.hasCost = true
		}
		if currency, ok := running["currency"].(string); ok {
			chunk.currency = currency
		}
		if trigger, ok := running["triggerMeterValue"].(map[string]interface{}); ok {
			chunk.hasTriggers = true
			chunk.atTime = timeList(trigger["atTime"])
			chunk.atEnergykWh = floatList(trigger["atEnergykWh"])
			chunk.atPowerkW = floatList(trigger["atPowerkW"])
		}
	}
	if final, ok := data["finalCost"].(map[string]interface{}); ok {
		if cost, ok := final["cost"].(float64); ok {
			chunk.total = cost
			chunk.finished = true
			chunk.hasCost = true
		}
		if currency, ok := final["currency"].(string); ok {
			chunk.currency = currency
		}
	}
	return chunk, chunk.hasCost || chunk.hasTriggers
}

func floatList(value interface{}) []float64 {
	switch v := value.(type) {
	case float64:
		return []float64{v}
	case []interface{}:
		var out []float64
		for _, item := range v {
			if f, ok := item.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

func timeList(value interface{}) []time.Time {
	parse := func(raw interface{}) (time.Time, bool) {
		s, ok := raw.(string)
		if !ok {
			return time.Time{}, false
		}
		t, err := iso8601.ParseString(s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	switch v := value.(type) {
	case string:
		if t, ok := parse(v); ok {
			return []time.Time{t}
		}
	case []interface{}:
		var out []time.Time
		for _, item := range v {
			if t, ok := parse(item); ok {
				out = append(out, t)
			}
		}
		return out
	}
	return nil
}

// OnCostUpdated applies a CostUpdated request from the CSMS.
func (c *CostTracker) OnCostUpdated(transactionId string, totalCost float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cost := c.costs[transactionId]
	if cost == nil {
		cost = &runningCost{transactionId: transactionId}
		c.costs[transactionId] = cost
	}
	cost.total = totalCost
	return true
}

// RunningCost reports the last known total for a transaction.
func (c *CostTracker) RunningCost(transactionId string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cost, ok := c.costs[transactionId]
	if !ok {
		return 0, false
	}
	return cost.total, true
}

// Observe consumes one metering tick of a running session. It fires the
// CSMS-requested meter value triggers, then checks the power swing
// threshold. Wired as a session sample listener.
func (c *CostTracker) Observe(evseId int, transactionId string, energyWh, powerW float64) {
	c.mu.Lock()
	cost := c.costs[transactionId]
	fire := false
	if cost != nil {
		now := time.Now()
		for len(cost.atTime) > 0 && !now.Before(cost.atTime[0]) {
			cost.atTime = cost.atTime[1:]
			fire = true
		}
		for len(cost.atEnergykWh) > 0 && energyWh/1000 >= cost.atEnergykWh[0] {
			cost.atEnergykWh = cost.atEnergykWh[1:]
			fire = true
		}
		for _, threshold := range cost.atPowerkW {
			if (cost.lastObservedW/1000 < threshold) != (powerW/1000 < threshold) {
				fire = true
				break
			}
		}
		cost.lastObservedW = powerW
	}
	c.mu.Unlock()

	if fire {
		c.sendReading(evseId, transactionId, energyWh, powerW)
	}
	c.PowerChanged(evseId, transactionId, powerW)
}

// PowerChanged reports a new power level. A swing beyond 100 W or 10%
// of the last reported level, whichever is larger, triggers an
// out-of-cycle meter value so the CSMS can reprice.
func (c *CostTracker) PowerChanged(evseId int, transactionId string, powerW float64) {
	c.mu.Lock()
	cost := c.costs[transactionId]
	if cost == nil {
		cost = &runningCost{transactionId: transactionId, evseId: evseId}
		c.costs[transactionId] = cost
	}
	threshold := math.Max(100, math.Abs(cost.lastPowerW)*0.1)
	trigger := math.Abs(powerW-cost.lastPowerW) >= threshold
	if trigger {
		cost.lastPowerW = powerW
	}
	c.mu.Unlock()

	if !trigger {
		return
	}
	c.sender.SendMeterValues(&metervalues.MeterValuesRequest{
		EvseId: evseId,
		MeterValue: []types.MeterValue{{
			Timestamp: types.NewDateTime(time.Now().UTC()),
			SampledValue: []types.SampledValue{{
				Value:         powerW,
				Context:       types.ReadingContextOther,
				Measurand:     types.MeasurandPowerActiveImport,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "W"},
			}},
		}},
	}, transactionId)
}

func (c *CostTracker) sendReading(evseId int, transactionId string, energyWh, powerW float64) {
	c.sender.SendMeterValues(&metervalues.MeterValuesRequest{
		EvseId: evseId,
		MeterValue: []types.MeterValue{{
			Timestamp: types.NewDateTime(time.Now().UTC()),
			SampledValue: []types.SampledValue{{
				Value:         energyWh,
				Context:       types.ReadingContextOther,
				Measurand:     types.MeasurandEnergyActiveImportRegister,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "Wh"},
			}, {
				Value:         powerW,
				Context:       types.ReadingContextOther,
				Measurand:     types.MeasurandPowerActiveImport,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "W"},
			}},
		}},
	}, transactionId)
}
