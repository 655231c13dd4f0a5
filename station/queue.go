package station

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"evcp/internal"
	"evcp/internal/config"
	"evcp/internal/msgstore"
	"evcp/metrics/counters"
	"evcp/ocpp"
	"evcp/utility"
)

type MessageClass string

const (
	ClassBoot          MessageClass = "Boot"
	ClassTransactional MessageClass = "Transactional"
	ClassNormal        MessageClass = "Normal"
	ClassTrigger       MessageClass = "Trigger"
)

// CallOutcome is the single terminal result of an outbound call:
// exactly one of Response, CallError or Err is set.
type CallOutcome struct {
	Response  ocpp.Response
	CallError *CallError
	Err       error
}

type PendingCall struct {
	UniqueId      string
	Action        string
	Payload       ocpp.Request
	Class         MessageClass
	TransactionId string
	Attempts      int
	StoreSeq      uint64
	Done          chan CallOutcome
}

// Queue orders outbound calls: Boot first, then persisted transactional
// entries in FIFO order, then normal ones. Transactional entries survive
// reboot through the message store.
type Queue struct {
	mu            sync.Mutex
	boot          *PendingCall
	transactional []*PendingCall
	normal        []*PendingCall
	store         *msgstore.Store
	normalCap     int
}

func NewQueue(store *msgstore.Store, normalCap int) *Queue {
	return &Queue{
		store:     store,
		normalCap: normalCap,
	}
}

// Restore loads transactional entries persisted by a previous run. Their
// futures resolve into the void; delivery is the point, not the caller.
func (q *Queue) Restore() error {
	if q.store == nil {
		return nil
	}
	entries, err := q.store.Entries()
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range entries {
		requestType, err := getOutboundRequestType(entry.Action)
		if err != nil {
			continue
		}
		request, err := ocpp.ParseRawJsonRequest(json.RawMessage(entry.Payload), requestType)
		if err != nil {
			continue
		}
		q.transactional = append(q.transactional, &PendingCall{
			UniqueId:      entry.UniqueId,
			Action:        entry.Action,
			Payload:       request,
			Class:         ClassTransactional,
			TransactionId: entry.TransactionId,
			Attempts:      entry.Attempts,
			StoreSeq:      entry.Seq,
			Done:          make(chan CallOutcome, 1),
		})
	}
	q.observe()
	return nil
}

func (q *Queue) Enqueue(call *PendingCall, offline bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch call.Class {
	case ClassBoot:
		q.boot = call
	case ClassTransactional:
		if q.store != nil && call.StoreSeq == 0 {
			payload, err := json.Marshal(call.Payload)
			if err != nil {
				return err
			}
			seq, err := q.store.Append(&msgstore.Entry{
				UniqueId:      call.UniqueId,
				Action:        call.Action,
				Payload:       payload,
				TransactionId: call.TransactionId,
				CreatedAt:     time.Now().UTC(),
				Offline:       offline,
			})
			if err != nil {
				return err
			}
			call.StoreSeq = seq
		}
		q.transactional = append(q.transactional, call)
	default:
		if len(q.normal) >= q.normalCap {
			return utility.Errf("queue full, dropping %s", call.Action)
		}
		q.normal = append(q.normal, call)
	}
	q.observe()
	return nil
}

// requeue puts a timed-out call back at the head of its class.
func (q *Queue) requeue(call *PendingCall) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch call.Class {
	case ClassBoot:
		q.boot = call
	case ClassTransactional:
		q.transactional = append([]*PendingCall{call}, q.transactional...)
	default:
		q.normal = append([]*PendingCall{call}, q.normal...)
	}
	q.observe()
}

// Next pops the highest priority entry. When bootOnly is set, only the
// boot entry may leave the queue.
func (q *Queue) Next(bootOnly bool) *PendingCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.boot != nil {
		call := q.boot
		q.boot = nil
		q.observe()
		return call
	}
	if bootOnly {
		return nil
	}
	if len(q.transactional) > 0 {
		call := q.transactional[0]
		q.transactional = q.transactional[1:]
		q.observe()
		return call
	}
	if len(q.normal) > 0 {
		call := q.normal[0]
		q.normal = q.normal[1:]
		q.observe()
		return call
	}
	return nil
}

// HasTransactionMessages reports whether messages for the given
// transaction are still queued, for GetTransactionStatus.
func (q *Queue) HasTransactionMessages(transactionId string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, call := range q.transactional {
		if call.TransactionId == transactionId {
			return true
		}
	}
	return false
}

// PendingTransactional reports how many transactional entries wait in
// the queue, for GetTransactionStatus without a transaction id.
func (q *Queue) PendingTransactional() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.transactional)
}

func (q *Queue) forget(call *PendingCall) {
	if q.store != nil && call.StoreSeq > 0 {
		_ = q.store.Delete(call.StoreSeq)
	}
}

// DropNormal resolves all queued normal entries as cancelled, for shutdown.
func (q *Queue) DropNormal() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, call := range q.normal {
		call.Done <- CallOutcome{Err: utility.Err("cancelled")}
	}
	q.normal = nil
	q.observe()
}

func (q *Queue) observe() {
	counters.ObserveQueued(string(ClassTransactional), len(q.transactional))
	counters.ObserveQueued(string(ClassNormal), len(q.normal))
}

// Transport is what the dispatcher needs from the websocket client.
type Transport interface {
	Send(data []byte) error
	IsConnected() bool
}

// Dispatcher enforces at-most-one outstanding outbound call. It owns the
// in-flight slot, the response timeout and the retry policy.
type Dispatcher struct {
	mu       sync.Mutex
	queue    *Queue
	conn     Transport
	logger   internal.LogHandler
	conf     *config.Config
	inFlight *PendingCall
	timer    *time.Timer
	bootOnly bool
	offline  bool
	onSent   func(action string)
}

func NewDispatcher(queue *Queue, conn Transport, conf *config.Config, logger internal.LogHandler) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		conn:     conn,
		logger:   logger,
		conf:     conf,
		bootOnly: true,
	}
}

// SetSentListener is called after every successful write, used to reset
// the heartbeat timer.
func (d *Dispatcher) SetSentListener(listener func(action string)) {
	d.onSent = listener
}

// SetBootOnly gates the queue to BootNotification while registration is
// not Accepted.
func (d *Dispatcher) SetBootOnly(bootOnly bool) {
	d.mu.Lock()
	d.bootOnly = bootOnly
	d.mu.Unlock()
	d.Dispatch()
}

func (d *Dispatcher) SetOffline(offline bool) {
	d.mu.Lock()
	d.offline = offline
	d.mu.Unlock()
	if !offline {
		d.Dispatch()
	}
}

func (d *Dispatcher) IsOffline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offline
}

// SendCall enqueues a typed request and returns its outcome future.
func (d *Dispatcher) SendCall(action string, payload ocpp.Request, class MessageClass, transactionId string) (*PendingCall, error) {
	call := &PendingCall{
		UniqueId:      utility.NewUUID(),
		Action:        action,
		Payload:       payload,
		Class:         class,
		TransactionId: transactionId,
		Done:          make(chan CallOutcome, 1),
	}
	d.mu.Lock()
	offline := d.offline
	d.mu.Unlock()
	if offline && class != ClassTransactional && class != ClassBoot {
		return nil, utility.Errf("offline, dropping %s", action)
	}
	if err := d.queue.Enqueue(call, offline); err != nil {
		return nil, err
	}
	d.Dispatch()
	return call, nil
}

// Dispatch sends the next queued entry when the slot is free.
func (d *Dispatcher) Dispatch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatchLocked()
}

func (d *Dispatcher) dispatchLocked() {
	if d.inFlight != nil || d.offline || !d.conn.IsConnected() {
		return
	}
	call := d.queue.Next(d.bootOnly)
	if call == nil {
		return
	}
	message := &Call{UniqueId: call.UniqueId, Action: call.Action, Payload: call.Payload}
	data, err := message.MarshalJSON()
	if err != nil {
		call.Done <- CallOutcome{Err: err}
		d.queue.forget(call)
		return
	}
	if err = d.conn.Send(data); err != nil {
		d.logger.Error(fmt.Sprintf("sending %s", call.Action), err)
		d.queue.requeue(call)
		return
	}
	counters.CountCallSent(call.Action)
	if d.onSent != nil {
		d.onSent(call.Action)
	}
	d.inFlight = call
	timeout := time.Duration(d.conf.Timing.MessageTimeout) * time.Second
	uniqueId := call.UniqueId
	d.timer = time.AfterFunc(timeout, func() {
		d.expire(uniqueId)
	})
}

func (d *Dispatcher) clearSlotLocked() *PendingCall {
	call := d.inFlight
	d.inFlight = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return call
}

// Resolve completes the in-flight call with a CSMS result.
func (d *Dispatcher) Resolve(result *RawResult) {
	d.mu.Lock()
	if d.inFlight == nil || d.inFlight.UniqueId != result.UniqueId {
		d.mu.Unlock()
		d.logger.Warn(fmt.Sprintf("unexpected call result %s", result.UniqueId))
		return
	}
	call := d.clearSlotLocked()
	d.mu.Unlock()

	response, err := BindResult(result, call.Action)
	if err != nil {
		call.Done <- CallOutcome{Err: err}
	} else {
		call.Done <- CallOutcome{Response: response}
	}
	d.queue.forget(call)
	d.Dispatch()
}

// ResolveError completes the in-flight call with a peer CallError.
// Peer errors are terminal: no retry.
func (d *Dispatcher) ResolveError(callError *CallError) {
	d.mu.Lock()
	if d.inFlight == nil || d.inFlight.UniqueId != callError.UniqueId {
		d.mu.Unlock()
		d.logger.Warn(fmt.Sprintf("unexpected call error %s", callError.UniqueId))
		return
	}
	call := d.clearSlotLocked()
	d.mu.Unlock()

	call.Done <- CallOutcome{CallError: callError}
	d.queue.forget(call)
	d.Dispatch()
}

func (d *Dispatcher) expire(uniqueId string) {
	d.mu.Lock()
	if d.inFlight == nil || d.inFlight.UniqueId != uniqueId {
		d.mu.Unlock()
		return
	}
	call := d.clearSlotLocked()
	d.mu.Unlock()

	call.Attempts++
	switch {
	case call.Class == ClassTrigger:
		call.Done <- CallOutcome{Err: utility.Err("timeout")}
	case call.Attempts >= d.conf.Timing.MessageAttempts:
		if call.Class == ClassTransactional {
			d.logger.Warn(fmt.Sprintf("dropping %s after %d attempts", call.Action, call.Attempts))
		}
		call.Done <- CallOutcome{Err: utility.Err("timeout")}
		d.queue.forget(call)
	default:
		counters.CountCallRetry(call.Action)
		interval := d.conf.Timing.MessageAttemptInterval
		if d.conf.Timing.RetryBackoffRandomRange > 0 {
			interval += rand.Intn(d.conf.Timing.RetryBackoffRandomRange)
		}
		time.AfterFunc(time.Duration(interval)*time.Second, func() {
			d.queue.requeue(call)
			d.Dispatch()
		})
	}
	d.Dispatch()
}

// CancelInFlight resolves the outstanding call as cancelled; transactional
// entries stay in the store for the next boot.
func (d *Dispatcher) CancelInFlight() {
	d.mu.Lock()
	call := d.clearSlotLocked()
	d.mu.Unlock()
	if call == nil {
		return
	}
	call.Done <- CallOutcome{Err: utility.Err("cancelled")}
	if call.Class != ClassTransactional {
		d.queue.forget(call)
	}
}
