package errorlistener

import (
	"fmt"

	"evcp/entity"
	"evcp/internal"
	"evcp/metrics/counters"
)

type Database interface {
	WriteError(data *entity.ErrorData) error
	GetTodayErrorCount() ([]*entity.ErrorCounter, error)
}

type Notifier interface {
	OnError(data *entity.ErrorData)
}

// ErrorListener drains the host error channel: every error is persisted,
// counted, and fanned out to registered notifiers.
type ErrorListener struct {
	db        Database
	log       internal.LogHandler
	notifiers []Notifier
	events    chan *entity.ErrorData
}

func NewErrorListener(db Database, log internal.LogHandler) *ErrorListener {
	log.FeatureEvent("ErrorListener", "", "created")
	listener := &ErrorListener{
		db:     db,
		log:    log,
		events: make(chan *entity.ErrorData, 100),
	}
	go listener.pump()
	return listener
}

func (e *ErrorListener) AddNotifier(n Notifier) {
	e.notifiers = append(e.notifiers, n)
}

// Events is the channel the engine publishes errors on.
func (e *ErrorListener) Events() chan<- *entity.ErrorData {
	return e.events
}

func (e *ErrorListener) pump() {
	for data := range e.events {
		e.OnError(data)
	}
}

func (e *ErrorListener) OnError(data *entity.ErrorData) {
	if e.db != nil {
		if err := e.db.WriteError(data); err != nil {
			e.log.Error("writing error data to database", err)
		}
	}
	counters.ObserveError(data.Origin, data.Type)
	for _, n := range e.notifiers {
		n.OnError(data)
	}
	go e.observeErrors()
}

func (e *ErrorListener) observeErrors() {
	if e.db == nil {
		return
	}
	counter, err := e.db.GetTodayErrorCount()
	if err != nil {
		e.log.Error("getting today's error count", err)
		return
	}
	for _, c := range counter {
		id := c.ID
		e.log.FeatureEvent("ErrorListener", id.Origin, fmt.Sprintf("updating counter: %v -- %d", id.ErrorType, c.Count))
		counters.ErrorsToday(id.Origin, id.ErrorType, c.Count)
	}
}
