package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"evcp/api"
	"evcp/auth"
	"evcp/devicemodel"
	"evcp/internal"
	"evcp/internal/config"
	"evcp/internal/errorlistener"
	"evcp/internal/msgstore"
	"evcp/metrics"
	"evcp/ocpp/diagnostics"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/transactions"
	"evcp/pki"
	"evcp/scheduler"
	"evcp/session"
	"evcp/station"
	"evcp/tariff"
	"evcp/telegram"
)

const bootReasonKey = "boot_reason"

type chargingStation struct {
	chargePoint *station.ChargePoint
	apiServer   *api.Server
	store       *msgstore.Store
	stop        chan struct{}
	stopOnce    sync.Once
}

func newChargingStation(conf *config.Config) (*chargingStation, error) {
	cs := &chargingStation{stop: make(chan struct{})}

	log.Println("set time zone to " + conf.TimeZone)
	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone initialization failed: %s", err)
	}

	var database internal.Database
	if conf.Mongo.Enabled {
		database, err = internal.NewMongoClient(conf)
		if err != nil {
			return nil, fmt.Errorf("mongodb setup failed: %s", err)
		}
		log.Println("mongodb is configured and enabled")
	} else {
		log.Println("database is disabled")
	}

	logService := internal.NewLogger(location)
	logService.SetDebugMode(conf.IsDebug)
	logService.SetDatabase(database)

	store, err := msgstore.Open(conf.Badger.Path)
	if err != nil {
		return nil, fmt.Errorf("message store setup failed: %s", err)
	}
	cs.store = store

	queue := station.NewQueue(store, conf.Queue.NormalCapacity)
	if err = queue.Restore(); err != nil {
		return nil, fmt.Errorf("restoring queued messages failed: %s", err)
	}

	client := station.NewClient(conf, logService)
	dispatcher := station.NewDispatcher(queue, client, conf, logService)
	chargePoint := station.NewChargePoint(conf, client, queue, dispatcher, logService)
	cs.chargePoint = chargePoint

	if reason, err := store.GetValue(bootReasonKey); err == nil && reason != "" {
		chargePoint.SetBootReason(provisioning.BootReason(reason))
		_ = store.SetValue(bootReasonKey, "")
	}

	variables := devicemodel.NewStore(database, logService)
	variables.RegisterDefaults(conf)
	if err = variables.Load(); err != nil {
		return nil, fmt.Errorf("loading device model failed: %s", err)
	}

	authService := auth.NewService(database, variables, chargePoint, logService)
	if err = authService.Load(); err != nil {
		return nil, fmt.Errorf("loading authorization data failed: %s", err)
	}

	meter := session.NewSimulatedMeter()
	sessions := session.NewManager(database, variables, authService, chargePoint, meter, logService, conf.Station.EvseCount)
	if err = sessions.Recover(); err != nil {
		return nil, fmt.Errorf("recovering open transactions failed: %s", err)
	}

	profiles := scheduler.NewArena(database, variables, sessions, logService)
	if err = profiles.Load(); err != nil {
		return nil, fmt.Errorf("loading charging profiles failed: %s", err)
	}

	certificates := pki.NewStore(conf.Pki.CertDir, conf.Pki.Organization, conf.Pki.Country, logService)
	if err = certificates.Open(); err != nil {
		return nil, fmt.Errorf("opening certificate store failed: %s", err)
	}
	authService.SetCertificateStore(certificates)
	client.SetCertificateSource(certificates)

	displays := tariff.NewDisplayStore(database, variables, sessions, logService)
	if err = displays.Load(); err != nil {
		return nil, fmt.Errorf("loading display messages failed: %s", err)
	}

	costs := tariff.NewCostTracker(variables, chargePoint, logService)
	sessions.AddResponseListener(costs.OnTransactionEvent)
	sessions.AddResponseListener(transactionCleanup(displays, profiles))
	sessions.AddSampleListener(costs.Observe)

	chargePoint.Bind(variables, authService, sessions, profiles, certificates, displays, costs)
	chargePoint.SetRestartHandler(cs.restart)
	if database != nil {
		chargePoint.SetLogSource(func(logType diagnostics.LogType) (string, error) {
			entries, err := database.ReadLog()
			if err != nil {
				return "", err
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return "", err
			}
			return string(data), nil
		})
	}

	errorListener := errorlistener.NewErrorListener(database, logService)
	chargePoint.SetErrorSink(errorListener.Events())

	if conf.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(conf.Telegram.ApiKey)
		if err != nil {
			return nil, fmt.Errorf("telegram bot setup failed: %s", err)
		}
		telegramBot.Start()
		errorListener.AddNotifier(telegramBot)
		chargePoint.SetSecurityNotifier(telegramBot.OnSecurityEvent)
		log.Println("telegram bot is configured and enabled")
	}

	if conf.Api.Enabled {
		handler := api.NewHandler(chargePoint, variables, sessions, meter, database, logService)
		handler.SetLifecycleHooks(cs.shutdown, cs.restart)
		cs.apiServer = api.NewServer(conf, handler, logService)
	}

	if conf.Metrics.Enabled {
		go func() {
			if err := metrics.Listen(conf); err != nil {
				logService.Error("metrics server", err)
			}
		}()
	}

	go sessions.Run(cs.stop)

	return cs, nil
}

func (cs *chargingStation) Start() {
	cs.chargePoint.Start()
	if cs.apiServer != nil {
		cs.apiServer.Start()
	}
}

func (cs *chargingStation) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stop)
		cs.chargePoint.Stop()
		if cs.apiServer != nil {
			cs.apiServer.Stop()
		}
		_ = cs.store.Close()
	})
}

// restart persists the boot reason for the next run and exits; the
// process supervisor brings the station back up.
func (cs *chargingStation) restart() {
	_ = cs.store.SetValue(bootReasonKey, string(provisioning.BootReasonRemoteReset))
	cs.Stop()
	os.Exit(0)
}

func (cs *chargingStation) shutdown() {
	cs.Stop()
	os.Exit(0)
}

// transactionCleanup drops the artifacts bound to a transaction once
// its Ended event is answered: display messages and TxProfiles.
func transactionCleanup(displays *tariff.DisplayStore, profiles *scheduler.Arena) func(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse) {
	return func(evseId int, transactionId string, eventType transactions.TransactionEventType, response *transactions.TransactionEventResponse) {
		if eventType != transactions.TransactionEventEnded {
			return
		}
		displays.DropTransactionMessages(transactionId)
		profiles.DropTransactionProfiles(transactionId)
	}
}

func main() {
	conf, err := config.GetConfig()
	if err != nil {
		log.Println("configuration failed", err)
		return
	}

	chargingStation, err := newChargingStation(conf)
	if err != nil {
		log.Println("charging station initialization failed", err)
		return
	}
	chargingStation.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-interrupt
	chargingStation.Stop()
}
