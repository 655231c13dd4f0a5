package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"evcp/devicemodel"
	"evcp/internal"
	"evcp/ocpp"
	"evcp/ocpp/provisioning"
	"evcp/ocpp/types"
	"evcp/session"
	"evcp/station"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	logger      internal.LogHandler
	database    internal.Database
	chargePoint *station.ChargePoint
	variables   *devicemodel.Store
	sessions    *session.Manager
	meter       *session.SimulatedMeter
	onStop      func()
	onRestart   func()
}

func NewHandler(chargePoint *station.ChargePoint, variables *devicemodel.Store, sessions *session.Manager,
	meter *session.SimulatedMeter, database internal.Database, logger internal.LogHandler) *Handler {
	return &Handler{
		logger:      logger,
		database:    database,
		chargePoint: chargePoint,
		variables:   variables,
		sessions:    sessions,
		meter:       meter,
	}
}

func (h *Handler) SetLifecycleHooks(onStop, onRestart func()) {
	h.onStop = onStop
	h.onRestart = onRestart
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	evses := make(map[int]string)
	for _, evseId := range h.sessions.EvseIds() {
		if status, ok := h.sessions.Status(evseId); ok {
			evses[evseId] = string(status)
		}
	}
	writeJson(w, http.StatusOK, map[string]interface{}{
		"registration": string(h.chargePoint.RegistrationStatus()),
		"connected":    h.chargePoint.IsOnline(),
		"evses":        evses,
	})
}

func (h *Handler) ReadLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.database == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	data, err := h.database.ReadLog()
	if err != nil {
		h.logger.Error("reading log", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJson(w, http.StatusOK, data)
}

// DumpVariables renders the full device model as a text table.
func (h *Handler) DumpVariables(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report := h.variables.BaseReport(provisioning.ReportBaseFullInventory)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Component", "Instance", "EVSE", "Variable", "Value", "Mutability"})
	for _, entry := range report {
		evse := ""
		if entry.Component.EVSE != nil {
			evse = fmt.Sprintf("%d", entry.Component.EVSE.Id)
		}
		for _, attribute := range entry.VariableAttribute {
			t.AppendRow(table.Row{
				entry.Component.Name,
				entry.Component.Instance,
				evse,
				entry.Variable.Name,
				attribute.Value,
				string(attribute.Mutability),
			})
		}
	}
	t.SortBy([]table.SortBy{{Name: "Component"}, {Name: "Variable"}})
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(t.Render() + "\n"))
}

type setVariableCommand struct {
	Component string `json:"component"`
	Variable  string `json:"variable"`
	Value     string `json:"value"`
}

func (h *Handler) SetVariables(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command setVariableCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results := h.variables.SetVariables([]provisioning.SetVariableData{{
		Component:      types.Component{Name: command.Component},
		Variable:       types.Variable{Name: command.Variable},
		AttributeValue: command.Value,
	}}, devicemodel.SourceInternal)
	writeJson(w, http.StatusOK, results)
}

type availabilityCommand struct {
	EvseId    int  `json:"evseId"`
	Operative bool `json:"operative"`
}

func (h *Handler) ChangeAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command availabilityCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := h.sessions.ChangeAvailability(command.EvseId, command.Operative)
	writeJson(w, http.StatusOK, map[string]string{"status": string(status)})
}

type securityEventCommand struct {
	Type     string `json:"type"`
	TechInfo string `json:"techInfo"`
}

func (h *Handler) SecurityEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command securityEventCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if command.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	h.chargePoint.SendSecurityEvent(command.Type, command.TechInfo)
	writeJson(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) DataTransfer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var request ocpp.DataTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.VendorId == "" {
		writeError(w, http.StatusBadRequest, "vendorId is required")
		return
	}
	response, err := h.chargePoint.SendDataTransfer(&request)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJson(w, http.StatusOK, response)
}

type evseCommand struct {
	EvseId int `json:"evseId"`
}

func (h *Handler) PlugIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command evseCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sessions.PlugIn(command.EvseId)
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) PlugOut(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command evseCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sessions.PlugOut(command.EvseId)
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authorizeCommand struct {
	EvseId      int    `json:"evseId"`
	IdToken     string `json:"idToken"`
	Type        string `json:"type"`
	Certificate string `json:"certificate"`
}

func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command authorizeCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tokenType := types.IdTokenType(command.Type)
	if command.Type == "" {
		tokenType = types.IdTokenTypeISO14443
	}
	token := types.IdToken{IdToken: command.IdToken, Type: tokenType}
	if command.Certificate != "" {
		if command.Type == "" {
			token.Type = types.IdTokenTypeEMAID
		}
		info := h.sessions.AuthorizeContract(command.EvseId, token, command.Certificate)
		writeJson(w, http.StatusOK, info)
		return
	}
	info := h.sessions.Authorize(command.EvseId, token)
	writeJson(w, http.StatusOK, info)
}

type powerCommand struct {
	EvseId int     `json:"evseId"`
	PowerW float64 `json:"powerW"`
}

func (h *Handler) SetPower(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var command powerCommand
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.meter.SetPower(command.EvseId, command.PowerW)
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJson(w, http.StatusOK, map[string]string{"status": "stopping"})
	if h.onStop != nil {
		go h.onStop()
	}
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJson(w, http.StatusOK, map[string]string{"status": "restarting"})
	if h.onRestart != nil {
		go h.onRestart()
	}
}
