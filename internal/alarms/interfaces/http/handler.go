package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	alarmapp "gridwatch/internal/alarms/application"
	alarms "gridwatch/internal/alarms/domain"
	"gridwatch/internal/alarms/interfaces"
	"gridwatch/internal/audit"
	"gridwatch/internal/auth"
	"gridwatch/internal/observability/metrics"
)

const timeLayout = time.RFC3339

// Handler provides alarm HTTP endpoints.
type Handler struct {
	service     *alarmapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *alarmapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alarms handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles /api/v1/alarms and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alarms":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/alarms/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleStats(w, r)
	case r.URL.Path == "/api/v1/alarms/counts-by-site":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCountsBySite(w, r)
	case r.URL.Path == "/api/v1/alarms/clear":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleClear(w, r)
	case r.URL.Path == "/api/v1/alarms/export.pdf":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExportPDF(w, r)
	case r.URL.Path == "/api/v1/alarms/export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExportXLSX(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/alarms/"):
		h.handleByID(w, r, strings.TrimPrefix(r.URL.Path, "/api/v1/alarms/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alarms.Alarm{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	filter := alarms.ListFilter{IncludeArchived: parseBoolQuery(r, "include_archived")}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	bySeverity := make(map[string]int)
	byStatus := make(map[string]int)
	for _, alarm := range list {
		bySeverity[alarm.Severity]++
		byStatus[alarm.Status]++
	}
	resp := map[string]any{
		"total":       len(list),
		"by_severity": bySeverity,
		"by_status":   byStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleCountsBySite(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.CountActiveBySite(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if counts == nil {
		counts = map[string]int{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(counts)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action == "" {
		action = "archive"
	}
	if action != "archive" {
		http.Error(w, "unsupported action", http.StatusBadRequest)
		return
	}
	affected, err := h.service.ArchiveOpen(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]any{
		"success":  true,
		"action":   action,
		"affected": affected,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
	h.logAudit(r, "", "alarm.clear", map[string]any{
		"action":   action,
		"affected": affected,
	})
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "ack":
			h.handleAcknowledge(w, r, id)
			return
		case "resolve":
			h.handleResolve(w, r, id)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	alarm, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alarm)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		By string `json:"by"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	by := req.By
	if by == "" {
		by = auth.SubjectFromContext(r.Context())
	}
	alarm, err := h.service.Acknowledge(r.Context(), id, by)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alarm)
	h.logAudit(r, alarm.Site, "alarm.ack", map[string]any{
		"alarm_id": alarm.ID,
		"by":       by,
	})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		By    string `json:"by"`
		Notes string `json:"resolution_notes"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	by := req.By
	if by == "" {
		by = auth.SubjectFromContext(r.Context())
	}
	alarm, err := h.service.Resolve(r.Context(), id, by, req.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alarm)
	h.logAudit(r, alarm.Site, "alarm.resolve", map[string]any{
		"alarm_id": alarm.ID,
		"by":       by,
	})
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveAlarmExport("pdf", result, time.Since(start))
	}()

	filter, err := parseListFilter(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := interfaces.BuildAlarmReportPDF(list, time.Now().UTC())
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, filter.Site, "alarm.export", map[string]any{"format": "pdf"})
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveAlarmExport("xlsx", result, time.Since(start))
	}()

	filter, err := parseListFilter(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := interfaces.BuildAlarmReportXLSX(list, time.Now().UTC())
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, filter.Site, "alarm.export", map[string]any{"format": "xlsx"})
}

func (h *Handler) logAudit(r *http.Request, site, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	actor := auth.SubjectFromContext(r.Context())
	role := auth.RoleFromContext(r.Context())
	entry := audit.Entry{
		Actor:        actor,
		Role:         string(role),
		Action:       action,
		ResourceType: "alarm",
		Site:         site,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if id, ok := meta["alarm_id"].(string); ok {
		entry.ResourceID = id
	}
	_ = h.auditLogger.Log(r.Context(), entry)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, alarms.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, alarms.ErrInvalidTransition) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func parseListFilter(r *http.Request) (alarms.ListFilter, error) {
	filter := alarms.ListFilter{
		Status:          r.URL.Query().Get("status"),
		Severity:        r.URL.Query().Get("severity"),
		Category:        r.URL.Query().Get("category"),
		Site:            r.URL.Query().Get("site"),
		IncludeArchived: parseBoolQuery(r, "include_archived"),
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return alarms.ListFilter{}, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return alarms.ListFilter{}, err
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return alarms.ListFilter{}, errors.New("to must be after from")
	}
	filter.From = from
	filter.To = to
	return filter, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func parseBoolQuery(r *http.Request, key string) bool {
	value := strings.ToLower(r.URL.Query().Get(key))
	return value == "true" || value == "1"
}
