package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	alarms "gridwatch/internal/alarms/domain"
	"gridwatch/internal/audit"
	"gridwatch/internal/auth"
	"gridwatch/internal/observability/metrics"
	"gridwatch/internal/rules/infrastructure/excel"

	rules "gridwatch/internal/rules/domain"
	telemetry "gridwatch/internal/telemetry/domain"
)

// Workbook uploads larger than this are rejected.
const maxImportBytes = 10 << 20

// RuleStore provides rule persistence for the API.
type RuleStore interface {
	List(ctx context.Context, category string) ([]rules.Rule, error)
	Create(ctx context.Context, rule *rules.Rule) error
	Stats(ctx context.Context) (rules.RuleStats, error)
}

// Evaluator runs an on-demand evaluation of one reading.
type Evaluator interface {
	EvaluateAsset(ctx context.Context, assetID string, reading telemetry.Reading, site, region string) ([]alarms.Alarm, error)
}

// Handler serves the rule catalog and on-demand evaluation endpoints.
type Handler struct {
	store       RuleStore
	evaluator   Evaluator
	auditLogger audit.Logger
	logger      *log.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store RuleStore, evaluator Evaluator, auditLogger audit.Logger, logger *log.Logger) (*Handler, error) {
	if store == nil {
		return nil, errors.New("rules http: nil store")
	}
	if evaluator == nil {
		return nil, errors.New("rules http: nil evaluator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{store: store, evaluator: evaluator, auditLogger: auditLogger, logger: logger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/rules":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/api/v1/rules/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleStats(w, r)
	case "/api/v1/rules/import":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleImport(w, r)
	case "/api/v1/evaluate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleEvaluate(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []rules.Rule{}
	}
	resp := map[string]any{
		"rules": list,
		"count": len(list),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if rule.ID == "" {
		rule.ID = "rule-" + uuid.NewString()
	}
	if err := h.store.Create(r.Context(), &rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logAudit(r, "rule.create", map[string]any{"rule_id": rule.ID, "name": rule.Name})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rule)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.IncRuleImport(result)
	}()

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		result = metrics.ResultError
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "file field required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parsed, err := excel.Parse(file)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	imported := 0
	skipped := 0
	for i := range parsed {
		if err := h.store.Create(r.Context(), &parsed[i]); err != nil {
			skipped++
			h.logger.Printf("rule import skipped: name=%q err=%v", parsed[i].Name, err)
			continue
		}
		imported++
	}
	if imported == 0 && skipped > 0 {
		result = metrics.ResultError
	}

	h.logAudit(r, "rule.import", map[string]any{"imported": imported, "skipped": skipped})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"imported": imported,
		"skipped":  skipped,
	})
}

type evaluateRequest struct {
	AssetID string         `json:"asset_id"`
	Reading map[string]any `json:"reading"`
	Site    string         `json:"site"`
	Region  string         `json:"region"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.AssetID == "" {
		http.Error(w, "asset_id required", http.StatusBadRequest)
		return
	}
	if req.Site == "" {
		req.Site = "Unknown"
	}
	if req.Region == "" {
		req.Region = "Unknown"
	}

	reading := telemetry.Reading{AssetID: req.AssetID, Fields: req.Reading}
	created, err := h.evaluator.EvaluateAsset(r.Context(), req.AssetID, reading, req.Site, req.Region)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if created == nil {
		created = []alarms.Alarm{}
	}
	resp := map[string]any{
		"alarms": created,
		"count":  len(created),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) logAudit(r *http.Request, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	actor := auth.SubjectFromContext(r.Context())
	role := auth.RoleFromContext(r.Context())
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        actor,
		Role:         string(role),
		Action:       action,
		ResourceType: "rule",
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
