package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"balangay/internal/access"
	"balangay/internal/geo"
	"balangay/internal/household"
	"balangay/internal/principal"
	id "balangay/pkg/domain"
	dErrors "balangay/pkg/domain-errors"
	"balangay/pkg/requestcontext"
)

// Handler delegates to the domain services.
type Handler struct {
	principals *principal.Service
	access     *access.Service
	households *household.Service
	log        *slog.Logger
}

func NewHandler(principals *principal.Service, accessSvc *access.Service, households *household.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		principals: principals,
		access:     accessSvc,
		households: households,
		log:        log,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createPrincipalRequest struct {
	ExternalIdentityID string `json:"external_identity_id"`
	BarangayCode       string `json:"barangay_code"`
}

func (h *Handler) handleCreatePrincipal(w http.ResponseWriter, r *http.Request) {
	var req createPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}

	p, err := h.principals.CreatePrincipal(r.Context(), req.ExternalIdentityID, req.BarangayCode)
	if err != nil {
		// Idempotent signup: a duplicate returns the existing principal with
		// conflict status instead of re-deciding a role.
		if dErrors.HasCode(err, dErrors.CodeConflict) && p != nil {
			writeJSON(w, http.StatusConflict, p)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type checkAccessRequest struct {
	PrincipalID   string `json:"principal_id"`
	Operation     string `json:"operation"`
	TargetGeoCode string `json:"target_geo_code"`
}

func (h *Handler) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	var req checkAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}

	// Default to the authenticated principal when no explicit subject is
	// given. Any authenticated caller may check any subject: the response
	// grants nothing, it only reports what the subject could do.
	pid := requestcontext.PrincipalID(r.Context())
	if req.PrincipalID != "" {
		parsed, err := id.ParsePrincipalID(req.PrincipalID)
		if err != nil {
			writeError(w, err)
			return
		}
		pid = parsed
	}

	op, ok := access.ParseOperation(req.Operation)
	if !ok {
		writeError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown operation %q", req.Operation))
		return
	}

	grant, err := h.access.CheckAccess(r.Context(), pid, op, geo.Code(req.TargetGeoCode))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (h *Handler) handleDeactivatePrincipal(w http.ResponseWriter, r *http.Request) {
	pid, err := id.ParsePrincipalID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.principals.Deactivate(r.Context(), pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createHouseholdRequest struct {
	HeadName    string `json:"head_name"`
	AddressLine string `json:"address_line"`
}

func (h *Handler) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}

	actor := requestcontext.PrincipalID(r.Context())
	rec, err := h.households.CreateHousehold(r.Context(), actor, household.Attributes{
		HeadName:    req.HeadName,
		AddressLine: req.AddressLine,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	rec, err := h.households.GetHousehold(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	// Every data read passes the evaluator before the row leaves the API.
	actor := requestcontext.PrincipalID(r.Context())
	grant, err := h.access.CheckAccess(r.Context(), actor, access.OpRead, rec.BarangayCode)
	if err != nil {
		writeError(w, err)
		return
	}
	if !grant.Allowed {
		writeError(w, dErrors.Newf(dErrors.CodePermissionDenied, "read denied: %s", grant.Reason))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type migrateRequest struct {
	BarangayCodes []string `json:"barangay_codes"`
}

func (h *Handler) handleMigrateLegacyCodes(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return
	}
	if len(req.BarangayCodes) == 0 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "at least one barangay code is required"))
		return
	}

	// Migration is an administrative batch; only a nationally scoped
	// principal may trigger it.
	actor := requestcontext.PrincipalID(r.Context())
	grant, err := h.access.CheckAccess(r.Context(), actor, access.OpWrite, geo.Code(req.BarangayCodes[0]))
	if err != nil {
		writeError(w, err)
		return
	}
	if !grant.Allowed || grant.Reason != access.ReasonGlobalScope {
		writeError(w, dErrors.New(dErrors.CodePermissionDenied, "code migration requires global scope"))
		return
	}

	codes := make([]geo.Code, 0, len(req.BarangayCodes))
	for _, c := range req.BarangayCodes {
		codes = append(codes, geo.Code(c))
	}
	reports, err := h.households.MigrateLegacyCodes(r.Context(), codes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
