package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/service"
	"github.com/developerakkoo/Porttivo-API/internal/media"
	"github.com/developerakkoo/Porttivo-API/internal/middleware"
	"github.com/developerakkoo/Porttivo-API/utils"
)

// maxReceiptMemory caps the in-memory part of multipart parsing.
const maxReceiptMemory = 32 << 20

type FuelRouter struct {
	fuel  *service.FuelService
	media *media.Service
}

func NewFuelRouter(fuel *service.FuelService, mediaSvc *media.Service) *FuelRouter {
	return &FuelRouter{fuel: fuel, media: mediaSvc}
}

// Register wires the fuel endpoints onto the mux. Every endpoint requires a
// resolved identity.
func (fr *FuelRouter) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/fuel/qr", middleware.RequireActor(fr.HandleGenerateQR))
	mux.HandleFunc("POST /api/fuel/qr/validate", middleware.RequireActor(fr.HandleValidateQR))
	mux.HandleFunc("POST /api/fuel/transactions/submit", middleware.RequireActor(fr.HandleSubmit))
	mux.HandleFunc("GET /api/fuel/transactions", middleware.RequireActor(fr.HandleListTransactions))
	mux.HandleFunc("GET /api/fuel/transactions/{txnID}", middleware.RequireActor(fr.HandleGetTransaction))
	mux.HandleFunc("POST /api/fuel/transactions/{txnID}/confirm", middleware.RequireActor(fr.HandleConfirm))
	mux.HandleFunc("POST /api/fuel/transactions/{txnID}/cancel", middleware.RequireActor(fr.HandleCancel))
	mux.HandleFunc("POST /api/fuel/transactions/{txnID}/receipt", middleware.RequireActor(fr.HandleUploadReceipt))
	mux.HandleFunc("GET /api/fuel/transactions/{txnID}/receipt", middleware.RequireActor(fr.HandleGetReceipt))
	mux.HandleFunc("POST /api/fuel/transactions/{txnID}/flag", middleware.RequireActor(fr.HandleFlag))
	mux.HandleFunc("POST /api/fuel/transactions/{txnID}/resolve", middleware.RequireActor(fr.HandleResolve))
	mux.HandleFunc("GET /api/fuel/fraud/alerts", middleware.RequireActor(fr.HandleFraudAlerts))
	mux.HandleFunc("GET /api/fuel/fraud/stats", middleware.RequireActor(fr.HandleFraudStats))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(name, fmt.Sprintf("missing %s in path", name))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, fmt.Sprintf("invalid %s: %v", name, err))
	}
	return id, nil
}

// HandleGenerateQR handles POST /api/fuel/qr requests
func (fr *FuelRouter) HandleGenerateQR(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req model.GenerateQRDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	txn, err := fr.fuel.GenerateQR(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// HandleValidateQR handles POST /api/fuel/qr/validate requests. Pump staff
// scan the QR code and preview the transaction before settling.
func (fr *FuelRouter) HandleValidateQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRCode string `json:"qrCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	if req.QRCode == "" {
		writeError(w, domain.NewValidationError("qrCode", "qrCode is required"))
		return
	}
	txn, err := fr.fuel.ValidateQR(r.Context(), req.QRCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleConfirm handles POST /api/fuel/transactions/{txnID}/confirm requests
func (fr *FuelRouter) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.ConfirmDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		defer r.Body.Close()
	}

	txn, err := fr.fuel.Confirm(r.Context(), actor, txnID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleCancel handles POST /api/fuel/transactions/{txnID}/cancel requests
func (fr *FuelRouter) HandleCancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.CancelDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		defer r.Body.Close()
	}

	txn, err := fr.fuel.Cancel(r.Context(), actor, txnID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleSubmit handles POST /api/fuel/transactions/submit requests
func (fr *FuelRouter) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req model.SubmitDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	result, err := fr.fuel.Submit(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleUploadReceipt handles POST /api/fuel/transactions/{txnID}/receipt
// requests. The receipt photo arrives as multipart form data.
func (fr *FuelRouter) HandleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxReceiptMemory); err != nil {
		writeError(w, domain.NewValidationError("body", "failed to parse form"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, domain.NewValidationError("photo", "photo file is required"))
		return
	}
	defer file.Close()

	photo, err := fr.media.Store(r.Context(), media.CategoryReceipts, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}

	txn, err := fr.fuel.UploadReceipt(r.Context(), actor, txnID, photo.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleGetReceipt handles GET /api/fuel/transactions/{txnID}/receipt
// requests. It returns the printable settlement summary.
func (fr *FuelRouter) HandleGetReceipt(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := fr.fuel.Receipt(r.Context(), actor, txnID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// HandleFlag handles POST /api/fuel/transactions/{txnID}/flag requests
func (fr *FuelRouter) HandleFlag(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.FlagDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	txn, err := fr.fuel.FlagTransaction(r.Context(), actor, txnID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleResolve handles POST /api/fuel/transactions/{txnID}/resolve requests
func (fr *FuelRouter) HandleResolve(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.ResolveDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	txn, err := fr.fuel.ResolveFraudAlert(r.Context(), actor, txnID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleGetTransaction handles GET /api/fuel/transactions/{txnID} requests
func (fr *FuelRouter) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txnID, err := pathUUID(r, "txnID")
	if err != nil {
		writeError(w, err)
		return
	}
	txn, err := fr.fuel.Get(r.Context(), actor, txnID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// HandleListTransactions handles GET /api/fuel/transactions requests
// Optional query filters: status, vehicleNumber, fuelCardId, from, to,
// offset, limit
func (fr *FuelRouter) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var filter model.TransactionFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := model.TransactionStatus(strings.ToLower(raw))
		filter.Status = &status
	}
	filter.VehicleNumber = q.Get("vehicleNumber")
	if raw := q.Get("fuelCardId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, domain.NewValidationError("fuelCardId", "must be a uuid"))
			return
		}
		filter.FuelCardID = &id
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.NewValidationError("from", "must be an RFC3339 timestamp"))
			return
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.NewValidationError("to", "must be an RFC3339 timestamp"))
			return
		}
		filter.To = &to
	}

	offset, limit, err := paginationFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	txns, total, err := fr.fuel.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"offset":       offset,
		"limit":        limit,
	})
}

// HandleFraudAlerts handles GET /api/fuel/fraud/alerts requests
func (fr *FuelRouter) HandleFraudAlerts(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	offset, limit, err := paginationFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	txns, total, err := fr.fuel.ListFraudAlerts(r.Context(), actor, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": txns,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleFraudStats handles GET /api/fuel/fraud/stats requests
// Optional query filters: from, to
func (fr *FuelRouter) HandleFraudStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.NewValidationError("from", "must be an RFC3339 timestamp"))
			return
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.NewValidationError("to", "must be an RFC3339 timestamp"))
			return
		}
		to = &parsed
	}

	stats, err := fr.fuel.FraudStatistics(r.Context(), actor, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// paginationFromQuery reads offset, page and limit query parameters and
// applies the shared defaults. A page number is honoured only when no
// explicit offset is given.
func paginationFromQuery(r *http.Request) (int, int, error) {
	var offsetPtr, pagePtr, limitPtr *int
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.NewValidationError("offset", "must be an integer")
		}
		offsetPtr = &offset
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.NewValidationError("page", "must be an integer")
		}
		pagePtr = &page
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.NewValidationError("limit", "must be an integer")
		}
		limitPtr = &limit
	}
	if offsetPtr == nil && pagePtr != nil {
		offset, limit := utils.GetPageParams(pagePtr, limitPtr)
		return offset, limit, nil
	}
	offset, limit := utils.GetPaginationParams(offsetPtr, limitPtr)
	return offset, limit, nil
}
