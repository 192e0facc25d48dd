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
	"github.com/developerakkoo/Porttivo-API/internal/media"
	"github.com/developerakkoo/Porttivo-API/internal/middleware"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
	"github.com/developerakkoo/Porttivo-API/internal/trip/service"
	"github.com/developerakkoo/Porttivo-API/utils"
)

// maxPhotoMemory caps the in-memory part of multipart parsing.
const maxPhotoMemory = 32 << 20

type TripRouter struct {
	trips        *service.TripService
	queue        *service.QueueService
	availability *service.AvailabilityService
	media        *media.Service
}

func NewTripRouter(trips *service.TripService, queue *service.QueueService, availability *service.AvailabilityService, mediaSvc *media.Service) *TripRouter {
	return &TripRouter{
		trips:        trips,
		queue:        queue,
		availability: availability,
		media:        mediaSvc,
	}
}

// Register wires the trip endpoints onto the mux. The shared-trip endpoint
// is public; everything else requires a resolved identity.
func (tr *TripRouter) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/trips", middleware.RequireActor(tr.HandleCreateTrip))
	mux.HandleFunc("GET /api/trips", middleware.RequireActor(tr.HandleListTrips))
	mux.HandleFunc("GET /api/trips/shared/{token}", tr.HandleGetSharedTrip)
	mux.HandleFunc("GET /api/trips/{tripID}", middleware.RequireActor(tr.HandleGetTrip))
	mux.HandleFunc("PATCH /api/trips/{tripID}", middleware.RequireActor(tr.HandleUpdateTrip))
	mux.HandleFunc("POST /api/trips/{tripID}/start", middleware.RequireActor(tr.HandleStartTrip))
	mux.HandleFunc("POST /api/trips/{tripID}/milestones", middleware.RequireActor(tr.HandleRecordMilestone))
	mux.HandleFunc("POST /api/trips/{tripID}/complete", middleware.RequireActor(tr.HandleCompleteTrip))
	mux.HandleFunc("POST /api/trips/{tripID}/cancel", middleware.RequireActor(tr.HandleCancelTrip))
	mux.HandleFunc("POST /api/trips/{tripID}/pod", middleware.RequireActor(tr.HandleUploadPOD))
	mux.HandleFunc("POST /api/trips/{tripID}/pod/approve", middleware.RequireActor(tr.HandleApprovePOD))
	mux.HandleFunc("POST /api/trips/{tripID}/share", middleware.RequireActor(tr.HandleShareTrip))
	mux.HandleFunc("GET /api/trips/{tripID}/timeline", middleware.RequireActor(tr.HandleTripTimeline))
	mux.HandleFunc("GET /api/vehicles/{vehicleID}/queue", middleware.RequireActor(tr.HandleVehicleQueue))
	mux.HandleFunc("GET /api/vehicles/{vehicleID}/availability", middleware.RequireActor(tr.HandleVehicleAvailability))
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

// HandleCreateTrip handles POST /api/trips requests
func (tr *TripRouter) HandleCreateTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var createReq model.CreateTripDTO
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	trip, err := tr.trips.Create(r.Context(), actor, &createReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// HandleListTrips handles GET /api/trips requests
// Optional query filters: vehicleId, driverId, status, tripType, search,
// from, to, offset, limit
func (tr *TripRouter) HandleListTrips(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var filter model.TripFilter
	q := r.URL.Query()

	if raw := q.Get("vehicleId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, domain.NewValidationError("vehicleId", "must be a uuid"))
			return
		}
		filter.VehicleID = &id
	}
	if raw := q.Get("driverId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, domain.NewValidationError("driverId", "must be a uuid"))
			return
		}
		filter.DriverID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := model.Status(strings.ToUpper(raw))
		filter.Status = &status
	}
	if raw := q.Get("tripType"); raw != "" {
		tripType := model.TripType(strings.ToUpper(raw))
		filter.TripType = &tripType
	}
	filter.Search = q.Get("search")
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

	trips, total, err := tr.trips.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trips":  trips,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleGetTrip handles GET /api/trips/{tripID} requests
func (tr *TripRouter) HandleGetTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	trip, err := tr.trips.Get(r.Context(), actor, tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleUpdateTrip handles PATCH /api/trips/{tripID} requests
func (tr *TripRouter) HandleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}

	var updateReq model.UpdateTripDTO
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	defer r.Body.Close()

	trip, err := tr.trips.Update(r.Context(), actor, tripID, &updateReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleStartTrip handles POST /api/trips/{tripID}/start requests
func (tr *TripRouter) HandleStartTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	trip, err := tr.trips.Start(r.Context(), actor, tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleRecordMilestone handles POST /api/trips/{tripID}/milestones requests.
// The driver app sends multipart form data with milestoneNumber, latitude,
// longitude and an optional photo; plain JSON is also accepted.
func (tr *TripRouter) HandleRecordMilestone(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.RecordMilestoneDTO
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxPhotoMemory); err != nil {
			writeError(w, domain.NewValidationError("body", "failed to parse form"))
			return
		}
		number, err := strconv.Atoi(r.FormValue("milestoneNumber"))
		if err != nil {
			writeError(w, domain.NewValidationError("milestoneNumber", "must be an integer"))
			return
		}
		req.Number = number
		lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
		if err != nil {
			writeError(w, domain.NewValidationError("latitude", "must be a number"))
			return
		}
		lon, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
		if err != nil {
			writeError(w, domain.NewValidationError("longitude", "must be a number"))
			return
		}
		req.Location = model.Coordinates{Latitude: lat, Longitude: lon}

		if file, header, err := r.FormFile("photo"); err == nil {
			defer file.Close()
			photo, err := tr.media.Store(r.Context(), media.CategoryMilestones, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
			if err != nil {
				writeError(w, err)
				return
			}
			req.Photo = photo.URL
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		defer r.Body.Close()
	}

	trip, err := tr.trips.RecordMilestone(r.Context(), actor, tripID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleCompleteTrip handles POST /api/trips/{tripID}/complete requests
func (tr *TripRouter) HandleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	trip, err := tr.trips.Complete(r.Context(), actor, tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleCancelTrip handles POST /api/trips/{tripID}/cancel requests
func (tr *TripRouter) HandleCancelTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}

	var cancelReq model.CancelTripDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&cancelReq); err != nil {
			writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		defer r.Body.Close()
	}

	trip, err := tr.trips.Cancel(r.Context(), actor, tripID, &cancelReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleUploadPOD handles POST /api/trips/{tripID}/pod requests. The proof
// of delivery photo arrives as multipart form data.
func (tr *TripRouter) HandleUploadPOD(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxPhotoMemory); err != nil {
		writeError(w, domain.NewValidationError("body", "failed to parse form"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, domain.NewValidationError("photo", "photo file is required"))
		return
	}
	defer file.Close()

	photo, err := tr.media.Store(r.Context(), media.CategoryPOD, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}

	trip, err := tr.trips.UploadPOD(r.Context(), actor, tripID, photo.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleApprovePOD handles POST /api/trips/{tripID}/pod/approve requests
func (tr *TripRouter) HandleApprovePOD(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	trip, err := tr.trips.ApprovePOD(r.Context(), actor, tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleShareTrip handles POST /api/trips/{tripID}/share requests
func (tr *TripRouter) HandleShareTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}

	var shareReq model.ShareTripDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&shareReq); err != nil {
			writeError(w, domain.NewValidationError("body", fmt.Sprintf("invalid request body: %v", err)))
			return
		}
		defer r.Body.Close()
	}

	trip, err := tr.trips.Share(r.Context(), actor, tripID, &shareReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shareToken":       trip.ShareToken,
		"shareTokenExpiry": trip.ShareTokenExp,
	})
}

// HandleGetSharedTrip handles GET /api/trips/shared/{token} requests.
// This endpoint is public; the unguessable token is the credential.
func (tr *TripRouter) HandleGetSharedTrip(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, domain.NewValidationError("token", "missing token in path"))
		return
	}
	trip, err := tr.trips.GetShared(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// HandleTripTimeline handles GET /api/trips/{tripID}/timeline requests
func (tr *TripRouter) HandleTripTimeline(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	timeline, err := tr.trips.Timeline(r.Context(), actor, tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

// HandleVehicleQueue handles GET /api/vehicles/{vehicleID}/queue requests
func (tr *TripRouter) HandleVehicleQueue(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := tr.queue.Status(r.Context(), vehicleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleVehicleAvailability handles GET /api/vehicles/{vehicleID}/availability requests
func (tr *TripRouter) HandleVehicleAvailability(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		writeError(w, err)
		return
	}
	availability, err := tr.availability.Resolve(r.Context(), vehicleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
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
