package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"
	"clinic-backoffice/internal/usecase"
	"clinic-backoffice/pkg/response"
	"clinic-backoffice/pkg/validator"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	allocation   usecase.AllocationUsecase
	cancellation usecase.CancellationUsecase
	archival     usecase.ArchivalUsecase
	validator    *validator.CustomValidator
}

func NewBookingHandler(
	allocation usecase.AllocationUsecase,
	cancellation usecase.CancellationUsecase,
	archival usecase.ArchivalUsecase,
	validator *validator.CustomValidator,
) *BookingHandler {
	return &BookingHandler{
		allocation:   allocation,
		cancellation: cancellation,
		archival:     archival,
		validator:    validator,
	}
}

// queueKind resolves the {kind} path segment; the router constrains it to
// the two valid values.
func queueKind(r *http.Request) entity.QueueKind {
	return entity.QueueKind(mux.Vars(r)["kind"])
}

// writeEngineError maps engine sentinel errors onto the stable error codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidKind),
		errors.Is(err, usecase.ErrInvalidDate),
		errors.Is(err, usecase.ErrInvalidStatus),
		errors.Is(err, usecase.ErrCapacityUnresolved),
		errors.Is(err, usecase.ErrDateRequired):
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, err.Error())
	case errors.Is(err, usecase.ErrClinicNotFound),
		errors.Is(err, usecase.ErrLedgerNotFound),
		errors.Is(err, usecase.ErrDayNotFound),
		errors.Is(err, usecase.ErrBookingNotFound):
		response.DomainError(w, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, usecase.ErrDuplicateBooking):
		response.DomainError(w, http.StatusConflict, response.CodeDuplicateBooking, err.Error())
	case errors.Is(err, usecase.ErrCapacityExceeded):
		response.DomainError(w, http.StatusConflict, response.CodeCapacityExceeded, err.Error())
	case errors.Is(err, usecase.ErrNoAvailability):
		response.DomainError(w, http.StatusConflict, response.CodeNoAvailability, err.Error())
	case errors.Is(err, usecase.ErrDayClosed),
		errors.Is(err, usecase.ErrDayAlreadyClosed):
		response.DomainError(w, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, usecase.ErrStoreConflict):
		response.DomainError(w, http.StatusConflict, response.CodePersistence, err.Error())
	default:
		response.InternalServerError(w, "")
	}
}

func (h *BookingHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.allocation.CreateTable(r.Context(), queueKind(r), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Day tables processed", result)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req dto.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.allocation.Book(r.Context(), queueKind(r), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Booking created", result)
}

func (h *BookingHandler) AddDay(w http.ResponseWriter, r *http.Request) {
	var req dto.AddDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.allocation.AddDay(r.Context(), queueKind(r), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Outcome != string(usecase.OutcomeCreated) {
		status = http.StatusOK
	}
	response.Success(w, status, "Day processed", result)
}

func (h *BookingHandler) EditStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.EditStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.cancellation.SetStatus(r.Context(), queueKind(r), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Booking status updated", result)
}

func (h *BookingHandler) CloseTable(w http.ResponseWriter, r *http.Request) {
	var req dto.CloseTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.archival.CloseTable(r.Context(), queueKind(r), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Day closed and archived", result)
}

func (h *BookingHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.archival.SaveSnapshot(r.Context(), queueKind(r), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Day snapshot archived", result)
}

func (h *BookingHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	clinicID, err := strconv.ParseUint(vars["clinic_id"], 10, 32)
	if err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid clinic ID")
		return
	}

	filter := repository.ArchiveFilter{
		FromDate: r.URL.Query().Get("from_date"),
		ToDate:   r.URL.Query().Get("to_date"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid limit")
			return
		}
		filter.Limit = n
	}

	result, err := h.archival.ListArchives(r.Context(), queueKind(r), uint(clinicID), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Archives retrieved", result)
}

// VerifyCode is served on the priority queue only; the router does not mount
// it for the standard family.
func (h *BookingHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.allocation.VerifyCode(r.Context(), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Code verified", result)
}
