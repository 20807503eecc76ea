package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/api/responses"
	"github.com/sokonihq/sokoni-backend/api/validators"
	"github.com/sokonihq/sokoni-backend/internal/escrow"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
)

type escrowResolutionRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// ReleaseEscrow pays the held amount out to the seller.
func ReleaseEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveEscrow(svc, logg, func(r *http.Request, svc escrow.Service, input escrow.ResolveInput) error {
		_, err := svc.Release(r.Context(), input)
		return err
	})
}

// RefundEscrow returns the held amount to the buyer.
func RefundEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveEscrow(svc, logg, func(r *http.Request, svc escrow.Service, input escrow.ResolveInput) error {
		_, err := svc.Refund(r.Context(), input)
		return err
	})
}

func resolveEscrow(svc escrow.Service, logg *logger.Logger, apply func(*http.Request, escrow.Service, escrow.ResolveInput) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}

		adminID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "transactionId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required"))
			return
		}
		transactionID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		var payload escrowResolutionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := escrow.ResolveInput{
			TransactionID: transactionID,
			AdminUserID:   adminID,
			Reason:        payload.Reason,
		}
		if err := apply(r, svc, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// ListEscrow pages escrow transactions, optionally filtered by status.
func ListEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.EscrowStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseEscrowStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid status %q", raw)))
				return
			}
			status = &parsed
		}

		list, err := svc.List(r.Context(), status, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transactions": list})
	}
}
