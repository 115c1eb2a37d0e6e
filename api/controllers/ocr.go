package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	"github.com/orthodoxmetrics/om-backend/api/validators"
	"github.com/orthodoxmetrics/om-backend/internal/ocr"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/pagination"
)

const ocrJobIDParam = "jobId"

func OCRJobsList(svc ocr.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := ocr.ListJobsQuery{Limit: limit, Cursor: r.URL.Query().Get("cursor")}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseOCRJobStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			q.Status = &status
		}
		page, err := svc.List(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OCRJobGet(svc ocr.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.Get(r.Context(), chi.URLParam(r, ocrJobIDParam))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

func OCRJobCreate(svc ocr.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		var body ocr.CreateJobInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		job, err := svc.Create(r.Context(), p.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

func OCRJobUpdate(svc ocr.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ocr.UpdateJobInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		job, err := svc.Update(r.Context(), chi.URLParam(r, ocrJobIDParam), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}
