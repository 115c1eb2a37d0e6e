package controllers

import (
	"net/http"

	"github.com/orthodoxmetrics/om-backend/api/responses"
	"github.com/orthodoxmetrics/om-backend/api/validators"
	"github.com/orthodoxmetrics/om-backend/internal/churches"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
)

const churchIDParam = "id"

func ChurchesList(svc churches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.List(r.Context(), p.Actor())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"churches": list})
	}
}

func ChurchGet(svc churches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUintParam(r, churchIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		church, err := svc.Get(r.Context(), p.Actor(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, church)
	}
}

func ChurchCreate(svc churches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		var body churches.CreateChurchInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Name = validators.SanitizeString(body.Name, 255)
		church, err := svc.Create(r.Context(), p.Actor(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, church)
	}
}

func ChurchUpdate(svc churches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUintParam(r, churchIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body churches.UpdateChurchInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		church, err := svc.Update(r.Context(), p.Actor(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, church)
	}
}

func ChurchDeactivate(svc churches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUintParam(r, churchIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), p.Actor(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "is_active": false})
	}
}

func ChurchDatabaseHealth(svc churches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePrincipal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUintParam(r, churchIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		health, err := svc.DatabaseHealth(r.Context(), p.Actor(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, health)
	}
}
