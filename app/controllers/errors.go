package controllers

import (
	"errors"
	"net/http"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
)

// fail maps a service error onto the response envelope.
//
//	ValidationError            422
//	AuthFailure                401
//	ReferentialIntegrityError  409
//	InvalidTransition          409
//	BackendError (not found)   404
//	BackendError               502
func fail(c *ctx.Context, err error) {
	var (
		vErr  *services.ValidationError
		aErr  *services.AuthFailure
		riErr *services.ReferentialIntegrityError
		trErr *services.InvalidTransition
		bErr  *services.BackendError
	)

	switch {
	case errors.As(err, &vErr):
		c.ValidationError(vErr.Fields)

	case errors.As(err, &aErr):
		c.Fail(http.StatusUnauthorized, "Unauthorized", map[string]string{"reason": string(aErr.Reason)})

	case errors.As(err, &riErr):
		c.Fail(http.StatusConflict, riErr.Error(), map[string]interface{}{
			"entity":    riErr.Entity,
			"dependent": riErr.Dependent,
			"count":     riErr.Count,
		})

	case errors.As(err, &trErr):
		c.Fail(http.StatusConflict, trErr.Error(), map[string]string{
			"from": string(trErr.From),
			"to":   string(trErr.To),
		})

	case errors.As(err, &bErr) && bErr.NotFound():
		c.NotFound()

	case errors.As(err, &bErr):
		logger.WithCtx(c.Context()).Error("backend failure", "op", bErr.Op, "error", bErr.Err)
		c.Error(http.StatusBadGateway, "Backend unavailable, try again")

	default:
		logger.WithCtx(c.Context()).Error("unhandled error", "error", err)
		c.Error(http.StatusInternalServerError, "Internal Server Error")
	}
}
