package controllers

import (
	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
)

type AuthController struct {
	gate *services.IdentityGate
}

func NewAuthController(gate *services.IdentityGate) *AuthController {
	return &AuthController{gate: gate}
}

// PinLogin handles POST /api/auth/pin.
func (a *AuthController) PinLogin(c *ctx.Context) {
	var body struct {
		PIN string `json:"pin"`
	}
	if !c.BindJSON(&body) {
		return
	}

	login, err := a.gate.Login(c.Context(), body.PIN)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(login)
}

// AdminLogin handles POST /api/auth/admin.
func (a *AuthController) AdminLogin(c *ctx.Context) {
	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !c.BindJSON(&body) {
		return
	}

	login, err := a.gate.AdminLogin(c.Context(), body.Name, body.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(login)
}

// Logout handles POST /api/auth/logout. The bearer token stops working
// immediately because its session is gone.
func (a *AuthController) Logout(c *ctx.Context) {
	redirect, err := a.gate.Logout(c.Context(), c.SessionID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"redirect": redirect})
}

// Me handles GET /api/auth/me.
func (a *AuthController) Me(c *ctx.Context) {
	id, ok := identity(c)
	if !ok {
		c.Unauthorized()
		return
	}
	c.Success(map[string]interface{}{
		"user":       id,
		"session_id": c.SessionID(),
		"redirect":   id.Landing(),
	})
}

// identity is the staff member behind the request, as set by the auth
// middleware.
func identity(c *ctx.Context) (models.Identity, bool) {
	p, ok := c.Principal()
	if !ok {
		return models.Identity{}, false
	}
	id, ok := p.(models.Identity)
	return id, ok
}
