package web

import (
	"errors"
	"net/http"

	"go-jobportal-web/internal/delivery/http/middleware"
	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/identity"
	"go-jobportal-web/internal/session"
	"go-jobportal-web/internal/usecase"
	"go-jobportal-web/pkg/validation"

	"github.com/gin-gonic/gin"
)

func identityStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDuplicateAccount), errors.Is(err, domain.ErrFederatedConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWeakCredential):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusUnauthorized
	}
}

func identityErrors(err error) validation.FieldErrors {
	errs := validation.FieldErrors{}
	errs.Add("_form", identity.Message(err))
	return errs
}

func (h *Handler) renderLogin(c *gin.Context, status int, form usecase.LoginForm, errs validation.FieldErrors) {
	form.Password = ""
	h.render(c, status, "login.html", "Login", gin.H{"Form": form, "Errors": errs})
}

func (h *Handler) loginPage(c *gin.Context) {
	redirect := session.SafeReturnPath(c.Query("redirect"))
	if currentIdentity(c) != nil {
		c.Redirect(http.StatusSeeOther, redirect)
		return
	}
	h.renderLogin(c, http.StatusOK, usecase.LoginForm{Redirect: redirect}, nil)
}

func (h *Handler) loginSubmit(c *gin.Context) {
	var form usecase.LoginForm
	_ = c.ShouldBind(&form)
	form.Redirect = session.SafeReturnPath(form.Redirect)

	if errs := form.Validate(h.validate); errs.Any() {
		h.renderLogin(c, http.StatusUnprocessableEntity, form, errs)
		return
	}

	ident, err := h.auth.Login(c.Request.Context(), session.IDFromContext(c.Request.Context()), form.Email, form.Password, c.ClientIP())
	if err != nil {
		middleware.RefreshSession(c, h.store)
		h.renderLogin(c, identityStatus(err), form, identityErrors(err))
		return
	}

	h.flash(c, "success", "Login successful", "Welcome back, "+displayName(ident)+"!")
	c.Redirect(http.StatusSeeOther, form.Redirect)
}

func displayName(ident *domain.Identity) string {
	if n := ident.NameOrEmpty(); n != "" {
		return n
	}
	return ident.EmailOrEmpty()
}

func (h *Handler) renderRegister(c *gin.Context, status int, form usecase.RegisterForm, errs validation.FieldErrors) {
	strength := usecase.PasswordStrength(form.Password)
	form.Password, form.ConfirmPassword = "", ""
	h.render(c, status, "register.html", "Register", gin.H{
		"Form":     form,
		"Errors":   errs,
		"Strength": strength,
	})
}

func (h *Handler) registerPage(c *gin.Context) {
	if currentIdentity(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	h.renderRegister(c, http.StatusOK, usecase.RegisterForm{}, nil)
}

func (h *Handler) registerSubmit(c *gin.Context) {
	var form usecase.RegisterForm
	_ = c.ShouldBind(&form)

	if errs := form.Validate(h.validate); errs.Any() {
		h.renderRegister(c, http.StatusUnprocessableEntity, form, errs)
		return
	}

	ident, err := h.auth.Register(c.Request.Context(), session.IDFromContext(c.Request.Context()), form)
	if err != nil {
		middleware.RefreshSession(c, h.store)
		h.renderRegister(c, identityStatus(err), form, identityErrors(err))
		return
	}

	h.flash(c, "success", "Registration successful", "Welcome, "+displayName(ident)+"!")
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) federatedStart(c *gin.Context) {
	kind := domain.ProviderKind(c.Param("provider"))
	if !kind.Valid() {
		h.notFound(c)
		return
	}

	ctx := c.Request.Context()
	returnTo := session.SafeReturnPath(c.Query("redirect"))
	authURL, err := h.store.BeginFederated(ctx, session.IDFromContext(ctx), kind, returnTo)
	if err != nil {
		h.flash(c, "error", "Sign-in failed", identity.Message(err))
		c.Redirect(http.StatusSeeOther, session.LoginURL(returnTo))
		return
	}
	c.Redirect(http.StatusSeeOther, authURL)
}

func (h *Handler) federatedCallback(c *gin.Context) {
	ctx := c.Request.Context()
	ident, returnTo, err := h.store.CompleteFederated(ctx, session.IDFromContext(ctx), c.Request.URL.Query())
	returnTo = session.SafeReturnPath(returnTo)
	if err != nil {
		kind, title := "error", "Sign-in failed"
		if errors.Is(err, domain.ErrUserCancelled) {
			kind, title = "info", "Sign-in cancelled"
		}
		msg := identity.Message(err)
		if errors.Is(err, session.ErrFlowExpired) {
			msg = err.Error()
		}
		h.flash(c, kind, title, msg)
		c.Redirect(http.StatusSeeOther, session.LoginURL(returnTo))
		return
	}

	h.flash(c, "success", "Login successful", "Welcome, "+displayName(ident)+"!")
	c.Redirect(http.StatusSeeOther, returnTo)
}

func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.auth.Logout(ctx, session.IDFromContext(ctx)); err != nil {
		h.log.Warn("logout did not settle", "error", err)
		h.flash(c, "error", "Logout", identity.Message(err))
	} else {
		h.flash(c, "success", "Logged out", "You have been logged out successfully.")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) renderProfile(c *gin.Context, status int, form usecase.ProfileForm, errs validation.FieldErrors) {
	h.render(c, status, "profile.html", "Profile", gin.H{"Form": form, "Errors": errs})
}

func (h *Handler) profilePage(c *gin.Context) {
	ident := currentIdentity(c)
	form := usecase.ProfileForm{Name: ident.NameOrEmpty()}
	if ident.AvatarURL != nil {
		form.PhotoURL = *ident.AvatarURL
	}
	h.renderProfile(c, http.StatusOK, form, nil)
}

func (h *Handler) profileSubmit(c *gin.Context) {
	var form usecase.ProfileForm
	_ = c.ShouldBind(&form)
	if errs := form.Validate(h.validate); errs.Any() {
		h.renderProfile(c, http.StatusUnprocessableEntity, form, errs)
		return
	}

	ctx := c.Request.Context()
	if err := h.store.UpdateProfile(ctx, session.IDFromContext(ctx), form.Update()); err != nil {
		middleware.RefreshSession(c, h.store)
		h.renderProfile(c, identityStatus(err), form, identityErrors(err))
		return
	}

	h.flash(c, "success", "Profile updated", "Your profile has been saved.")
	c.Redirect(http.StatusSeeOther, "/profile")
}
