package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/usecases"
)

const userLocalsKey = "user"

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Pass     string `json:"pass"`
	Type     string `json:"type"`
}

func (r signupRequest) password() string {
	if r.Password != "" {
		return r.Password
	}
	return r.Pass
}

// accountResponse is the envelope every /users endpoint answers with.
type accountResponse struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

func accountError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(accountResponse{Success: false, Message: msg})
}

// SignupHandler creates an account.
func SignupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req signupRequest
		if err := c.BodyParser(&req); err != nil {
			return accountError(c, fiber.StatusBadRequest, "invalid request body")
		}

		user, err := deps.Auth.Signup(c.UserContext(), req.Email, req.password(), req.Type)
		switch {
		case err == nil:
			return c.Status(fiber.StatusCreated).JSON(accountResponse{Success: true, User: user})
		case errors.Is(err, domain.ErrInvalidInput):
			return accountError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrConflict):
			return accountError(c, fiber.StatusConflict, "email already registered")
		}
		LoggerFromCtx(c.UserContext()).Error("signup", "error", err)
		return accountError(c, fiber.StatusInternalServerError, "signup failed")
	}
}

// LoginHandler checks credentials and sets the session cookie.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req signupRequest
		if err := c.BodyParser(&req); err != nil {
			return accountError(c, fiber.StatusBadRequest, "invalid request body")
		}

		token, user, err := deps.Auth.Login(c.UserContext(), req.Email, req.password())
		if err != nil {
			if errors.Is(err, usecases.ErrInvalidCredentials) {
				return accountError(c, fiber.StatusUnauthorized, err.Error())
			}
			LoggerFromCtx(c.UserContext()).Error("login", "error", err)
			return accountError(c, fiber.StatusInternalServerError, "login failed")
		}

		c.Cookie(&fiber.Cookie{
			Name:     deps.cookieName(),
			Value:    token,
			Path:     "/",
			Expires:  time.Now().Add(deps.Auth.SessionTTL()),
			HTTPOnly: true,
			Secure:   deps.AuthConfig.CookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.JSON(accountResponse{Success: true, User: user})
	}
}

// LogoutHandler revokes the session and clears the cookie.
func LogoutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Auth.Logout(c.UserContext(), c.Cookies(deps.cookieName())); err != nil {
			LoggerFromCtx(c.UserContext()).Warn("logout", "error", err)
		}
		c.ClearCookie(deps.cookieName())
		return c.JSON(accountResponse{Success: true})
	}
}

// ProfileHandler returns the logged-in user.
func ProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := deps.Auth.Profile(c.UserContext(), c.Cookies(deps.cookieName()))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return accountError(c, fiber.StatusUnauthorized, "not logged in")
			}
			LoggerFromCtx(c.UserContext()).Error("profile", "error", err)
			return accountError(c, fiber.StatusInternalServerError, "profile lookup failed")
		}
		return c.JSON(accountResponse{Success: true, User: user})
	}
}

// RequireSession rejects requests without a valid session cookie when
// authentication is required. The resolved user is stored in Locals.
func RequireSession(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !deps.AuthConfig.Required || deps.Auth == nil {
			return c.Next()
		}

		user, err := deps.Auth.Profile(c.UserContext(), c.Cookies(deps.cookieName()))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return errUnauthorized(c, "login required")
			}
			LoggerFromCtx(c.UserContext()).Error("resolve session", "error", err)
			return errInternal(c, "session lookup failed")
		}
		c.Locals(userLocalsKey, user)
		withUserLogger(c, user.ID)
		return c.Next()
	}
}
