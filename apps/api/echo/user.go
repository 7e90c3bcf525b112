package echoapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/level"
	"github.com/trezcool/elimu/core/user"
)

type authApi struct {
	conf     *core.Config
	svc      user.ServiceInterface
	levels   level.ServiceInterface
	pwdReset *user.PasswordReset
	limiter  LoginLimiter
	validate *validator.Validate
}

func registerAuthAPI(g, authed *echo.Group, conf *core.Config, deps *Deps) {
	api := authApi{
		conf:     conf,
		svc:      deps.UserSvc,
		levels:   deps.LevelSvc,
		pwdReset: deps.PwdReset,
		limiter:  deps.Limiter,
		validate: deps.Validate,
	}

	// un-authed endpoints
	g.POST("/auth/login", api.login)
	g.POST("/auth/password-reset", api.resetPassword)
	g.POST("/auth/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	authed.POST("/auth/token-refresh", api.refreshToken)
	authed.GET("/me", api.me)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	limitKey := "email:" + data.Email
	if err := api.limit(ctx, limitKey); err != nil {
		return err
	}

	usr, err := authenticate(reqCtx, data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	if api.limiter != nil {
		if err := api.limiter.Reset(reqCtx, limitKey); err != nil {
			return errors.Wrap(err, "resetting login attempts")
		}
	}

	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// limit counts a hit on key, failing with 429 once the attempts of the window are exhausted.
func (api *authApi) limit(ctx echo.Context, key string) error {
	if api.limiter == nil {
		return nil
	}
	allowed, retryIn, err := api.limiter.Hit(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "limiting attempts")
	}
	if !allowed {
		secs := int(math.Ceil(retryIn.Seconds()))
		ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return echo.NewHTTPError(http.StatusTooManyRequests, fmt.Sprintf("too many attempts, retry in %ds", secs))
	}
	return nil
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.limit(ctx, "reset:"+data.Email); err != nil {
		return err
	}

	// unknown emails get the same answer
	if err := api.pwdReset.Request(ctx.Request().Context(), data.Email); err != nil && errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If we find an account with this email, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if _, err := api.pwdReset.Reset(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// me returns the profile of the session user along with their level journey.
func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	journey, err := api.levels.Journey(ctx.Request().Context(), usr.Points)
	if err != nil {
		return errors.Wrap(err, "resolving journey")
	}
	return ctx.JSON(http.StatusOK, MeResponse{User: usr, Journey: journey})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	MeResponse struct {
		User    user.User     `json:"user"`
		Journey level.Journey `json:"journey"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
