package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/tests"
)

func Test_authApi_login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "secret123", []string{user.RoleLearner}, true)
	testutil.CreateUser(t, f.users, "Bob", "bob@example.com", "secret123", []string{user.RoleLearner}, false)

	path := "/v1/auth/login"
	f.run(t, []httpTest{
		{
			name: "missing credentials", method: http.MethodPost, path: path, body: echoapi.LoginRequest{},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"email": "this field is required", "password": "this field is required"},
		},
		{
			name: "unknown email", method: http.MethodPost, path: path,
			body:     echoapi.LoginRequest{Email: "nobody@example.com", Password: "secret123"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "authentication failed"},
		},
		{
			name: "wrong password", method: http.MethodPost, path: path,
			body:     echoapi.LoginRequest{Email: "ada@example.com", Password: "nope"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "authentication failed"},
		},
		{
			name: "deactivated", method: http.MethodPost, path: path,
			body:     echoapi.LoginRequest{Email: "bob@example.com", Password: "secret123"},
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "account deactivated"},
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := f.do(http.MethodPost, path, "", echoapi.LoginRequest{Email: " ADA@example.com ", Password: "secret123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		// the token opens the authed endpoints
		rec = f.do(http.MethodGet, "/v1/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_authApi_loginRateLimit(t *testing.T) {
	f := setup(t) // 3 attempts per window
	testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "secret123", nil, true)

	bad := echoapi.LoginRequest{Email: "ada@example.com", Password: "nope"}
	for i := 0; i < 3; i++ {
		rec := f.do(http.MethodPost, "/v1/auth/login", "", bad)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := f.do(http.MethodPost, "/v1/auth/login", "", echoapi.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func Test_authApi_refreshToken(t *testing.T) {
	f := setup(t)
	ada := testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "secret123", nil, true)
	gone := testutil.CreateUser(t, f.users, "Gone", "gone@example.com", "secret123", nil, false)

	f.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "bad token", method: http.MethodPost, path: "/v1/auth/token-refresh", token: "not.a.token", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/auth/token-refresh", token: f.token(t, gone),
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "account deactivated"},
		},
	})

	rec := f.do(http.MethodPost, "/v1/auth/token-refresh", f.token(t, ada))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_authApi_me(t *testing.T) {
	f := setup(t)
	f.seedLevels(t)
	ada := testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "secret123", nil, true)
	_, err := f.users.AddPoints(ctxBg, ada.ID, 100)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/v1/me", f.token(t, ada))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.MeResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, 100, resp.User.Points)
	require.NotNil(t, resp.Journey.Current)
	assert.Equal(t, "Explorer", resp.Journey.Current.Name)
	assert.Equal(t, 0.0, resp.Journey.Fraction)
	require.NotNil(t, resp.Journey.Next)
	assert.Equal(t, "Master", resp.Journey.Next.Name)
	assert.Equal(t, 400, resp.Journey.PointsToNext)
}

func Test_authApi_passwordReset(t *testing.T) {
	f := setup(t)
	ada := testutil.CreateUser(t, f.users, "Ada", "ada@example.com", "secret123", nil, true)
	testutil.CreateUser(t, f.users, "Gone", "gone@example.com", "secret123", nil, false)

	requested := echoapi.SuccessResponse{
		Success: "If we find an account with this email, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}
	f.run(t, []httpTest{
		{
			name: "missing email", method: http.MethodPost, path: "/v1/auth/password-reset", body: echoapi.PasswordResetRequest{},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"email": "this field is required"},
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     echoapi.PasswordResetRequest{Email: "nobody@example.com"},
			wantCode: http.StatusOK, wantData: requested,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     echoapi.PasswordResetRequest{Email: "gone@example.com"},
			wantCode: http.StatusOK, wantData: requested,
		},
	})
	require.Empty(t, emailsvc.SentMessages)

	rec := f.do(http.MethodPost, "/v1/auth/password-reset", "", echoapi.PasswordResetRequest{Email: " ADA@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, "ada@example.com", msg.To[0].Address)
	data, ok := msg.TemplateData.(user.PasswordResetData)
	require.True(t, ok)
	assert.Contains(t, msg.TextContent, "/password-reset/"+data.UID+"/"+data.Token)

	confirm := user.ResetUserPassword{UID: data.UID, Token: data.Token, Password: "brand-new-pwd", PasswordConfirm: "brand-new-pwd"}
	f.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: user.ResetUserPassword{},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{
				"uid":              "this field is required",
				"token":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			},
		},
		{
			name: "tampered token", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body:     user.ResetUserPassword{UID: data.UID, Token: data.Token + "x", Password: "brand-new-pwd", PasswordConfirm: "brand-new-pwd"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: user.ErrInvalidToken.Error()},
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body:     user.ResetUserPassword{UID: user.EncodeUID(user.User{ID: "00000000-0000-0000-0000-000000000000"}), Token: data.Token, Password: "brand-new-pwd", PasswordConfirm: "brand-new-pwd"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: user.ErrInvalidToken.Error()},
		},
		{
			name: "reset", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm,
			wantCode: http.StatusOK, wantData: echoapi.SuccessResponse{Success: "Password has been reset with the new password."},
		},
		{
			name: "token is single use", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm,
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: user.ErrInvalidToken.Error()},
		},
	})

	usr, err := f.users.GetUser(ctxBg, user.GetFilter{ID: ada.ID})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("brand-new-pwd"))
	assert.Equal(t, "Ada", usr.Name)
	assert.Equal(t, "ada@example.com", usr.Email)
}
