package user

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

const passwordResetTemplate = "password_reset"

type (
	PasswordResetData struct {
		Name  string
		UID   string
		Token string
	}

	ResetUserPassword struct {
		UID             string `json:"uid" validate:"required"`
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required,min=8"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	// PasswordReset mails reset tokens and resets passwords with them.
	PasswordReset struct {
		svc    ServiceInterface
		mailer core.EmailService
		tokens tokenGenerator
	}
)

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.UID = core.CleanString(rp.UID)
	rp.Token = core.CleanString(rp.Token)
	return validate.Struct(rp)
}

func NewPasswordReset(svc ServiceInterface, mailer core.EmailService, conf *core.Config) *PasswordReset {
	return &PasswordReset{
		svc:    svc,
		mailer: mailer,
		tokens: tokenGenerator{secretKey: conf.SecretKey, timeout: conf.Server.PasswordResetTimeoutDelta},
	}
}

// Request mails a reset link to the active user owning email.
// ErrNotFound is returned for unknown or inactive users; callers should not disclose it.
func (pr *PasswordReset) Request(ctx context.Context, email string) error {
	usr, err := pr.svc.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, err := pr.tokens.make(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	pr.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: passwordResetTemplate,
		TemplateData: PasswordResetData{Name: usr.Name, UID: EncodeUID(usr), Token: token},
	})
	return nil
}

// Reset sets a new password when the token of rp is valid.
func (pr *PasswordReset) Reset(ctx context.Context, rp ResetUserPassword) (User, error) {
	id, err := DecodeUID(rp.UID)
	if err != nil {
		return User{}, err
	}
	usr, err := pr.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, err
	}
	if err = pr.tokens.verify(usr, rp.Token); err != nil {
		return User{}, err
	}
	return pr.svc.Update(ctx, usr, UpdateUser{
		Name:            usr.Name,
		Email:           usr.Email,
		Password:        rp.Password,
		PasswordConfirm: rp.Password,
	})
}
