package services

import (
	"context"
	"fmt"

	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

const (
	passwordChangedSubject = "Tu contraseña ha sido actualizada"
	passwordChangedBody    = "La contraseña de tu cuenta %s fue restablecida correctamente. Si no fuiste tú, contacta a soporte de inmediato."
)

type VerificationService struct {
	identity core.IdentityProvider
	mailer   core.Mailer // optional
	caller   *caller
	logger   *zap.Logger
}

func NewVerificationService(identity core.IdentityProvider, mailer core.Mailer, opts Options) *VerificationService {
	opts = opts.withDefaults()
	return &VerificationService{
		identity: identity,
		mailer:   mailer,
		caller:   newCaller(opts),
		logger:   opts.Logger.Named("verify"),
	}
}

// VerifyAction routes a verification request by mode. "verifyEmail" applies
// the action code; any other mode is a password reset using the body code.
func (s *VerificationService) VerifyAction(ctx context.Context, in core.VerifyActionInput) error {
	if in.Mode == core.ModeVerifyEmail {
		err := s.caller.call(ctx, "identity.validateEmailVerification", func(ctx context.Context) error {
			return s.identity.ValidateEmailVerification(ctx, in.ActionCode)
		})
		if err != nil {
			return fmt.Errorf("failed to verify email: %w", err)
		}
		return nil
	}

	return s.ResetPassword(ctx, in.OobCode, in.Password)
}

// ForgotPassword asks the identity service to send a reset email.
func (s *VerificationService) ForgotPassword(ctx context.Context, email string) error {
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	err := s.caller.call(ctx, "identity.sendEmailResetPassword", func(ctx context.Context) error {
		return s.identity.SendEmailResetPassword(ctx, email)
	})
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ResetPassword confirms an externally issued reset code with the new password.
func (s *VerificationService) ResetPassword(ctx context.Context, oobCode, password string) error {
	var email string
	err := s.caller.call(ctx, "identity.validateResetPassword", func(ctx context.Context) error {
		var err error
		email, err = s.identity.ValidateResetPassword(ctx, oobCode, password)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.notifyPasswordChanged(ctx, email)
	return nil
}

func (s *VerificationService) notifyPasswordChanged(ctx context.Context, email string) {
	if s.mailer == nil || email == "" {
		return
	}
	msg := &core.MailMessage{
		To:      email,
		Subject: passwordChangedSubject,
		Body:    fmt.Sprintf(passwordChangedBody, email),
	}
	err := s.caller.call(ctx, "mail.passwordChanged", func(ctx context.Context) error {
		return s.mailer.Send(ctx, msg)
	})
	if err != nil {
		s.logger.Warn("failed to send password changed notice", zap.String("email", email), zap.Error(err))
	}
}
