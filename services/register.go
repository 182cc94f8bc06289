package services

import (
	"context"
	"fmt"

	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

// Registration pipeline steps, in order.
const (
	StepCreateAccount     = "create account"
	StepSendVerification  = "send verification email"
	StepUploadPhoto       = "upload photo"
	StepPersistCredential = "persist credentials"
)

// PhotoKey is the object store key of a user's profile photo.
func PhotoKey(email string) string {
	return email + "/preview"
}

type compensation struct {
	name string
	run  func(ctx context.Context) error
}

type RegistrationService struct {
	identity    core.IdentityProvider
	objects     core.ObjectStore
	credentials core.CredentialStore
	compensate  bool
	caller      *caller
	metrics     core.Metrics
	logger      *zap.Logger
}

func NewRegistrationService(identity core.IdentityProvider, objects core.ObjectStore, credentials core.CredentialStore, compensate bool, opts Options) *RegistrationService {
	opts = opts.withDefaults()
	return &RegistrationService{
		identity:    identity,
		objects:     objects,
		credentials: credentials,
		compensate:  compensate,
		caller:      newCaller(opts),
		metrics:     opts.Metrics,
		logger:      opts.Logger.Named("register"),
	}
}

// Register runs the registration pipeline. Each step's failure aborts the
// remaining steps. Completed steps are only undone when compensation is on.
func (s *RegistrationService) Register(ctx context.Context, in core.RegisterInput) error {
	if err := core.ValidateRegister(in); err != nil {
		return err
	}

	var undo []compensation
	fail := func(step string, err error) error {
		s.metrics.RecordRegistrationFailure(step)
		s.logger.Warn("registration step failed",
			zap.String("step", step),
			zap.String("email", in.Email),
			zap.Int("completed", len(undo)),
			zap.Error(err),
		)
		if s.compensate {
			s.rollback(ctx, undo)
		}
		return fmt.Errorf("%s: %w", step, err)
	}

	// Step 1: Create the account
	var ref *core.IdentityRef
	err := s.caller.call(ctx, "identity.registerAccount", func(ctx context.Context) error {
		var err error
		ref, err = s.identity.RegisterAccount(ctx, in.Email, in.Password, in.Username)
		return err
	})
	if err != nil {
		return fail(StepCreateAccount, err)
	}
	undo = append(undo, compensation{name: "delete account", run: func(ctx context.Context) error {
		return s.identity.DeleteAccount(ctx, ref)
	}})

	// Step 2: Dispatch the verification email
	err = s.caller.call(ctx, "identity.sendEmailVerification", func(ctx context.Context) error {
		return s.identity.SendEmailVerification(ctx, ref)
	})
	if err != nil {
		return fail(StepSendVerification, err)
	}

	// Step 3: Upload the profile photo
	var photoURL string
	if !in.Photo.Empty() {
		key := PhotoKey(in.Email)
		err = s.caller.call(ctx, "objects.upload", func(ctx context.Context) error {
			var err error
			photoURL, err = s.objects.Upload(ctx, key, in.Photo)
			return err
		})
		if err != nil {
			return fail(StepUploadPhoto, err)
		}
		undo = append(undo, compensation{name: "delete photo", run: func(ctx context.Context) error {
			return s.objects.Delete(ctx, key)
		}})
	}

	// Step 4: Persist the credential record
	record := &core.CredentialRecord{
		UID:            ref.UID,
		Email:          firstNonEmpty(ref.Email, in.Email),
		Username:       firstNonEmpty(ref.DisplayName, in.Username),
		Phone:          in.Phone,
		Description:    in.Description,
		SocialNetworks: in.SocialNetworks,
		PhotoURL:       photoURL,
	}
	if record.SocialNetworks == nil {
		record.SocialNetworks = []core.SocialNetwork{}
	}
	err = s.caller.call(ctx, "credentials.persist", func(ctx context.Context) error {
		return s.credentials.PersistCredentials(ctx, ref, record)
	})
	if err != nil {
		return fail(StepPersistCredential, err)
	}

	s.logger.Info("user registered", zap.String("uid", ref.UID), zap.String("email", record.Email))
	return nil
}

// rollback runs compensations newest first on a context that outlives the
// request, so a cancelled client does not strand half-undone state.
func (s *RegistrationService) rollback(ctx context.Context, undo []compensation) {
	ctx = context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		c := undo[i]
		if err := s.caller.call(ctx, "compensate."+c.name, c.run); err != nil {
			s.logger.Error("registration compensation failed", zap.String("action", c.name), zap.Error(err))
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
