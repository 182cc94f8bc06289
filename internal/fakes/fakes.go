// Package fakes holds test-only fakes for the collaborator ports in core.
// Each fake records the calls it receives and exposes error fields for
// behavior injection.
package fakes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lborres/technopark/core"
)

// Journal records calls across fakes in order, so tests can assert on the
// sequence of a pipeline.
type Journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *Journal) record(call string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

// Calls returns a copy of the recorded calls.
func (j *Journal) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

// Identity is a fake core.IdentityProvider backed by a map of accounts.
type Identity struct {
	mu       sync.Mutex
	journal  *Journal
	accounts map[string]*account
	// resetCodes maps a reset oobCode to the account email.
	resetCodes map[string]string
	// verifyCodes maps an email verification code to the account email.
	verifyCodes map[string]string

	// Delay is applied before each call, honoring ctx cancellation.
	Delay time.Duration

	VerifyErr        error
	RegisterErr      error
	SendVerifyErr    error
	ValidateEmailErr error
	SendResetErr     error
	ResetErr         error
	DeleteErr        error

	VerificationsSent []string
	ResetsSent        []string
	ResetPasswords    map[string]string
}

type account struct {
	uid      string
	email    string
	password string
	name     string
	verified bool
	photo    string
}

func NewIdentity(journal *Journal) *Identity {
	return &Identity{
		journal:        journal,
		accounts:       make(map[string]*account),
		resetCodes:     make(map[string]string),
		verifyCodes:    make(map[string]string),
		ResetPasswords: make(map[string]string),
	}
}

// AddAccount seeds an account.
func (f *Identity) AddAccount(uid, email, password, name string, verified bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = &account{uid: uid, email: email, password: password, name: name, verified: verified}
}

// AddResetCode makes oobCode a valid reset code for email.
func (f *Identity) AddResetCode(oobCode, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCodes[oobCode] = email
}

// AddVerifyCode makes code a valid email verification code for email.
func (f *Identity) AddVerifyCode(code, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCodes[code] = email
}

// HasAccount reports whether an account exists for email.
func (f *Identity) HasAccount(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.accounts[email]
	return ok
}

// Verified reports the verification flag of the account for email.
func (f *Identity) Verified(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[email]
	return ok && a.verified
}

func (f *Identity) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func invalidCredentials() error {
	return &core.ExternalError{
		Service: "identity",
		Code:    "INVALID_LOGIN_CREDENTIALS",
		Status:  401,
		Message: "Credenciales inválidas",
		Err:     core.ErrInvalidCredentials,
	}
}

func (f *Identity) VerifyCredentials(ctx context.Context, email, password string) (*core.Identity, error) {
	f.journal.record("identity.VerifyCredentials")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[email]
	if !ok || a.password != password {
		return nil, invalidCredentials()
	}
	return &core.Identity{UID: a.uid, Email: a.email, DisplayName: a.name, PhotoURL: a.photo, EmailVerified: a.verified}, nil
}

func (f *Identity) RegisterAccount(ctx context.Context, email, password, displayName string) (*core.IdentityRef, error) {
	f.journal.record("identity.RegisterAccount")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[email]; exists {
		return nil, &core.ExternalError{Service: "identity", Code: "EMAIL_EXISTS", Status: 409, Message: "El correo ya está registrado"}
	}
	uid := fmt.Sprintf("uid-%d", len(f.accounts)+1)
	f.accounts[email] = &account{uid: uid, email: email, password: password, name: displayName}
	return &core.IdentityRef{UID: uid, Email: email, DisplayName: displayName, IDToken: "id-token-" + uid}, nil
}

func (f *Identity) SendEmailVerification(ctx context.Context, ref *core.IdentityRef) error {
	f.journal.record("identity.SendEmailVerification")
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.SendVerifyErr != nil {
		return f.SendVerifyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VerificationsSent = append(f.VerificationsSent, ref.Email)
	return nil
}

func (f *Identity) ValidateEmailVerification(ctx context.Context, actionCode string) error {
	f.journal.record("identity.ValidateEmailVerification")
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.ValidateEmailErr != nil {
		return f.ValidateEmailErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.verifyCodes[actionCode]
	if !ok {
		return &core.ExternalError{Service: "identity", Code: "INVALID_OOB_CODE", Status: 400, Message: "Código de acción inválido"}
	}
	delete(f.verifyCodes, actionCode)
	if a, ok := f.accounts[email]; ok {
		a.verified = true
	}
	return nil
}

func (f *Identity) SendEmailResetPassword(ctx context.Context, email string) error {
	f.journal.record("identity.SendEmailResetPassword")
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.SendResetErr != nil {
		return f.SendResetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResetsSent = append(f.ResetsSent, email)
	return nil
}

func (f *Identity) ValidateResetPassword(ctx context.Context, oobCode, password string) (string, error) {
	f.journal.record("identity.ValidateResetPassword")
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.ResetErr != nil {
		return "", f.ResetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.resetCodes[oobCode]
	if !ok {
		return "", &core.ExternalError{Service: "identity", Code: "INVALID_OOB_CODE", Status: 400, Message: "Código de acción inválido"}
	}
	delete(f.resetCodes, oobCode)
	f.ResetPasswords[email] = password
	if a, ok := f.accounts[email]; ok {
		a.password = password
	}
	return email, nil
}

func (f *Identity) DeleteAccount(ctx context.Context, ref *core.IdentityRef) error {
	f.journal.record("identity.DeleteAccount")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, ref.Email)
	return nil
}

// ObjectStore is a fake core.ObjectStore.
type ObjectStore struct {
	mu      sync.Mutex
	journal *Journal
	objects map[string]*core.Photo

	UploadErr error
	DeleteErr error
}

func NewObjectStore(journal *Journal) *ObjectStore {
	return &ObjectStore{journal: journal, objects: make(map[string]*core.Photo)}
}

func (f *ObjectStore) Upload(_ context.Context, key string, photo *core.Photo) (string, error) {
	f.journal.record("objects.Upload")
	if f.UploadErr != nil {
		return "", f.UploadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = photo
	return "https://storage.test/" + key, nil
}

func (f *ObjectStore) Delete(_ context.Context, key string) error {
	f.journal.record("objects.Delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// Object returns the stored photo for key.
func (f *ObjectStore) Object(key string) (*core.Photo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.objects[key]
	return p, ok
}

// CredentialStore is a fake core.CredentialStore.
type CredentialStore struct {
	mu      sync.Mutex
	journal *Journal
	records map[string]*core.CredentialRecord

	PersistErr error
}

func NewCredentialStore(journal *Journal) *CredentialStore {
	return &CredentialStore{journal: journal, records: make(map[string]*core.CredentialRecord)}
}

func (f *CredentialStore) PersistCredentials(_ context.Context, ref *core.IdentityRef, record *core.CredentialRecord) error {
	f.journal.record("credentials.PersistCredentials")
	if f.PersistErr != nil {
		return f.PersistErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[ref.UID] = record
	return nil
}

// Record returns the persisted record for uid.
func (f *CredentialStore) Record(uid string) (*core.CredentialRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[uid]
	return r, ok
}

// Len returns the number of persisted records.
func (f *CredentialStore) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Mailer is a fake core.Mailer.
type Mailer struct {
	mu      sync.Mutex
	journal *Journal
	Sent    []*core.MailMessage
	SendErr error
}

func NewMailer(journal *Journal) *Mailer {
	return &Mailer{journal: journal}
}

func (f *Mailer) Send(_ context.Context, msg *core.MailMessage) error {
	f.journal.record("mailer.Send")
	if f.SendErr != nil {
		return f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, msg)
	return nil
}

// Introspector is a fake core.TokenIntrospector.
type Introspector struct {
	Status *core.TokenStatus
	Err    error
	Seen   []string
}

func (f *Introspector) IntrospectToken(_ context.Context, token string) (*core.TokenStatus, error) {
	f.Seen = append(f.Seen, token)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Status, nil
}

// Metrics is a fake core.Metrics that counts recorded outcomes.
type Metrics struct {
	mu                   sync.Mutex
	Logins               map[string]int
	RegistrationFailures map[string]int
	ExternalCalls        map[string]int
}

func NewMetrics() *Metrics {
	return &Metrics{
		Logins:               make(map[string]int),
		RegistrationFailures: make(map[string]int),
		ExternalCalls:        make(map[string]int),
	}
}

func (m *Metrics) RecordLogin(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logins[outcome]++
}

func (m *Metrics) RecordRegistrationFailure(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegistrationFailures[step]++
}

func (m *Metrics) ObserveExternalCall(operation, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExternalCalls[operation+":"+outcome]++
}

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("boom")
