package pgx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lborres/technopark/core"
)

const serviceName = "credentials"

const schema = `CREATE TABLE IF NOT EXISTS public.credentials (
	uid             TEXT PRIMARY KEY,
	email           TEXT NOT NULL,
	username        TEXT NOT NULL,
	phone           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	social_networks JSONB NOT NULL DEFAULT '[]'::jsonb,
	photo           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the credentials table if it does not exist.
func (a *Adapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}
	return nil
}

// PersistCredentials upserts the record keyed by the identity uid, so a
// retried registration overwrites rather than duplicates.
func (a *Adapter) PersistCredentials(ctx context.Context, ref *core.IdentityRef, record *core.CredentialRecord) error {
	networks := record.SocialNetworks
	if networks == nil {
		networks = []core.SocialNetwork{}
	}
	socialJSON, err := json.Marshal(networks)
	if err != nil {
		return fmt.Errorf("failed to encode social networks: %w", err)
	}

	q := `INSERT INTO public.credentials (uid, email, username, phone, description, social_networks, photo)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (uid) DO UPDATE SET
	email = EXCLUDED.email,
	username = EXCLUDED.username,
	phone = EXCLUDED.phone,
	description = EXCLUDED.description,
	social_networks = EXCLUDED.social_networks,
	photo = EXCLUDED.photo,
	updated_at = now()`

	_, err = a.db.Exec(ctx, q,
		ref.UID,
		record.Email,
		record.Username,
		record.Phone,
		record.Description,
		socialJSON,
		record.PhotoURL,
	)
	if err != nil {
		return storeError("no se pudo guardar el perfil", err)
	}
	return nil
}

func storeError(msg string, err error) error {
	return &core.ExternalError{
		Service: serviceName,
		Status:  http.StatusBadGateway,
		Message: msg,
		Err:     err,
	}
}
