// Package objectstore implements core.ObjectStore on the local filesystem
// and on Google Cloud Storage (the bucket behind Firebase Storage).
package objectstore

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/lborres/technopark/core"
)

const serviceName = "objectstore"

var ErrInvalidKey = errors.New("objectstore: invalid object key")

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func storeError(msg string, err error) error {
	return &core.ExternalError{
		Service: serviceName,
		Status:  http.StatusBadGateway,
		Message: msg,
		Err:     err,
	}
}
