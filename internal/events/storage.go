// Package events decodes storage notifications that trigger document processing.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// FinalizedType is the CloudEvent type GCS emits once an object is fully written.
const FinalizedType = "google.cloud.storage.object.v1.finalized"

// ErrMissingObject is returned when an event names no bucket or object.
var ErrMissingObject = errors.New("event does not name a bucket and object")

// StorageObject is the part of the GCS object resource the pipeline needs.
type StorageObject struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	// GCS encodes size as a decimal string.
	Size string `json:"size"`
}

// ParseStorageEvent extracts the object from a storage CloudEvent. Object
// names in GCS events are delivered verbatim and are used as-is.
func ParseStorageEvent(e cloudevents.Event) (StorageObject, error) {
	var obj StorageObject
	if err := json.Unmarshal(e.Data(), &obj); err != nil {
		return StorageObject{}, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if obj.Bucket == "" || obj.Name == "" {
		return StorageObject{}, ErrMissingObject
	}
	return obj, nil
}

// DecodeKey turns a percent-encoded notification key back into the object
// name. '+' means space, as in S3-style notifications.
func DecodeKey(key string) (string, error) {
	decoded, err := url.QueryUnescape(strings.TrimSpace(key))
	if err != nil {
		return "", fmt.Errorf("invalid percent-encoded key %q: %w", key, err)
	}
	if decoded == "" {
		return "", ErrMissingObject
	}
	return decoded, nil
}
