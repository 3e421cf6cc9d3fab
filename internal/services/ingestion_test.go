package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/docid"
)

func TestIngestionService_RequestUpload(t *testing.T) {
	objects := newFakeObjects()
	s := NewIngestionService(objects, time.Hour)

	grant, err := s.RequestUpload(context.Background(), "u1", "my report.pdf")
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}
	if grant.ID.OwnerID != "u1" || grant.ID.Filename != "my report.pdf" {
		t.Errorf("identifier = %+v", grant.ID)
	}
	if decoded := docid.Decode(grant.ID.Key); decoded.OwnerID != "u1" || decoded.Filename != "my report.pdf" {
		t.Errorf("decoded key = %+v", decoded)
	}
	if len(objects.signed) != 1 || objects.signed[0] != grant.ID.Key {
		t.Errorf("signed keys = %v, want [%s]", objects.signed, grant.ID.Key)
	}
	if !strings.Contains(grant.URL, "ct=application/pdf") || !strings.Contains(grant.URL, "ttl=1h0m0s") {
		t.Errorf("URL = %q", grant.URL)
	}
}

func TestIngestionService_Validation(t *testing.T) {
	objects := newFakeObjects()
	s := NewIngestionService(objects, time.Hour)

	tests := []struct {
		owner, filename, field string
	}{
		{"", "a.pdf", "user_id"},
		{"u1", "", "filename"},
		{"  ", "a.pdf", "user_id"},
	}
	for _, tt := range tests {
		_, err := s.RequestUpload(context.Background(), tt.owner, tt.filename)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != tt.field {
			t.Errorf("RequestUpload(%q, %q) = %v, want validation error on %s", tt.owner, tt.filename, err, tt.field)
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error %v does not match ErrValidation", err)
		}
	}
	if len(objects.signed) != 0 {
		t.Errorf("signed %d URLs for invalid requests", len(objects.signed))
	}
}

func TestIngestionService_SignFailure(t *testing.T) {
	objects := newFakeObjects()
	objects.signErr = errBoom
	_, err := NewIngestionService(objects, time.Hour).RequestUpload(context.Background(), "u1", "a.pdf")
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want ErrUpstream wrapping errBoom", err)
	}
}
