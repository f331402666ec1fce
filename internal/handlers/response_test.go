package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"econ-rag/internal/indexer"
	"econ-rag/internal/service"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &service.ValidationError{Field: "query", Message: "cannot be empty"}, want: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("unknown tool %q: %w", "x", service.ErrNotFound), want: http.StatusNotFound},
		{name: "index unavailable", err: fmt.Errorf("%w: dial tcp", service.ErrIndexUnavailable), want: http.StatusServiceUnavailable},
		{name: "embedding down", err: service.NewExternalServiceError(service.ServiceEmbedding, errors.New("503")), want: http.StatusBadGateway},
		{
			name: "batch error wrapping embedding failure",
			err: &indexer.BatchError{
				Sources: []string{"a.pdf"},
				Err:     service.NewExternalServiceError(service.ServiceEmbedding, errors.New("timeout")),
			},
			want: http.StatusBadGateway,
		},
		{name: "anything else", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError() = %d, want %d", got, tt.want)
			}
		})
	}
}
