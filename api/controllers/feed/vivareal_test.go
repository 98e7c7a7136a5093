package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/caiomonteiro/imovia-backend/pkg/config"
	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
)

type stubGenerator struct {
	generateFn func(ctx context.Context, brokerID *uuid.UUID) ([]byte, error)
	calls      int
}

func (s *stubGenerator) Generate(ctx context.Context, brokerID *uuid.UUID) ([]byte, error) {
	s.calls++
	if s.generateFn != nil {
		return s.generateFn(ctx, brokerID)
	}
	return []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<ListingDataFeed></ListingDataFeed>"), nil
}

func feedConfig() config.FeedConfig {
	return config.FeedConfig{Token: "feed-secret"}
}

func TestVivaRealServesXML(t *testing.T) {
	gen := &stubGenerator{
		generateFn: func(ctx context.Context, brokerID *uuid.UUID) ([]byte, error) {
			if brokerID != nil {
				t.Fatalf("expected unscoped feed, got broker %s", brokerID)
			}
			return []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<ListingDataFeed></ListingDataFeed>"), nil
		},
	}

	handler := VivaReal(feedConfig(), gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=feed-secret", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/xml; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(resp.Body.String(), "<ListingDataFeed>") {
		t.Fatalf("expected feed root element, got %q", resp.Body.String())
	}
}

func TestVivaRealScopedByBroker(t *testing.T) {
	brokerID := uuid.New()
	gen := &stubGenerator{
		generateFn: func(ctx context.Context, got *uuid.UUID) ([]byte, error) {
			if got == nil || *got != brokerID {
				t.Fatalf("expected broker scope %s, got %v", brokerID, got)
			}
			return []byte("<ListingDataFeed></ListingDataFeed>"), nil
		},
	}

	handler := VivaReal(feedConfig(), gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=feed-secret&broker_id="+brokerID.String(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVivaRealRejectsBadToken(t *testing.T) {
	gen := &stubGenerator{}
	handler := VivaReal(feedConfig(), gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=wrong", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not run for unauthorized requests")
	}
}

func TestVivaRealRejectsWhenTokenUnconfigured(t *testing.T) {
	gen := &stubGenerator{}
	handler := VivaReal(config.FeedConfig{}, gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not run when no token is configured")
	}
}

func TestVivaRealInvalidBrokerID(t *testing.T) {
	gen := &stubGenerator{}
	handler := VivaReal(feedConfig(), gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=feed-secret&broker_id=not-a-uuid", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not run for invalid broker filters")
	}
}

func TestVivaRealUnknownBroker(t *testing.T) {
	gen := &stubGenerator{
		generateFn: func(ctx context.Context, brokerID *uuid.UUID) ([]byte, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "broker not found")
		},
	}

	handler := VivaReal(feedConfig(), gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=feed-secret&broker_id="+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestVivaRealGeneratorFailure(t *testing.T) {
	gen := &stubGenerator{
		generateFn: func(ctx context.Context, brokerID *uuid.UUID) ([]byte, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "query failed")
		},
	}

	handler := VivaReal(feedConfig(), gen, nil)
	req := httptest.NewRequest(http.MethodGet, "/?token=feed-secret", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "feed generation failed") {
		t.Fatalf("expected plain text failure body, got %q", resp.Body.String())
	}
}
