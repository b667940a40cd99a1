package security

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/handler"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

const secretDetail = "password authentication failed for user admin at 10.0.4.12:5432"

// leakyEngine fails every call with an error carrying infrastructure detail.
type leakyEngine struct{ err error }

func (e leakyEngine) ComputeTrustScore(context.Context, string, string) (*domain.TrustResult, error) {
	return nil, e.err
}

func (e leakyEngine) LatestTrustResult(context.Context, string) (*domain.TrustResult, error) {
	return nil, e.err
}

func (e leakyEngine) ListTrustEvents(context.Context, string, int) ([]domain.TrustScoreEvent, error) {
	return nil, e.err
}

func (e leakyEngine) ModerateCampaign(context.Context, domain.ModerationRequest) (*domain.ModerationResult, error) {
	return nil, e.err
}

func (e leakyEngine) LatestModerationResult(context.Context, string) (*domain.ModerationResult, error) {
	return nil, e.err
}

func TestErrorHandling_ServerErrorsDoNotLeakDetail(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"data access", fmt.Errorf("%w: %s", domain.ErrDataAccess, secretDetail), http.StatusServiceUnavailable},
		{"persistence", fmt.Errorf("%w: %s", domain.ErrPersistence, secretDetail), http.StatusInternalServerError},
		{"unclassified", fmt.Errorf("driver: %s", secretDetail), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := leakyEngine{err: tc.err}
			router := mux.NewRouter()
			handler.NewRestHandler(engine, engine, nil, 0, zap.NewNop()).Register(router)

			for _, path := range []string{"/api/v1/users/u-1/trust-score", "/api/v1/campaigns/c-1/moderation"} {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				if rec.Code != tc.status {
					t.Errorf("%s: status = %d, want %d", path, rec.Code, tc.status)
				}
				body, _ := io.ReadAll(rec.Body)
				if strings.Contains(string(body), "password") || strings.Contains(string(body), "10.0.4.12") {
					t.Errorf("%s: response leaks detail: %s", path, body)
				}
			}
		})
	}
}

func TestErrorHandling_ClientErrorsKeepMessage(t *testing.T) {
	engine := leakyEngine{err: fmt.Errorf("%w: profile u-404", domain.ErrNotFound)}
	router := mux.NewRouter()
	handler.NewRestHandler(engine, engine, nil, 0, zap.NewNop()).Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/u-404/trust-score", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "u-404") {
		t.Errorf("not-found body lost its message: %s", rec.Body.String())
	}
}

func TestErrorHandling_GrpcDoesNotLeakDetail(t *testing.T) {
	engine := leakyEngine{err: fmt.Errorf("%w: %s", domain.ErrDataAccess, secretDetail)}
	srv := handler.NewGrpcServer(engine, engine, zap.NewNop())

	in, err := structpb.NewStruct(map[string]interface{}{"userId": "u-1"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = srv.ComputeTrustScore(context.Background(), in)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("error is not a gRPC status: %v", err)
	}
	if st.Code() != codes.Unavailable {
		t.Errorf("code = %v, want Unavailable", st.Code())
	}
	if strings.Contains(st.Message(), "password") {
		t.Errorf("status message leaks detail: %q", st.Message())
	}
}

func TestErrorHandling_MalformedBody(t *testing.T) {
	engine := leakyEngine{}
	router := mux.NewRouter()
	handler.NewRestHandler(engine, engine, nil, 0, zap.NewNop()).Register(router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/moderate-campaign", strings.NewReader(`{"campaignId":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
