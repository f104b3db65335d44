package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jumokuso/crmaudit/internal/auth"
)

func TestActorMiddlewareLiftsHeaders(t *testing.T) {
	var sawActor bool
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFromContext(r.Context())
		sawActor = ok
		if ok && (actor.UID != "u1" || actor.Email != "staff@example.com") {
			t.Errorf("unexpected actor: %+v", actor)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Audit-User-Id", "u1")
	req.Header.Set("X-Audit-User-Name", "担当者")
	req.Header.Set("X-Audit-User-Email", "staff@example.com")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !sawActor {
		t.Fatalf("expected the actor lifted into the context")
	}
}

func TestActorMiddlewareWithoutHeaders(t *testing.T) {
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.ActorFromContext(r.Context()); ok {
			t.Errorf("expected no actor without headers")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
