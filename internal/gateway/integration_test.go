package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/user/campuschat/internal/campus"
	ctxengine "github.com/user/campuschat/internal/context"
	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/internal/state"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
	"github.com/user/campuschat/pkg/assistant/portal"
)

const studentProfile = `{
  "basic": {"name": "Asha Rao", "email": "asha@campus.example", "role": "student", "branch": "CSE", "semester": 5, "section": "A"},
  "academic": {"cgpa": 8.7, "sgpa": {"sem4": 8.5}, "currentSemesterSGPA": null},
  "attendance": {"overall": "91%", "subjects": [{"subject": "DBMS", "attended": 40, "total": 44}]},
  "timetable": {"branch": "CSE", "section": "A", "schedule": {"Monday": [{"time": "09:00", "subject": "DBMS", "room": "L101"}]}}
}`

// fakePortal serves the chat endpoint and the collaborator endpoints and
// records every chat request it receives.
type fakePortal struct {
	mu       sync.Mutex
	requests []assistant.ChatRequest
}

func (f *fakePortal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, studentProfile)
	})
	mux.HandleFunc("/api/announcements", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"1","title":"Exams","content":"<p>Mid-terms start <b>Monday</b></p>","targetRole":"both"}]`)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req assistant.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode chat request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		n := len(f.requests)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"content\":\"Answer \"}\n\n")
		fmt.Fprintf(w, "data: {\"content\":\"%d\",\"sources\":[{\"title\":\"Handbook\"}],\"done\":true}\n\n", n)
	})
	return mux
}

func (f *fakePortal) request(i int) assistant.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func newGateway(url string, store types.HistoryStore) *gateway.Gateway {
	contexts := &gateway.PortalContext{
		Campus:    campus.New(campus.Config{BaseURL: url, Token: "jwt"}),
		Assembler: ctxengine.NewAssembler(ctxengine.DefaultCampusInfo, nil),
	}
	backend := portal.New(&portal.Config{BaseURL: url, Token: "jwt"})
	return gateway.New(store, backend, contexts, gateway.Options{Stream: true, Cache: true})
}

func TestEndToEnd(t *testing.T) {
	fp := &fakePortal{}
	server := httptest.NewServer(fp.handler(t))
	defer server.Close()

	dir := t.TempDir()
	store := state.NewFileStore(dir)
	user := &types.User{ID: "s-42", Name: "Asha", Email: "asha@campus.example", Role: types.RoleStudent}
	ctx := context.Background()

	gw := newGateway(server.URL, store)
	coord, err := gw.Resolve(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	welcome := coord.Session().Messages()[0].Content
	if !strings.Contains(welcome, "CSE") || !strings.Contains(welcome, "Semester 5") {
		t.Errorf("expected profile-based welcome, got %q", welcome)
	}

	for i := 1; i <= 2; i++ {
		msg, err := gw.Submit(ctx, user, fmt.Sprintf("question %d", i))
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("Answer %d", i); msg.Content != want {
			t.Errorf("expected %q, got %q", want, msg.Content)
		}
		if len(msg.Sources) != 1 {
			t.Errorf("expected one source, got %v", msg.Sources)
		}
	}

	first := fp.request(0)
	if first.Context.Role != "Student" {
		t.Errorf("expected Student context, got %q", first.Context.Role)
	}
	if first.Context.Data["cgpa"] != "8.7" {
		t.Errorf("expected cgpa from profile, got %v", first.Context.Data["cgpa"])
	}
	if _, ok := first.Context.Data["users"]; ok {
		t.Error("student context must not carry user listings")
	}
	for _, p := range first.Context.Permissions {
		if p == ctxengine.PermReadAllUsers {
			t.Error("student context must not carry admin permissions")
		}
	}
	anns, ok := first.Context.Data["announcements"].([]any)
	if !ok || len(anns) != 1 {
		t.Fatalf("expected one announcement, got %v", first.Context.Data["announcements"])
	}
	if len(first.History) != 0 {
		t.Errorf("expected empty history on first request, got %d", len(first.History))
	}

	second := fp.request(1)
	if len(second.History) != 2 || second.History[0].Content != "question 1" || second.History[1].Content != "Answer 1" {
		t.Errorf("unexpected history on second request: %+v", second.History)
	}

	gw.Close()

	// A fresh gateway over the same directory resumes the conversation.
	gw2 := newGateway(server.URL, state.NewFileStore(dir))
	defer gw2.Close()
	coord2, err := gw2.Resolve(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	msgs := coord2.Session().Messages()
	if len(msgs) != 5 {
		t.Fatalf("expected welcome plus four messages, got %d", len(msgs))
	}
	if msgs[4].Content != "Answer 2" {
		t.Errorf("expected last answer restored, got %q", msgs[4].Content)
	}
}
