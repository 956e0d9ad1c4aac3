package evalchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"github.com/orbit-maths/tutor-eval/internal/config"
	"github.com/orbit-maths/tutor-eval/internal/eval"
	. "github.com/orbit-maths/tutor-eval/internal/eval/evaltest"
	"github.com/orbit-maths/tutor-eval/internal/eval/model"
)

// testRunner records the selection it was asked to run and returns a canned summary or error.
type testRunner struct {
	summary *eval.RunSummary
	err     error

	calls      int
	lastSel    eval.Selection
	lastModel  string
	ctxErrSeen error
}

func (m *testRunner) Execute(ctx context.Context, sel eval.Selection, judgeModel string) (*eval.RunSummary, error) {
	m.calls++
	m.lastSel = sel
	m.lastModel = judgeModel
	m.ctxErrSeen = ctx.Err()
	return m.summary, m.err
}

func (m *testRunner) Catalog() *eval.Catalog {
	return eval.DefaultCatalog()
}

var testConfig = config.Config{JudgeAPIKey: "sk-test", JudgeModel: "judge-default"}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestServer_Run(t *testing.T) {
	summary := &eval.RunSummary{RunID: "run-1", Total: 1, Passed: 1, PassRate: "100%", Results: []*model.Result{}}

	tests := []struct {
		name       string
		body       string
		cfg        config.Config
		runErr     error
		wantStatus int
		wantCalls  int
		wantSel    eval.Selection
		wantModel  string
		wantMsg    string
	}{
		{
			name:       "empty body runs everything with the configured judge",
			cfg:        testConfig,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			wantSel:    eval.Selection{},
			wantModel:  "judge-default",
		},
		{
			name:       "request fields map onto the selection",
			body:       `{"runSubset": "socratic_rule1", "specificTests": ["Direct answer demand"], "testLimit": 3, "judgeModel": "gpt-x"}`,
			cfg:        testConfig,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			wantSel:    eval.Selection{Category: "socratic_rule1", Names: []string{"Direct answer demand"}, Limit: 3},
			wantModel:  "gpt-x",
		},
		{
			name:       "judge model falls back to the built-in default",
			body:       `{}`,
			cfg:        config.Config{JudgeAPIKey: "sk-test"},
			wantStatus: http.StatusOK,
			wantCalls:  1,
			wantSel:    eval.Selection{},
			wantModel:  config.DefaultJudgeModel,
		},
		{
			name:       "missing judge credentials fail before running",
			cfg:        config.Config{},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed body is a bad request",
			body:       `{"runSubset": `,
			cfg:        testConfig,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "malformed JSON body",
		},
		{
			name:       "empty selection is a bad request",
			cfg:        testConfig,
			runErr:     eval.ErrEmptySelection,
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
			wantModel:  "judge-default",
			wantMsg:    "no test cases match the selection",
		},
		{
			name:       "unexpected runner error is a server error",
			cfg:        testConfig,
			runErr:     errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
			wantModel:  "judge-default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &testRunner{summary: summary, err: tt.runErr}
			srv := NewServer(runner, nil, tt.cfg)

			rec := doRequest(t, srv, http.MethodPost, "/eval-chat", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if runner.calls != tt.wantCalls {
				t.Fatalf("runner called %d times, want %d", runner.calls, tt.wantCalls)
			}

			if tt.wantStatus != http.StatusOK {
				msg := decodeError(t, rec)
				if msg == "" {
					t.Error("expected an error message")
				}
				if tt.wantMsg != "" && msg != tt.wantMsg {
					t.Errorf("error = %q, want %q", msg, tt.wantMsg)
				}
				return
			}

			if diff := cmp.Diff(tt.wantSel, runner.lastSel); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
			if runner.lastModel != tt.wantModel {
				t.Errorf("judge model = %q, want %q", runner.lastModel, tt.wantModel)
			}

			var got eval.RunSummary
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid summary body: %v", err)
			}
			if diff := cmp.Diff(*summary, got); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServer_RunIgnoresClientCancellation(t *testing.T) {
	runner := &testRunner{summary: &eval.RunSummary{RunID: "run-1"}}
	srv := NewServer(runner, nil, testConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/eval-chat", nil).WithContext(ctx)
	srv.ServeHTTP(httptest.NewRecorder(), req)

	if runner.calls != 1 {
		t.Fatalf("runner called %d times, want 1", runner.calls)
	}
	if runner.ctxErrSeen != nil {
		t.Errorf("run context was cancelled: %v", runner.ctxErrSeen)
	}
}

func TestServer_ListTests(t *testing.T) {
	srv := NewServer(&testRunner{}, nil, testConfig)

	rec := doRequest(t, srv, http.MethodGet, "/eval-chat/tests", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if got.Version != eval.DefaultCatalogVersion {
		t.Errorf("Version = %q, want %q", got.Version, eval.DefaultCatalogVersion)
	}
	if diff := cmp.Diff(eval.DefaultCatalog().Cases(), got.Tests); diff != "" {
		t.Errorf("tests mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Index(t *testing.T) {
	srv := NewServer(&testRunner{}, nil, testConfig)

	rec := doRequest(t, srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("index returned %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_Runs(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("describe existing run", WithFixture(func(t *testing.T, f *Fixture) {
		first := f.CreateResult("run-a", "one", true, base)
		second := f.CreateResult("run-a", "two", false, base.Add(time.Second))
		srv := NewServer(&testRunner{}, f.Repository, testConfig)

		rec := doRequest(t, srv, http.MethodGet, "/eval-chat/runs/run-a", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}

		var got model.Run
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		want := model.NewRun("run-a", []*model.Result{first, second})
		if diff := cmp.Diff(want, &got); diff != "" {
			t.Errorf("run mismatch (-want +got):\n%s", diff)
		}
	}))

	t.Run("describe non existing run should return 404", WithFixture(func(t *testing.T, f *Fixture) {
		srv := NewServer(&testRunner{}, f.Repository, testConfig)

		rec := doRequest(t, srv, http.MethodGet, "/eval-chat/runs/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	}))

	t.Run("list recent runs newest first", WithFixture(func(t *testing.T, f *Fixture) {
		f.CreateResult("run-old", "one", true, base)
		f.CreateResult("run-new", "one", false, base.Add(time.Hour))
		srv := NewServer(&testRunner{}, f.Repository, testConfig)

		rec := doRequest(t, srv, http.MethodGet, "/eval-chat/runs?limit=1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}

		var got RunsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if len(got.Runs) != 1 || got.Runs[0].RunID != "run-new" {
			t.Errorf("unexpected runs: %+v", got.Runs)
		}
	}))

	t.Run("invalid limit is a bad request", func(t *testing.T) {
		srv := NewServer(&testRunner{}, nil, testConfig)

		rec := doRequest(t, srv, http.MethodGet, "/eval-chat/runs?limit=abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "limit must be a positive integer" {
			t.Errorf("error = %q", msg)
		}
	})
}

func TestServer_Use(t *testing.T) {
	srv := NewServer(&testRunner{}, nil, testConfig)

	var routes []string
	srv.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tpl, _ := mux.CurrentRoute(r).GetPathTemplate()
			routes = append(routes, tpl)
			next.ServeHTTP(w, r)
		})
	})

	doRequest(t, srv, http.MethodGet, "/eval-chat/tests", "")
	doRequest(t, srv, http.MethodGet, "/eval-chat/runs?limit=abc", "")

	want := []string{"/eval-chat/tests", "/eval-chat/runs"}
	if diff := cmp.Diff(want, routes); diff != "" {
		t.Errorf("middleware routes mismatch (-want +got):\n%s", diff)
	}
}
