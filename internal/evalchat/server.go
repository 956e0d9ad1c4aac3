package evalchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/orbit-maths/tutor-eval/internal/config"
	"github.com/orbit-maths/tutor-eval/internal/eval"
	"github.com/orbit-maths/tutor-eval/internal/eval/model"
	"github.com/orbit-maths/tutor-eval/internal/httpx"
	"github.com/twitchtv/twirp"
)

// maxBodyBytes bounds the size of a run request body.
const maxBodyBytes = 1 << 20

// Runner executes evaluation runs.
type Runner interface {
	Execute(ctx context.Context, sel eval.Selection, judgeModel string) (*eval.RunSummary, error)
	Catalog() *eval.Catalog
}

// Repository reads persisted runs.
type Repository interface {
	DescribeRun(ctx context.Context, runID string) (*model.Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*model.Run, error)
}

// RunRequest is the body of POST /eval-chat. Every field is optional.
type RunRequest struct {
	RunSubset     string   `json:"runSubset,omitempty"`
	SpecificTests []string `json:"specificTests,omitempty"`
	TestLimit     int      `json:"testLimit,omitempty"`
	JudgeModel    string   `json:"judgeModel,omitempty"`
}

func (r RunRequest) Selection() eval.Selection {
	return eval.Selection{
		Category: r.RunSubset,
		Names:    r.SpecificTests,
		Limit:    r.TestLimit,
	}
}

type CatalogResponse struct {
	Version string          `json:"version"`
	Tests   []eval.TestCase `json:"tests"`
}

type RunsResponse struct {
	Runs []*model.Run `json:"runs"`
}

var _ http.Handler = (*Server)(nil)

// Server exposes evaluation runs and their history over HTTP.
type Server struct {
	runner Runner
	repo   Repository
	cfg    config.Config
	router *mux.Router
}

func NewServer(runner Runner, repo Repository, cfg config.Config) *Server {
	s := &Server{
		runner: runner,
		repo:   repo,
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/eval-chat", s.handleRun).Methods(http.MethodPost)
	s.router.HandleFunc("/eval-chat/runs", s.handleListRuns).Methods(http.MethodGet)
	s.router.HandleFunc("/eval-chat/runs/{runId}", s.handleDescribeRun).Methods(http.MethodGet)
	s.router.HandleFunc("/eval-chat/tests", s.handleListTests).Methods(http.MethodGet)

	return s
}

// Use installs middlewares on the server's router. They run after route
// matching, so route templates and path variables are available to them.
func (s *Server) Use(mwf ...mux.MiddlewareFunc) {
	s.router.Use(mwf...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, _ = fmt.Fprint(w, "Tutor evaluation harness is up. POST /eval-chat to start a run.")
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.cfg.RequireJudgeCredentials(); err != nil {
		slog.ErrorContext(ctx, "Refusing to start run", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	req, err := decodeRunRequest(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	judgeModel := req.JudgeModel
	if judgeModel == "" {
		judgeModel = s.cfg.JudgeModel
	}
	if judgeModel == "" {
		judgeModel = config.DefaultJudgeModel
	}

	slog.InfoContext(ctx, "Evaluation requested",
		"run_subset", req.RunSubset,
		"specific_tests", req.SpecificTests,
		"test_limit", req.TestLimit,
		"judge_model", judgeModel)

	// A run is not aborted when the caller goes away; every selected case still
	// produces a persisted result.
	summary, err := s.runner.Execute(context.WithoutCancel(ctx), req.Selection(), judgeModel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := model.DefaultRecentRuns
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, twirp.NewError(twirp.InvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := s.repo.ListRecentRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleDescribeRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(mux.Vars(r)["runId"])
	if runID == "" {
		s.writeError(w, r, twirp.RequiredArgumentError("runId"))
		return
	}

	run, err := s.repo.DescribeRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, run)
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	catalog := s.runner.Catalog()
	httpx.WriteJSON(w, http.StatusOK, CatalogResponse{
		Version: catalog.Version(),
		Tests:   catalog.Cases(),
	})
}

// writeError maps twirp-coded errors to their HTTP status. Anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var te twirp.Error
	if errors.As(err, &te) {
		status := twirp.ServerHTTPStatusFromErrorCode(te.Code())
		if status >= 500 {
			slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		}
		httpx.WriteError(w, status, te.Msg())
		return
	}

	slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	httpx.WriteError(w, http.StatusInternalServerError, err.Error())
}

// decodeRunRequest accepts an empty body as "run everything".
func decodeRunRequest(body io.Reader) (RunRequest, error) {
	var req RunRequest
	if body == nil {
		return req, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return req, twirp.NewError(twirp.InvalidArgument, "failed to read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, twirp.NewError(twirp.InvalidArgument, "malformed JSON body")
	}

	return req, nil
}
