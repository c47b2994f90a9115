package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"attrconsent/internal/consent/models"
	"attrconsent/internal/sentinel"
	platformsync "attrconsent/pkg/platform/sync"
)

// maxStderr bounds how much script stderr is carried into an error.
const maxStderr = 512

// ScriptStore delegates every repository operation to an external program.
// The program is started once per call with the configured arguments, reads
// one ScriptRequest as JSON on stdin and writes one ScriptResponse as JSON on
// stdout. How it stores decisions is its own business.
//
// No timeout is applied here; cancel ctx to stop a slow script. Mutations
// for the same principal are serialized within this process.
type ScriptStore struct {
	command string
	args    []string
	env     []string
	locks   *platformsync.ShardedMutex
	now     func() time.Time
	logger  *slog.Logger
}

// ScriptRequest is the document a script receives.
type ScriptRequest struct {
	Operation string           `json:"operation"`
	Principal string           `json:"principal"`
	Service   string           `json:"service,omitempty"`
	Decision  *models.Decision `json:"decision,omitempty"`
}

// ScriptResponse is the document a script answers with. Only the field that
// matches the operation is read; Error, when set, fails the call.
type ScriptResponse struct {
	Decision  *models.Decision   `json:"decision,omitempty"`
	Decisions []*models.Decision `json:"decisions,omitempty"`
	Deleted   bool               `json:"deleted,omitempty"`
	Count     int                `json:"count,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ScriptOption configures a ScriptStore.
type ScriptOption func(*ScriptStore)

// WithScriptEnv appends KEY=value pairs to the script's environment.
func WithScriptEnv(env ...string) ScriptOption {
	return func(s *ScriptStore) {
		s.env = append(s.env, env...)
	}
}

// NewScript constructs a repository that runs command with args per call.
func NewScript(command string, args []string, logger *slog.Logger, opts ...ScriptOption) *ScriptStore {
	s := &ScriptStore{
		command: command,
		args:    args,
		locks:   platformsync.NewShardedMutex(platformsync.DefaultShards),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ScriptStore) FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error) {
	resp, err := s.call(ctx, ScriptRequest{Operation: OpFindConsentDecision, Principal: principal, Service: service})
	if err != nil {
		return nil, storageError(OpFindConsentDecision, err)
	}
	return resp.Decision, nil
}

func (s *ScriptStore) FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error) {
	resp, err := s.call(ctx, ScriptRequest{Operation: OpFindConsentDecisions, Principal: principal})
	if err != nil {
		return nil, storageError(OpFindConsentDecisions, err)
	}
	if resp.Decisions == nil {
		return []*models.Decision{}, nil
	}
	return resp.Decisions, nil
}

func (s *ScriptStore) Save(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	stored, err := prepareForSave(decision, s.now())
	if err != nil {
		return nil, err
	}
	var resp *ScriptResponse
	err = s.locks.With(stored.Principal, func() error {
		var callErr error
		resp, callErr = s.call(ctx, ScriptRequest{Operation: OpSave, Principal: stored.Principal, Service: stored.Service, Decision: stored})
		return callErr
	})
	if err != nil {
		return nil, storageError(OpSave, err)
	}
	// A script may echo the record back with its own identifiers.
	if resp.Decision != nil {
		return resp.Decision, nil
	}
	return stored, nil
}

func (s *ScriptStore) DeleteConsentDecision(ctx context.Context, principal, service string) (bool, error) {
	var resp *ScriptResponse
	err := s.locks.With(principal, func() error {
		var callErr error
		resp, callErr = s.call(ctx, ScriptRequest{Operation: OpDeleteConsentDecision, Principal: principal, Service: service})
		return callErr
	})
	if err != nil {
		return false, storageError(OpDeleteConsentDecision, err)
	}
	return resp.Deleted, nil
}

func (s *ScriptStore) DeleteConsentDecisions(ctx context.Context, principal string) (int, error) {
	var resp *ScriptResponse
	err := s.locks.With(principal, func() error {
		var callErr error
		resp, callErr = s.call(ctx, ScriptRequest{Operation: OpDeleteConsentDecisions, Principal: principal})
		return callErr
	})
	if err != nil {
		return 0, storageError(OpDeleteConsentDecisions, err)
	}
	return resp.Count, nil
}

func (s *ScriptStore) call(ctx context.Context, req ScriptRequest) (*ScriptResponse, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode script request: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	if len(s.env) > 0 {
		cmd.Env = append(cmd.Environ(), s.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if s.logger != nil {
		s.logger.DebugContext(ctx, "consent script call",
			"operation", req.Operation,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("script %s: %w", req.Operation, ctxErr)
		}
		return nil, fmt.Errorf("script %s: %w: %v: %s", req.Operation, sentinel.ErrUnavailable, runErr, truncate(stderr.String()))
	}

	var resp ScriptResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, fmt.Errorf("script %s: %w: %v", req.Operation, sentinel.ErrMalformed, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("script %s: %s", req.Operation, resp.Error)
	}
	return &resp, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}
