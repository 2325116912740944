package exceptions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
)

const resourceTypeException = "permission_exception"

// Service manages one-off permission grants outside the role system.
type Service struct {
	repo     Repository
	recorder ledger.Recorder
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, recorder ledger.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder, validate: validator.New(), now: func() time.Time { return time.Now().UTC() }}
}

// Grant creates an already-approved exception. There is no separate approval
// workflow: ApprovedBy is required up front.
func (s *Service) Grant(ctx context.Context, req GrantRequest) (PermissionException, error) {
	if err := s.validate.Struct(req); err != nil {
		return PermissionException{}, fmt.Errorf("exceptions: invalid grant request: %w", err)
	}
	now := s.now()
	effective := now
	if req.EffectiveDate != nil {
		effective = *req.EffectiveDate
	}
	exc, err := s.repo.Insert(ctx, PermissionException{
		ID:            uuid.NewString(),
		MemberID:      req.MemberID,
		OrgID:         req.OrgID,
		Permission:    req.Permission,
		ResourceType:  req.ResourceType,
		ResourceID:    req.ResourceID,
		Reason:        req.Reason,
		ApprovedBy:    req.ApprovedBy,
		ApprovalDate:  now,
		EffectiveDate: effective,
		ExpiresAt:     req.ExpiresAt,
		UsageLimit:    req.UsageLimit,
	})
	if err != nil {
		return PermissionException{}, err
	}
	s.record(ctx, ledger.Entry{
		ActorID:            req.ApprovedBy,
		Action:             "exception.grant",
		ResourceType:       resourceTypeException,
		ResourceID:         exc.ID,
		OrgID:              exc.OrgID,
		Granted:            true,
		RequiredPermission: exc.Permission,
		GrantMethod:        ledger.GrantMethodException,
		IsSensitive:        true,
	})
	return exc, nil
}

// Revoke terminally deactivates an exception.
func (s *Service) Revoke(ctx context.Context, id, revokedBy, reason string) error {
	exc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Revoke(ctx, id, revokedBy, reason, s.now()); err != nil {
		return err
	}
	s.record(ctx, ledger.Entry{
		ActorID:            revokedBy,
		Action:             "exception.revoke",
		ResourceType:       resourceTypeException,
		ResourceID:         id,
		OrgID:              exc.OrgID,
		Granted:            true,
		RequiredPermission: exc.Permission,
		IsSensitive:        true,
	})
	return nil
}

// Check reports whether a usable exception covers the request. The decision
// itself is audited.
func (s *Service) Check(ctx context.Context, req CheckRequest) (bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return false, fmt.Errorf("exceptions: invalid check request: %w", err)
	}
	started := s.now()
	candidates, err := s.repo.FindMatching(ctx, req.MemberID, req.OrgID, req.Permission)
	if err != nil {
		return false, err
	}
	granted := false
	for _, exc := range candidates {
		if exc.Matches(req.Permission, req.ResourceType, req.ResourceID) && exc.Usable(started) {
			granted = true
			break
		}
	}
	s.recordDecision(ctx, req, granted, started)
	return granted, nil
}

// RecordUsage increments an exception's usage counter. Callers that need the
// check and the increment to be one atomic unit should use Consume instead.
func (s *Service) RecordUsage(ctx context.Context, id string) error {
	return s.repo.IncrementUsage(ctx, id, s.now())
}

// Consume atomically checks for a usable matching exception and burns one
// usage. Under concurrency the conditional update guarantees the usage limit
// is never exceeded.
func (s *Service) Consume(ctx context.Context, req CheckRequest) (bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return false, fmt.Errorf("exceptions: invalid consume request: %w", err)
	}
	started := s.now()
	granted, err := s.repo.ConsumeMatching(ctx, req.MemberID, req.OrgID, req.Permission, req.ResourceType, req.ResourceID, started)
	if err != nil {
		return false, err
	}
	s.recordDecision(ctx, req, granted, started)
	return granted, nil
}

func (s *Service) recordDecision(ctx context.Context, req CheckRequest, granted bool, started time.Time) {
	entry := ledger.Entry{
		ActorID:            req.MemberID,
		Action:             "exception.check",
		ResourceType:       req.ResourceType,
		ResourceID:         req.ResourceID,
		OrgID:              req.OrgID,
		Granted:            granted,
		RequiredPermission: req.Permission,
		GrantMethod:        ledger.GrantMethodException,
		ExecutionTimeMs:    s.now().Sub(started).Milliseconds(),
	}
	if !granted {
		entry.GrantMethod = ledger.GrantMethodNone
		entry.DenialReason = "no usable exception"
	}
	s.record(ctx, entry)
}

func (s *Service) record(ctx context.Context, entry ledger.Entry) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, entry)
}
