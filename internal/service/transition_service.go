package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/messaging"
	"github.com/spec-kit/employee-service/internal/observability"
	"github.com/spec-kit/employee-service/internal/persistence"
	"github.com/spec-kit/employee-service/internal/repository"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// Locker serializes work on a single key.
type Locker interface {
	Acquire(ctx context.Context, key string) (persistence.ReleaseFunc, error)
}

// MetadataMirror receives the advisory copy of an employee's role.
type MetadataMirror interface {
	SetMetadata(ctx context.Context, externalID string, meta domain.IdentityMetadata) error
}

// NotificationSink stores notification records.
type NotificationSink interface {
	Create(ctx context.Context, n *domain.NotificationRecord) error
}

// TransitionService promotes, demotes and transfers the super administrator role.
type TransitionService struct {
	employees   repository.EmployeeRepository
	mirror      advisoryMirror
	notifier    NotificationSink
	locker      Locker
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	notifyActor bool
	now         func() time.Time
}

// TransitionDependencies bundles collaborators of the transition service.
// Retries, Dispatcher and Metrics are optional.
type TransitionDependencies struct {
	EmployeeRepo repository.EmployeeRepository
	Mirror       MetadataMirror
	Notifier     NotificationSink
	Locker       Locker
	Retries      messaging.MirrorRetryQueue
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	NotifyActor  bool
}

// NewTransitionService constructs the service.
func NewTransitionService(deps TransitionDependencies) *TransitionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = persistence.NewKeyedMutex(0)
	}
	return &TransitionService{
		employees:   deps.EmployeeRepo,
		mirror:      advisoryMirror{mirror: deps.Mirror, retries: deps.Retries, logger: logger},
		notifier:    deps.Notifier,
		locker:      locker,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		notifyActor: deps.NotifyActor,
		now:         time.Now,
	}
}

type transitionErrorSpec struct {
	code   string
	status int
}

var transitionErrors = map[error]transitionErrorSpec{
	domain.ErrActorNotFound:          {"ACTOR_NOT_FOUND", http.StatusNotFound},
	domain.ErrTargetNotFound:         {"TARGET_NOT_FOUND", http.StatusNotFound},
	domain.ErrUnknownRole:            {"UNKNOWN_ROLE", http.StatusBadRequest},
	domain.ErrNoFurtherTransition:    {"NO_FURTHER_TRANSITION", http.StatusBadRequest},
	domain.ErrInvalidTransition:      {"INVALID_TRANSITION", http.StatusBadRequest},
	domain.ErrInsufficientPermission: {"INSUFFICIENT_PERMISSION", http.StatusForbidden},
	domain.ErrTransitionConflict:     {"TRANSITION_CONFLICT", http.StatusConflict},
	domain.ErrPartialTransferFailure: {"PARTIAL_TRANSFER_FAILURE", http.StatusInternalServerError},
}

func transitionError(sentinel error, details map[string]any) error {
	spec, ok := transitionErrors[sentinel]
	if !ok {
		return apperrors.NewInternalError(sentinel)
	}
	return apperrors.Wrap(sentinel, spec.code, spec.status, details)
}

// ApplyTransition executes one role change requested by the identity
// actingExternalID against employee targetID. explicitNewRole overrides the
// adjacent role for promote and demote.
func (s *TransitionService) ApplyTransition(ctx context.Context, actingExternalID, targetID string, action domain.TransitionAction, explicitNewRole *domain.Role) (*domain.TransitionResult, error) {
	req := domain.TransitionRequest{
		ActingExternalID: actingExternalID,
		TargetEmployeeID: targetID,
		Action:           action,
		ExplicitNewRole:  explicitNewRole,
	}

	var (
		result *domain.TransitionResult
		err    error
	)
	switch action {
	case domain.ActionPromote, domain.ActionDemote:
		result, err = s.applyStep(ctx, req)
	case domain.ActionTransferSuperAdmin:
		result, err = s.applyTransfer(ctx, req)
	default:
		err = apperrors.NewValidationError("unknown transition action", map[string]any{"action": string(action)})
	}

	outcome := "OK"
	switch {
	case err != nil:
		outcome = apperrors.ToDomainError(err).Code
	case result.NoOp:
		outcome = "NO_OP"
	case len(result.Warnings) > 0:
		outcome = "OK_WITH_WARNINGS"
	}
	s.metrics.RecordTransition(string(action), outcome)
	return result, err
}

func (s *TransitionService) resolveActor(ctx context.Context, externalID string) (*domain.EmployeeProfile, error) {
	actor, err := s.employees.GetByExternalID(ctx, externalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transitionError(domain.ErrActorNotFound, map[string]any{"external_id": externalID})
	}
	if err != nil {
		return nil, apperrors.NewInfrastructureError(err)
	}
	return actor, nil
}

func (s *TransitionService) resolveEmployee(ctx context.Context, id string, notFound error) (*domain.EmployeeProfile, error) {
	emp, err := s.employees.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transitionError(notFound, map[string]any{"employee_id": id})
	}
	if err != nil {
		return nil, apperrors.NewInfrastructureError(err)
	}
	return emp, nil
}

func (s *TransitionService) lock(ctx context.Context, ids ...string) (persistence.ReleaseFunc, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var releases []persistence.ReleaseFunc
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		release, err := s.locker.Acquire(ctx, id)
		if err != nil {
			releaseAll()
			if errors.Is(err, persistence.ErrLockNotAcquired) {
				return nil, transitionError(domain.ErrTransitionConflict, map[string]any{"employee_id": id})
			}
			return nil, apperrors.NewInfrastructureError(err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

func (s *TransitionService) updateRole(ctx context.Context, emp *domain.EmployeeProfile, role domain.Role) (*domain.EmployeeProfile, error) {
	updated, err := s.employees.UpdateRole(ctx, emp.ID, role, emp.Version)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, transitionError(domain.ErrTransitionConflict, map[string]any{"employee_id": emp.ID})
	}
	if err != nil {
		return nil, apperrors.NewInfrastructureError(err)
	}
	return updated, nil
}

func (s *TransitionService) applyStep(ctx context.Context, req domain.TransitionRequest) (*domain.TransitionResult, error) {
	actor, err := s.resolveActor(ctx, req.ActingExternalID)
	if err != nil {
		return nil, err
	}

	// The actor's row is locked too so a concurrent transfer cannot leave
	// this step authorized by a rank the actor no longer holds.
	release, err := s.lock(ctx, actor.ID, req.TargetEmployeeID)
	if err != nil {
		return nil, err
	}
	defer release()

	actor, err = s.resolveEmployee(ctx, actor.ID, domain.ErrActorNotFound)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveEmployee(ctx, req.TargetEmployeeID, domain.ErrTargetNotFound)
	if err != nil {
		return nil, err
	}

	newRole, err := determineRole(target.Role, req.Action, req.ExplicitNewRole)
	if err != nil {
		return nil, err
	}

	if !auth.CanAssign(actor.Role, target.Role, newRole) {
		return nil, transitionError(domain.ErrInsufficientPermission, map[string]any{
			"acting_role": actor.Role.String(),
			"target_role": target.Role.String(),
			"new_role":    newRole.String(),
		})
	}

	if newRole == target.Role {
		return &domain.TransitionResult{Target: *target, PreviousRole: target.Role, NewRole: newRole, NoOp: true}, nil
	}

	updated, err := s.updateRole(ctx, target, newRole)
	if err != nil {
		return nil, err
	}
	s.logger.Info("employee role changed",
		zap.String("action", string(req.Action)),
		zap.String("employee_id", updated.ID),
		zap.String("actor_id", actor.ID),
		zap.String("old_role", target.Role.String()),
		zap.String("new_role", updated.Role.String()))

	result := &domain.TransitionResult{Target: *updated, PreviousRole: target.Role, NewRole: updated.Role}
	if w := s.mirrorRole(ctx, updated); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}

	notificationType, message := stepNotification(req.Action, updated.Role)
	if w := s.notify(ctx, updated.ID, notificationType, message); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	if s.notifyActor && actor.Role >= domain.RoleManager {
		msg := fmt.Sprintf("You changed %s's role from %s to %s.", updated.Name, target.Role.DisplayName(), updated.Role.DisplayName())
		if w := s.notify(ctx, actor.ID, domain.NotificationRoleChangeConfirmed, msg); w != nil {
			result.Warnings = append(result.Warnings, *w)
		}
	}

	s.publish(ctx, events.Event{
		Type:       events.EventRoleChanged,
		EmployeeID: updated.ID,
		ActorID:    actor.ID,
		Payload: events.RoleChangedPayload{
			Action:  req.Action,
			OldRole: target.Role,
			NewRole: updated.Role,
		},
	})
	return result, nil
}

func determineRole(current domain.Role, action domain.TransitionAction, explicit *domain.Role) (domain.Role, error) {
	dir, _ := action.Direction()
	if explicit == nil {
		next, ok := domain.NextRole(current, dir)
		if !ok {
			return 0, transitionError(domain.ErrNoFurtherTransition, map[string]any{
				"role":   current.String(),
				"action": string(action),
			})
		}
		return next, nil
	}

	role := *explicit
	if !role.Valid() {
		return 0, transitionError(domain.ErrUnknownRole, map[string]any{"role": int(role)})
	}
	if (dir == domain.DirectionUp && role < current) || (dir == domain.DirectionDown && role > current) {
		return 0, transitionError(domain.ErrInvalidTransition, map[string]any{
			"current_role":   current.String(),
			"requested_role": role.String(),
			"action":         string(action),
		})
	}
	return role, nil
}

func stepNotification(action domain.TransitionAction, role domain.Role) (domain.NotificationType, string) {
	if action == domain.ActionDemote {
		return domain.NotificationRoleDemoted, fmt.Sprintf("Your role has been changed to %s.", role.DisplayName())
	}
	return domain.NotificationRolePromoted, fmt.Sprintf("Congratulations! You have been promoted to %s.", role.DisplayName())
}

func (s *TransitionService) applyTransfer(ctx context.Context, req domain.TransitionRequest) (*domain.TransitionResult, error) {
	actor, err := s.resolveActor(ctx, req.ActingExternalID)
	if err != nil {
		return nil, err
	}
	if !auth.CanTransferSuperAdmin(actor.Role) {
		return nil, transitionError(domain.ErrInsufficientPermission, map[string]any{"acting_role": actor.Role.String()})
	}

	release, err := s.lock(ctx, actor.ID, req.TargetEmployeeID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read both under lock; the actor may have changed since resolution.
	actor, err = s.resolveEmployee(ctx, actor.ID, domain.ErrActorNotFound)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveEmployee(ctx, req.TargetEmployeeID, domain.ErrTargetNotFound)
	if err != nil {
		return nil, err
	}
	if target.Role == domain.RoleSuperAdministrator {
		return nil, transitionError(domain.ErrNoFurtherTransition, map[string]any{"role": target.Role.String(), "action": string(req.Action)})
	}
	if !auth.CanTransferSuperAdmin(actor.Role) {
		return nil, transitionError(domain.ErrInsufficientPermission, map[string]any{"acting_role": actor.Role.String()})
	}

	demoted, err := s.updateRole(ctx, actor, domain.RoleAdministrator)
	if err != nil {
		return nil, err
	}

	promoted, err := s.updateRole(ctx, target, domain.RoleSuperAdministrator)
	if err != nil {
		s.logger.Error("super administrator transfer partially applied; no super administrator remains",
			zap.String("demoted_id", demoted.ID),
			zap.String("target_id", target.ID),
			zap.Error(err))
		s.mirrorRole(ctx, demoted)
		s.publish(ctx, events.Event{
			Type:       events.EventPartialTransferFailure,
			EmployeeID: target.ID,
			ActorID:    demoted.ID,
			Payload: events.PartialTransferFailurePayload{
				DemotedID: demoted.ID,
				TargetID:  target.ID,
				Error:     err.Error(),
			},
		})
		return nil, transitionError(domain.ErrPartialTransferFailure, map[string]any{
			"demoted_id": demoted.ID,
			"target_id":  target.ID,
			"cause":      err.Error(),
		})
	}
	s.logger.Info("super administrator transferred",
		zap.String("previous_holder_id", demoted.ID),
		zap.String("new_holder_id", promoted.ID))

	result := &domain.TransitionResult{Target: *promoted, PreviousRole: target.Role, NewRole: promoted.Role}
	for _, emp := range []*domain.EmployeeProfile{demoted, promoted} {
		if w := s.mirrorRole(ctx, emp); w != nil {
			result.Warnings = append(result.Warnings, *w)
		}
	}

	if w := s.notify(ctx, promoted.ID, domain.NotificationSuperAdminGranted,
		"You are now the Super Administrator."); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	if w := s.notify(ctx, demoted.ID, domain.NotificationSuperAdminRelinquish,
		fmt.Sprintf("You transferred the Super Administrator role to %s. Your role is now %s.", promoted.Name, demoted.Role.DisplayName())); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventSuperAdminTransferred,
		EmployeeID: promoted.ID,
		ActorID:    demoted.ID,
		Payload: events.SuperAdminTransferredPayload{
			PreviousHolderID: demoted.ID,
			NewHolderID:      promoted.ID,
		},
	})
	return result, nil
}

// mirrorRole copies emp's role into the identity metadata.
func (s *TransitionService) mirrorRole(ctx context.Context, emp *domain.EmployeeProfile) *domain.TransitionWarning {
	role := emp.Role
	return s.mirror.write(ctx, emp, domain.IdentityMetadata{
		Role:              &role,
		RoleSetupComplete: true,
		UpdatedAt:         s.now().UTC(),
	})
}

// notify records a notification; failures never fail the transition.
func (s *TransitionService) notify(ctx context.Context, recipientID string, typ domain.NotificationType, message string) *domain.TransitionWarning {
	if s.notifier == nil {
		return nil
	}
	record := &domain.NotificationRecord{
		RecipientID: recipientID,
		Message:     message,
		Type:        typ,
		Read:        false,
	}
	if err := s.notifier.Create(ctx, record); err != nil {
		s.logger.Warn("notification create failed",
			zap.String("recipient_id", recipientID),
			zap.String("type", string(typ)),
			zap.Error(err))
		return &domain.TransitionWarning{
			Code:       domain.WarningNotificationFailed,
			EmployeeID: recipientID,
			Message:    err.Error(),
		}
	}
	return nil
}

func (s *TransitionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
