// Package service implements the application services orchestrating the
// subscription lifecycle and notification dispatch.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graphbind/graphbind/internal/application/dto"
	"github.com/graphbind/graphbind/internal/domain/models"
	domainservice "github.com/graphbind/graphbind/internal/domain/service"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
	"github.com/graphbind/graphbind/pkg/utils"
)

// SubscriptionAppService orchestrates subscription lifecycle actions against
// the remote API and keeps the local store consistent with the outcome.
type SubscriptionAppService interface {
	// Execute performs one action on behalf of the identity described by d.
	Execute(ctx context.Context, d models.IdentityDescriptor, req dto.SubscriptionActionRequest) (*dto.SubscriptionActionResult, error)

	// RefreshAll attempts to extend every stored subscription. Used by the
	// periodic refresh cycle; per-entry failures are isolated.
	RefreshAll(ctx context.Context) error
}

type subscriptionAppService struct {
	cache           domainservice.ClientCache
	store           domainservice.SubscriptionStore
	notificationURL string
	metrics         *monitoring.Metrics
	log             logger.Logger
	now             func() time.Time
}

// NewSubscriptionAppService creates the lifecycle manager.
func NewSubscriptionAppService(
	cache domainservice.ClientCache,
	store domainservice.SubscriptionStore,
	notificationURL string,
	metrics *monitoring.Metrics,
	log logger.Logger,
) SubscriptionAppService {
	return &subscriptionAppService{
		cache:           cache,
		store:           store,
		notificationURL: notificationURL,
		metrics:         metrics,
		log:             log.WithComponent("subscription_service"),
		now:             time.Now,
	}
}

func (s *subscriptionAppService) Execute(ctx context.Context, d models.IdentityDescriptor, req dto.SubscriptionActionRequest) (*dto.SubscriptionActionResult, error) {
	if err := validateAction(req); err != nil {
		return nil, err
	}

	client, err := s.cache.GetClient(ctx, d)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case constants.ActionCreate:
		owner, err := ownerPrincipal(d)
		if err != nil {
			return nil, err
		}
		return s.create(ctx, client, owner, req)
	case constants.ActionDelete:
		return nil, s.delete(ctx, client, req.SubscriptionIDs)
	case constants.ActionRefresh:
		return nil, s.refresh(ctx, client, req.SubscriptionIDs)
	default:
		return nil, errors.ErrSubscriptionAction.WithMessage("unknown action %q", req.Action)
	}
}

// validateAction enforces the per-action field invariants before any I/O.
func validateAction(req dto.SubscriptionActionRequest) error {
	switch req.Action {
	case constants.ActionCreate:
		if req.Resource == "" {
			return errors.ErrSubscriptionAction.WithMessage("create requires a target resource")
		}
	case constants.ActionDelete, constants.ActionRefresh:
		if req.Resource != "" {
			return errors.ErrSubscriptionAction.WithMessage("%s must not specify a resource", req.Action)
		}
		if len(req.ChangeTypes) != 0 {
			return errors.ErrSubscriptionAction.WithMessage("%s must not specify change types", req.Action)
		}
	}
	return nil
}

// create submits one subscription per client state. Each item is independent:
// one failure does not roll back subscriptions already created.
func (s *subscriptionAppService) create(ctx context.Context, client domainservice.GraphAPI, owner string, req dto.SubscriptionActionRequest) (*dto.SubscriptionActionResult, error) {
	clientStates := req.ClientStates
	if len(clientStates) == 0 {
		clientStates = []string{uuid.NewString()}
	}

	result := &dto.SubscriptionActionResult{}
	for _, clientState := range clientStates {
		sub := models.Subscription{
			Resource:           req.Resource,
			ChangeType:         models.JoinChangeTypes(req.ChangeTypes),
			NotificationURL:    s.notificationURL,
			ClientState:        clientState,
			ExpirationDateTime: models.CapExpiration(req.Expiration, s.now()),
		}

		created, err := client.CreateSubscription(ctx, sub)
		if err != nil {
			s.metrics.RecordSubscriptionAction(string(constants.ActionCreate), "failure")
			s.log.Error(ctx, "subscription create failed", err, logger.Fields{"resource": req.Resource})
			continue
		}

		if err := s.store.Save(ctx, models.SubscriptionEntry{Subscription: *created, UserID: owner}); err != nil {
			s.log.Error(ctx, "failed to persist subscription", err, logger.Fields{"id": created.ID})
		}

		s.metrics.RecordSubscriptionAction(string(constants.ActionCreate), "success")
		result.Subscriptions = append(result.Subscriptions, dto.SubscriptionSummary{
			ID:                 created.ID,
			Resource:           created.Resource,
			ExpirationDateTime: created.ExpirationDateTime,
		})
	}
	return result, nil
}

// delete issues a best-effort remote delete for each id, then removes the
// local record unconditionally. The remote subscription may already be gone.
func (s *subscriptionAppService) delete(ctx context.Context, client domainservice.GraphAPI, ids []string) error {
	for _, id := range ids {
		func() {
			defer func() {
				if err := s.store.Delete(ctx, id); err != nil {
					s.log.Error(ctx, "failed to delete local subscription record", err, logger.Fields{"id": id})
				}
			}()

			if err := client.DeleteSubscription(ctx, id); err != nil {
				s.metrics.RecordSubscriptionAction(string(constants.ActionDelete), "failure")
				s.log.Warn(ctx, "remote subscription delete failed, removing local record anyway", logger.Fields{
					"id":    id,
					"error": err.Error(),
				})
				return
			}
			s.metrics.RecordSubscriptionAction(string(constants.ActionDelete), "success")
		}()
	}
	return nil
}

// refresh extends each subscription's expiration. A failed renewal whose
// stored expiry already passed is unrecoverable and its record is removed;
// otherwise the record stays for the next refresh cycle.
func (s *subscriptionAppService) refresh(ctx context.Context, client domainservice.GraphAPI, ids []string) error {
	for _, id := range ids {
		s.refreshOne(ctx, client, id)
	}
	return nil
}

func (s *subscriptionAppService) refreshOne(ctx context.Context, client domainservice.GraphAPI, id string) {
	newExpiry := models.CapExpiration(time.Time{}, s.now())

	renewed, err := client.RenewSubscription(ctx, id, newExpiry)
	if err == nil {
		s.metrics.RecordSubscriptionAction(string(constants.ActionRefresh), "success")
		entry, getErr := s.store.Get(ctx, id)
		if getErr != nil {
			s.log.Warn(ctx, "renewed subscription has no local record", logger.Fields{"id": id})
			return
		}
		entry.Subscription.ExpirationDateTime = renewed.ExpirationDateTime
		if saveErr := s.store.Save(ctx, *entry); saveErr != nil {
			s.log.Error(ctx, "failed to persist renewed expiry", saveErr, logger.Fields{"id": id})
		}
		return
	}

	s.metrics.RecordSubscriptionAction(string(constants.ActionRefresh), "failure")

	entry, getErr := s.store.Get(ctx, id)
	if getErr != nil {
		s.log.Warn(ctx, "refresh failed for unknown subscription", logger.Fields{"id": id, "error": err.Error()})
		return
	}

	if entry.Subscription.ExpirationDateTime.Before(s.now()) {
		// Expired and unrenewable: the remote side has abandoned it.
		s.log.Warn(ctx, "removing abandoned subscription", logger.Fields{"id": id})
		if delErr := s.store.Delete(ctx, id); delErr != nil {
			s.log.Error(ctx, "failed to delete abandoned subscription record", delErr, logger.Fields{"id": id})
		}
		return
	}

	s.log.Warn(ctx, "subscription refresh failed, will retry next cycle", logger.Fields{
		"id":    id,
		"error": err.Error(),
	})
}

func (s *subscriptionAppService) RefreshAll(ctx context.Context) error {
	entries, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		client, err := s.cache.GetClient(ctx, models.UserFromID(entry.UserID, constants.ProviderAAD))
		if err != nil {
			s.log.Error(ctx, "failed to resolve client for subscription owner", err, logger.Fields{
				"id":      entry.Subscription.ID,
				"user_id": entry.UserID,
			})
			continue
		}
		s.refreshOne(ctx, client, entry.Subscription.ID)
	}
	return nil
}

// ownerPrincipal resolves the principal id a created subscription is stored
// under: the token subject for token-carrying modes, the user id for store
// lookups, and the application itself for client credentials.
func ownerPrincipal(d models.IdentityDescriptor) (string, error) {
	switch d.Mode {
	case constants.ModeUserFromID:
		return d.UserID, nil
	case constants.ModeClientCredentials:
		return "app:" + d.TargetResource(), nil
	case constants.ModeUserFromToken:
		claims, err := utils.DecodeTokenClaims(d.UserToken)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	case constants.ModeUserFromRequest:
		token := d.Request.Header.Get(constants.HeaderAADIDToken)
		if authz := d.Request.Header.Get(constants.HeaderAuthorization); authz != "" {
			token = strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		}
		claims, err := utils.DecodeTokenClaims(token)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	default:
		return "", errors.ErrAuthConfiguration.WithMessage("unknown identity mode %q", d.Mode)
	}
}
