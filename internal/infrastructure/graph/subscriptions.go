package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/errors"
)

const subscriptionsPath = "subscriptions"

// CreateSubscription registers a change-notification subscription. The
// returned subscription carries the remotely assigned id.
func (c *Client) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	body, _, err := c.do(ctx, http.MethodPost, subscriptionsPath, sub)
	if err != nil {
		return nil, errors.ErrSubscriptionAction.WithMessage("subscription create rejected").WithError(err)
	}

	var created models.Subscription
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, errors.ErrSubscriptionAction.WithMessage("malformed subscription create response").WithError(err)
	}
	if created.ID == "" {
		return nil, errors.ErrSubscriptionAction.WithMessage("subscription create response carried no id")
	}
	return &created, nil
}

// DeleteSubscription removes a subscription by id.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	_, _, err := c.do(ctx, http.MethodDelete, subscriptionsPath+"/"+id, nil)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return err
		}
		return errors.ErrSubscriptionAction.WithMessage("subscription delete rejected").WithError(err)
	}
	return nil
}

// RenewSubscription extends a subscription's expiration via PATCH.
func (c *Client) RenewSubscription(ctx context.Context, id string, expiresAt time.Time) (*models.Subscription, error) {
	patch := struct {
		ExpirationDateTime time.Time `json:"expirationDateTime"`
	}{ExpirationDateTime: expiresAt}

	body, _, err := c.do(ctx, http.MethodPatch, subscriptionsPath+"/"+id, patch)
	if err != nil {
		return nil, errors.ErrSubscriptionAction.WithMessage("subscription renew rejected").WithError(err)
	}

	var renewed models.Subscription
	if err := json.Unmarshal(body, &renewed); err != nil {
		return nil, errors.ErrSubscriptionAction.WithMessage("malformed subscription renew response").WithError(err)
	}
	return &renewed, nil
}
