package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

type createSubscriptionRequest struct {
	UserID            string   `json:"user_id"`
	SubType           string   `json:"sub_type"`
	SubTarget         string   `json:"sub_target"`
	PriorityThreshold string   `json:"priority_threshold"`
	EventTypes        []string `json:"event_types"`
	InterestText      string   `json:"interest_text,omitempty"`
	SlackChannel      string   `json:"slack_channel,omitempty"`
}

// createSubscriptionHandler handles POST /subscriptions.
func (s *Server) createSubscriptionHandler(c *echo.Context) error {
	if s.store == nil || s.store.Subscriptions == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	var req createSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.UserID == "" || req.SubType == "" || req.SubTarget == "" {
		return writeError(c, apperrors.NewValidationError("user_id/sub_type/sub_target", "all three are required"))
	}

	sub, err := s.store.Subscriptions.Create(c.Request().Context(), contracts.Subscription{
		UID: contracts.MintUID("subscription"), UserID: req.UserID, SubType: req.SubType,
		SubTarget: req.SubTarget, PriorityThreshold: req.PriorityThreshold, EventTypes: req.EventTypes,
		Enabled: true, InterestText: req.InterestText, SlackChannel: req.SlackChannel,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sub)
}

// listSubscriptionsHandler handles GET /subscriptions. SubscriptionStore
// only exposes the enabled set, not a full list-all; disabled
// subscriptions are therefore not retrievable through this endpoint.
func (s *Server) listSubscriptionsHandler(c *echo.Context) error {
	if s.store == nil || s.store.Subscriptions == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	subs, err := s.store.Subscriptions.ListEnabled(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, subs)
}

type patchSubscriptionRequest struct {
	Enabled *bool `json:"enabled"`
}

// patchSubscriptionHandler handles PATCH /subscriptions/:uid. The store
// only exposes a boolean enabled toggle, so this is the one field a
// patch can change.
func (s *Server) patchSubscriptionHandler(c *echo.Context) error {
	if s.store == nil || s.store.Subscriptions == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	var req patchSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Enabled == nil {
		return writeError(c, apperrors.NewValidationError("enabled", "required"))
	}
	if err := s.store.Subscriptions.SetEnabled(c.Request().Context(), c.Param("uid"), *req.Enabled); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "updated"})
}

// deleteSubscriptionHandler handles DELETE /subscriptions/:uid by
// disabling it; there is no hard-delete path in SubscriptionStore.
func (s *Server) deleteSubscriptionHandler(c *echo.Context) error {
	if s.store == nil || s.store.Subscriptions == nil {
		return writeError(c, apperrors.ErrInternal)
	}
	if err := s.store.Subscriptions.SetEnabled(c.Request().Context(), c.Param("uid"), false); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusNoContent, nil)
}
