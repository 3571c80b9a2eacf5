package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/application/pricingsync"
	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/infrastructure/logger"
	"github.com/pricesync/backend/internal/interfaces/http/middleware"
)

// Notification headers sent by the platform
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderShopDomain = middleware.ShopDomainHeader
	HeaderTopic      = middleware.TopicHeader
)

// DefaultWebhookMaxBodySize is used when no limit is configured (64KB)
const DefaultWebhookMaxBodySize = 64 << 10

// NotificationHandler runs a verified notification to completion
type NotificationHandler interface {
	Handle(ctx context.Context, n pricingsync.Notification) *pricingsync.Outcome
}

// WebhookHandler receives item lifecycle notifications.
// These endpoints are called by the platform and authenticated by body signature only.
type WebhookHandler struct {
	BaseHandler
	service     NotificationHandler
	verifier    integration.NotificationVerifier
	maxBodySize int64
	now         func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler. maxBodySize <= 0 uses DefaultWebhookMaxBodySize.
func NewWebhookHandler(service NotificationHandler, verifier integration.NotificationVerifier, maxBodySize int64) *WebhookHandler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultWebhookMaxBodySize
	}
	return &WebhookHandler{
		service:     service,
		verifier:    verifier,
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// WebhookResponse is returned for every notification
type WebhookResponse struct {
	Received   bool   `json:"received"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

// RegisterRoutes mounts the notification endpoints on rg
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.HandleNotification)
	rg.POST("/products/create", h.HandleItemCreated)
	rg.POST("/products/update", h.HandleItemUpdated)
}

// HandleItemCreated handles POST /webhooks/products/create
func (h *WebhookHandler) HandleItemCreated(c *gin.Context) {
	h.receive(c, integration.TopicItemCreated)
}

// HandleItemUpdated handles POST /webhooks/products/update
func (h *WebhookHandler) HandleItemUpdated(c *gin.Context) {
	h.receive(c, integration.TopicItemUpdated)
}

// HandleNotification handles POST /webhooks and dispatches on the topic header.
// Topics other than item create and update are acknowledged without work.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	h.receive(c, integration.Topic(strings.TrimSpace(c.GetHeader(HeaderTopic))))
}

// receive verifies and parses the notification, then hands it to the service.
// Once a notification is verified and parsed the response is always 200,
// whatever the outcome of the run.
func (h *WebhookHandler) receive(c *gin.Context, topic integration.Topic) {
	log := logger.L(c.Request.Context())

	// The raw body is needed for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodySize+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if int64(len(payload)) > h.maxBodySize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	if err := h.verifier.Verify(payload, c.GetHeader(HeaderHmac)); err != nil {
		log.Warn("Webhook signature verification failed",
			zap.String("topic", topic.String()),
			zap.Error(err))
		c.JSON(http.StatusUnauthorized, WebhookResponse{Message: "Webhook signature verification failed"})
		return
	}

	shop := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderShopDomain)))
	if shop == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Missing " + HeaderShopDomain + " header"})
		return
	}

	itemID, err := parseItemID(payload)
	if err != nil {
		log.Warn("Webhook body is not JSON", zap.String("shop", shop), zap.Error(err))
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Invalid request body"})
		return
	}

	deliveryID := c.GetHeader(HeaderWebhookID)
	outcome := h.service.Handle(c.Request.Context(), pricingsync.Notification{
		Topic:      topic,
		Shop:       shop,
		ItemID:     itemID,
		DeliveryID: deliveryID,
		Payload:    payload,
		ReceivedAt: h.now(),
	})

	resp := WebhookResponse{
		Received:   true,
		DeliveryID: deliveryID,
		Topic:      topic.String(),
	}
	if outcome != nil {
		resp.Outcome = outcome.Kind.String()
		resp.Reason = outcome.Reason.String()
	}
	c.JSON(http.StatusOK, resp)
}

// parseItemID extracts the numeric "id" of an item payload.
// A JSON body without a usable id yields 0, which the pipeline reports as malformed input.
func parseItemID(payload []byte) (int64, error) {
	var body struct {
		ID json.RawMessage `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&body); err != nil {
		return 0, err
	}

	raw := strings.Trim(strings.TrimSpace(string(body.ID)), `"`)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}
