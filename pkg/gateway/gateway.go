// Package gateway exposes a webpush.Client over HTTP, so that backends without
// Web Push support can notify browsers with a single JSON request.
package gateway

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/gematik/zero-webpush/pkg/webpush"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type Server struct {
	client *webpush.Client
	apiKey string
}

func New(client *webpush.Client, cfg *webpush.GatewayConfig) (*Server, error) {
	if client == nil {
		return nil, errors.New("webpush client is required")
	}
	s := &Server{client: client}
	if cfg != nil {
		s.apiKey = cfg.APIKey
	}
	return s, nil
}

// MountRoutes registers the gateway endpoints. The group's echo instance
// must use a CustomValidator.
func (s *Server) MountRoutes(group *echo.Group) {
	var mw []echo.MiddlewareFunc
	if s.apiKey != "" {
		mw = append(mw, middleware.KeyAuth(s.checkAPIKey))
	}
	group.POST("/notifications", s.postNotification, mw...)
	group.GET("/vapid", s.getVAPID)
}

func (s *Server) checkAPIKey(key string, c echo.Context) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1, nil
}

// NotificationRequest is the body of POST /notifications. Payload is sent as
// text, PayloadBase64 as binary. At most one of them may be set.
type NotificationRequest struct {
	Subscription  webpush.Subscription `json:"subscription"`
	Payload       string               `json:"payload,omitempty" validate:"excluded_with=PayloadBase64"`
	PayloadBase64 string               `json:"payload_base64,omitempty"`
	// seconds
	TTL     *int64          `json:"ttl,omitempty" validate:"omitempty,min=0"`
	Topic   string          `json:"topic,omitempty" validate:"omitempty,max=32"`
	Urgency webpush.Urgency `json:"urgency,omitempty" validate:"omitempty,oneof=very-low low normal high"`
}

type NotificationResponse struct {
	ID         string `json:"id"`
	StatusCode int    `json:"status"`
	Location   string `json:"location,omitempty"`
	Attempts   int    `json:"attempts"`
}

type VAPIDResponse struct {
	PublicKey string `json:"public_key"`
}

func (r *NotificationRequest) payload() ([]byte, error) {
	if r.PayloadBase64 == "" {
		return []byte(r.Payload), nil
	}
	data, err := p256.Decode(r.PayloadBase64)
	if err != nil {
		return nil, fmt.Errorf("payload_base64: %w", err)
	}
	return data, nil
}

func (r *NotificationRequest) options() *webpush.SendOptions {
	opts := &webpush.SendOptions{
		Topic:   r.Topic,
		Urgency: r.Urgency,
	}
	if r.TTL != nil {
		opts.TTL = webpush.Duration(time.Duration(*r.TTL) * time.Second)
	}
	return opts
}

func (s *Server) postNotification(c echo.Context) error {
	req := new(NotificationRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	payload, err := req.payload()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := s.client.Send(c.Request().Context(), &req.Subscription, payload, req.options())
	if err != nil {
		return sendError(err)
	}

	return c.JSON(http.StatusCreated, NotificationResponse{
		ID:         resp.ID,
		StatusCode: resp.StatusCode,
		Location:   resp.Location,
		Attempts:   resp.Attempts,
	})
}

func (s *Server) getVAPID(c echo.Context) error {
	publicKey := s.client.VAPIDPublicKey()
	if publicKey == "" {
		return echo.NewHTTPError(http.StatusNotFound, "VAPID is not configured")
	}
	return c.JSON(http.StatusOK, VAPIDResponse{PublicKey: publicKey})
}

// sendError maps local failures to 4xx and push service rejections to the
// status the caller has to act on.
func sendError(err error) *echo.HTTPError {
	var pushErr *webpush.PushError
	switch {
	case errors.As(err, &pushErr) && pushErr.Expired():
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.As(err, &pushErr) && pushErr.StatusCode == http.StatusTooManyRequests:
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, webpush.ErrPayloadTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, webpush.ErrInvalidSubscription):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &pushErr):
		slog.Warn("Push service rejected notification", "status", pushErr.StatusCode, "body", pushErr.Body)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		slog.Error("Unable to send notification", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
