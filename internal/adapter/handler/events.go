package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/internal/infrastructure/metrics"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// DefaultHeartbeat keeps idle event streams open through proxies.
const DefaultHeartbeat = 15 * time.Second

// Subscriber delivers identity events for a cache key.
type Subscriber interface {
	Subscribe(key string) (<-chan domain.IdentityEvent, func())
}

// EventsHandler streams identity changes to the storefront as Server-Sent Events.
type EventsHandler struct {
	status    *usecase.GetKycStatus
	resolver  usecase.IdentityResolver
	subs      Subscriber
	creds     credential.Extractor
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(status *usecase.GetKycStatus, resolver usecase.IdentityResolver, subs Subscriber, creds credential.Extractor, heartbeat time.Duration, l *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{status: status, resolver: resolver, subs: subs, creds: creds, heartbeat: heartbeat, logger: l}
}

// Handle processes GET /v1/kyc/events.
//
// The stream opens with a "status" event. When nothing is cached yet and a
// fetch is already running, a loading "status" goes out first and the
// resolved one follows. Later cache commits arrive as "status" events and
// invalidations as "invalidated".
func (h *EventsHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	cred := h.creds.FromRequest(c.Request())
	path := c.QueryParam("path")

	if cred.IsZero() {
		return mapDomainError(domain.ErrCredentialMissing)
	}
	key, err := h.resolver.Key(cred)
	if err != nil {
		return mapDomainError(err)
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	events, cancel := h.subs.Subscribe(key)
	defer cancel()
	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	send := func(event string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	view, cached := h.status.Snapshot(cred, path)
	if cached || view.IsLoading {
		if err := send("status", newStatusResponse(view)); err != nil {
			return nil
		}
	}
	if !cached {
		if err := send("status", newStatusResponse(h.status.Execute(ctx, cred, path))); err != nil {
			return nil
		}
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if _, err := c.Response().Write([]byte(": heartbeat\n\n")); err != nil {
				h.logger.DebugContext(ctx, "client disconnected during heartbeat", "error", err)
				return nil
			}
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case domain.IdentityUpdated:
				err = send("status", newStatusResponse(h.status.View(ev.Identity, path)))
			case domain.IdentityInvalidated:
				err = send("invalidated", map[string]time.Time{"at": ev.At})
			}
			if err != nil {
				h.logger.DebugContext(ctx, "client disconnected", "error", err)
				return nil
			}
		}
	}
}
