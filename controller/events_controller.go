package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	ctrljson "chirp/controller/json"
	"chirp/model"
	"chirp/realtime"
)

const sseHeartbeatInterval = 25 * time.Second

// EventsController streams the viewer's realtime events over SSE.
type EventsController struct {
	broker realtime.Broker
	logger *zap.Logger
	tracer trace.Tracer
}

func NewEventsController(broker realtime.Broker, logger *zap.Logger, tracer trace.Tracer) *EventsController {
	return &EventsController{
		broker,
		logger,
		tracer,
	}
}

// Stream serves GET /events. It subscribes to the viewer's channel and
// writes each event as an SSE frame until the client disconnects. Periodic
// comment frames keep intermediaries from closing the idle connection.
func (c *EventsController) Stream(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "EventsController.Stream")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	flusher, ok := w.(http.Flusher)
	if !ok {
		span.SetStatus(codes.Error, "streaming unsupported")
		ctrljson.EncodeError(w, 500, "streaming unsupported")
		return
	}

	events, cancel, err := c.broker.Subscribe(realtime.UserChannel(authUser.ID))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		ctrljson.EncodeError(w, 500, "could not subscribe")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, mErr := json.Marshal(event.Payload)
			if mErr != nil {
				c.logger.Warn("dropping undecodable event",
					zap.String("event", event.Name), zap.Error(mErr))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()
		}
	}
}
