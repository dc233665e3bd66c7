package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/streamforge/channelctl/internal/admin"
	"github.com/streamforge/channelctl/internal/logging"
	"github.com/streamforge/channelctl/internal/worker"
)

// pushEnvelope is the push-delivery wire shape a pub/sub push subscription
// posts (contentId of the underlying event is opaque to the envelope; the
// attributes carry delivery bookkeeping the broker doesn't put in the body).
type pushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		MessageID   string            `json:"messageId"`
		PublishTime time.Time         `json:"publishTime"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"message"`
}

func (e pushEnvelope) deliveryAttempt() int {
	raw, ok := e.Message.Attributes["deliveryAttempt"]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// newUploadEventsHandler adapts HandleMessage to a push-subscription HTTP
// endpoint: a 2xx response acks the message with the broker, any other
// status requests redelivery (spec §4.1 Contract, translated to the HTTP
// transport the broker actually speaks).
func newUploadEventsHandler(w *worker.Worker, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var env pushEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			log.Warn("workerd: malformed push envelope", "error", err)
			rw.WriteHeader(http.StatusBadRequest)
			return
		}

		result := w.HandleMessage(r.Context(), worker.Message{
			Data:            env.Message.Data,
			MessageID:       env.Message.MessageID,
			PublishTime:     env.Message.PublishTime,
			DeliveryAttempt: env.deliveryAttempt(),
		})

		if result.Action == worker.ActionNack {
			if result.RetryInSeconds > 0 {
				rw.Header().Set("Retry-After", strconv.Itoa(result.RetryInSeconds))
			}
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
}

// newAdminHandler exposes the operator façade (spec §2 Admin façade) over a
// minimal HTTP surface: POST /internal/channels/{contentId}/{action}.
func newAdminHandler(facade *admin.Facade, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/internal/channels/")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) == 0 || parts[0] == "" {
			rw.WriteHeader(http.StatusNotFound)
			return
		}
		contentID := parts[0]
		ctx := r.Context()

		if len(parts) == 1 {
			if r.Method != http.MethodGet {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			record, err := facade.Get(ctx, contentID)
			if err != nil {
				log.Warn("workerd: admin get failed", "contentId", contentID, "error", err)
				rw.WriteHeader(http.StatusNotFound)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(record)
			return
		}

		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var err error
		switch parts[1] {
		case "retire":
			err = facade.Retire(ctx, contentID)
		case "purge":
			err = facade.Purge(ctx, contentID)
		case "rotate-ingest-key":
			err = facade.RotateIngestKey(ctx, contentID)
		case "unstick":
			err = facade.ManuallyUnstick(ctx, contentID)
		default:
			rw.WriteHeader(http.StatusNotFound)
			return
		}

		if err != nil {
			log.Warn("workerd: admin action failed", "contentId", contentID, "action", parts[1], "error", err)
			rw.WriteHeader(http.StatusConflict)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
}
