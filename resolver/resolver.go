// Package resolver adapts AppSync direct Lambda resolver events to the
// fundraiser service.
//
// Each event names a GraphQL field as "Type.field". The handler looks the
// field up in its route table, decodes the arguments, runs the service
// operation and shapes the result for the schema. Domain errors come back as
// [ErrorResponse] values so the response mapping template can raise them
// with their errorType intact.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/fields"
	"github.com/jacentio/fundraiser/internal/metrics"
	"github.com/jacentio/fundraiser/model"
	"github.com/jacentio/fundraiser/service"
)

// GroupsClaim is the Cognito claim listing the caller's groups.
const GroupsClaim = "cognito:groups"

// Info identifies the field being resolved.
type Info struct {
	FieldName        string   `json:"fieldName"`
	ParentTypeName   string   `json:"parentTypeName"`
	SelectionSetList []string `json:"selectionSetList,omitempty"`
}

// Event is the direct Lambda resolver payload.
type Event struct {
	Arguments json.RawMessage                `json:"arguments"`
	Identity  *events.AppSyncCognitoIdentity `json:"identity"`
	Source    json.RawMessage                `json:"source"`
	Info      Info                           `json:"info"`
}

// Field returns the "Type.field" route key of the event.
func (e Event) Field() string {
	return e.Info.ParentTypeName + "." + e.Info.FieldName
}

// ErrorResponse is a resolver error in the shape AppSync expects.
type ErrorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *ErrorResponse) Error() string {
	return e.ErrorType + ": " + e.ErrorMessage
}

// request is the per-invocation state handed to a route.
type request struct {
	caller access.Identity
	event  Event

	// profiles caches related profiles for the whole response.
	profiles *fields.Cache[model.SellerProfile]
}

type handlerFunc func(ctx context.Context, req *request) (any, error)

// Handler dispatches resolver events to service operations.
type Handler struct {
	svc      *service.Service
	routes   map[string]handlerFunc
	profiles *fields.Resolver[model.SellerProfile]
	logger   *slog.Logger
}

// NewHandler creates a Handler. A nil logger uses slog.Default().
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, logger: logger}
	h.profiles = fields.NewResolver(
		func(ctx context.Context, profileID string) (*model.SellerProfile, error) {
			return svc.Repo().GetProfile(ctx, profileID)
		},
		fields.ProfileFields,
		logger,
	)
	h.routes = h.routeTable()
	return h
}

// Fields returns the route keys the handler serves.
func (h *Handler) Fields() []string {
	out := make([]string, 0, len(h.routes))
	for k := range h.routes {
		out = append(out, k)
	}
	return out
}

// Handle resolves a single event.
func (h *Handler) Handle(ctx context.Context, ev Event) (any, error) {
	return h.handle(ctx, ev, fields.NewCache[model.SellerProfile]())
}

// HandleBatch resolves a batch of events. Related profiles are looked up once
// per batch.
func (h *Handler) HandleBatch(ctx context.Context, evs []Event) ([]any, error) {
	cache := fields.NewCache[model.SellerProfile]()
	out := make([]any, len(evs))
	for i, ev := range evs {
		v, err := h.handle(ctx, ev, cache)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Invoke is the Lambda entry point. It accepts a single event or a batch.
func (h *Handler) Invoke(ctx context.Context, payload json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var evs []Event
		if err := json.Unmarshal(trimmed, &evs); err != nil {
			return nil, fmt.Errorf("decode batch event: %w", err)
		}
		return h.HandleBatch(ctx, evs)
	}
	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return h.Handle(ctx, ev)
}

func (h *Handler) handle(ctx context.Context, ev Event, cache *fields.Cache[model.SellerProfile]) (any, error) {
	start := time.Now()
	field := ev.Field()

	route, ok := h.routes[field]
	if !ok {
		h.logger.Warn("unknown resolver field", "field", field)
		metrics.ResolverRequestDuration.WithLabelValues(field, "unknown").Observe(time.Since(start).Seconds())
		return h.errorResponse(field, apierr.BadRequestf("unknown field %s", field)), nil
	}

	req := &request{caller: identityOf(ev.Identity), event: ev, profiles: cache}
	result, err := route(ctx, req)
	status := "ok"
	if err != nil {
		result = h.errorResponse(field, err)
		status = string(apierr.KindOf(err))
	}
	metrics.ResolverRequestDuration.WithLabelValues(field, status).Observe(time.Since(start).Seconds())
	return result, nil
}

// errorResponse renders err. Errors outside the domain are logged and hidden
// behind a generic message.
func (h *Handler) errorResponse(field string, err error) *ErrorResponse {
	var domain *apierr.Error
	if errors.As(err, &domain) && domain.Kind != apierr.Internal {
		h.logger.Debug("resolver rejected request", "field", field, "errorType", domain.Kind, "error", domain.Message)
		return &ErrorResponse{ErrorType: string(domain.Kind), ErrorMessage: domain.Message}
	}
	h.logger.Error("resolver failed", "field", field, "error", err)
	return &ErrorResponse{ErrorType: string(apierr.Internal), ErrorMessage: "internal error"}
}

// identityOf reads the caller from the Cognito identity. A missing identity
// is anonymous.
func identityOf(id *events.AppSyncCognitoIdentity) access.Identity {
	if id == nil {
		return access.Identity{}
	}
	return access.Identity{Sub: id.Sub, Groups: groupsOf(id.Claims[GroupsClaim])}
}

// groupsOf accepts the claim as a JSON list or a comma separated string.
func groupsOf(claim any) []string {
	switch v := claim.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				out = append(out, g)
			}
		}
		return out
	}
	return nil
}
