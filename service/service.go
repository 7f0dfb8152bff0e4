// Package service implements the fundraiser operations behind the GraphQL
// resolvers.
//
// Every operation authenticates the caller, checks access through the
// access evaluator and returns apierr errors. Mutations touching more than
// one record run as named pipelines so their steps stay fixed and
// individually testable.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jacentio/fundraiser/access"
	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/cascade"
	"github.com/jacentio/fundraiser/ids"
	"github.com/jacentio/fundraiser/internal/qr"
	"github.com/jacentio/fundraiser/media"
	"github.com/jacentio/fundraiser/pipeline"
	"github.com/jacentio/fundraiser/ratelimit"
	"github.com/jacentio/fundraiser/repo"
	"github.com/jacentio/fundraiser/store"
)

// DefaultInviteTTL is how long an invite can be redeemed.
const DefaultInviteTTL = 14 * 24 * time.Hour

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Options configures a Service. Zero values get defaults.
type Options struct {
	Tables               store.Config
	MaxSharedCampaigns   int
	CascadeMaxIterations int
	InviteTTL            time.Duration

	// Media stores payment QR images. Nil disables QR upload and links.
	Media media.Invoker

	// QR renders invite QR codes. Nil disables them.
	QR *qr.Renderer

	IDs    ids.Generator
	Clock  Clock
	Logger *slog.Logger
}

// Service implements the fundraiser operations.
type Service struct {
	repo      *repo.Repo
	access    *access.Evaluator
	cascade   *cascade.Deleter
	limiter   *ratelimit.Limiter
	media     media.Invoker
	qr        *qr.Renderer
	ids       ids.Generator
	clock     Clock
	validate  *validator.Validate
	inviteTTL time.Duration
	logger    *slog.Logger

	createShare   *pipeline.Pipeline
	redeemInvite  *pipeline.Pipeline
	deleteProfile *pipeline.Pipeline
	updateCatalog *pipeline.Pipeline
	deleteCatalog *pipeline.Pipeline
}

// New creates a Service over backend.
func New(backend store.Backend, opts Options) *Service {
	opts.Tables.Validate()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IDs == nil {
		opts.IDs = ids.UUIDGenerator{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = DefaultInviteTTL
	}

	r := repo.New(backend, opts.Tables)
	tables := r.Tables()
	s := &Service{
		repo:   r,
		access: access.NewEvaluator(r, opts.Logger),
		cascade: cascade.New(backend, store.DefaultRegistry(tables), cascade.Options{
			MaxIterations: opts.CascadeMaxIterations,
			Logger:        opts.Logger,
		}),
		limiter:   ratelimit.New(backend, tables.SharedCampaignsTable, tables.CreatorIndex, "createdBy", opts.MaxSharedCampaigns),
		media:     opts.Media,
		qr:        opts.QR,
		ids:       opts.IDs,
		clock:     opts.Clock,
		validate:  newValidator(),
		inviteTTL: opts.InviteTTL,
		logger:    opts.Logger,
	}
	s.createShare = s.createSharePipeline()
	s.redeemInvite = s.redeemInvitePipeline()
	s.deleteProfile = s.deleteProfilePipeline()
	s.updateCatalog = s.updateCatalogPipeline()
	s.deleteCatalog = s.deleteCatalogPipeline()
	return s
}

// Repo returns the typed record access used by the service.
func (s *Service) Repo() *repo.Repo { return s.repo }

// Access returns the access evaluator.
func (s *Service) Access() *access.Evaluator { return s.access }

// Cascade returns the cascade deleter.
func (s *Service) Cascade() *cascade.Deleter { return s.cascade }

// Pipelines returns the named mutation pipelines.
func (s *Service) Pipelines() []*pipeline.Pipeline {
	return []*pipeline.Pipeline{s.createShare, s.redeemInvite, s.deleteProfile, s.updateCatalog, s.deleteCatalog}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates in and reports the offending fields as a ValidationException.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validationf("invalid input: %v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Type.field.sub"; the type name means nothing to callers.
		_, name, _ := strings.Cut(fe.Namespace(), ".")
		fields = append(fields, fmt.Sprintf("%s (%s)", name, fe.Tag()))
	}
	return apierr.Validationf("invalid input: %s", strings.Join(fields, ", "))
}

// denied reports whether err is an access failure that queries turn into a
// null result.
func denied(err error) bool {
	return apierr.IsKind(err, apierr.Forbidden) || apierr.IsKind(err, apierr.NotFound)
}

// Caller stash key shared by the pipelines.
const keyCaller = "caller"
