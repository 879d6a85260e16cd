package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"carreg/internal/registration/brand"
	"carreg/internal/registration/lock"
	"carreg/internal/registration/metrics"
	"carreg/internal/registration/models"
	audit "carreg/pkg/platform/audit"
)

// Store persists vehicle records and their append-only history.
type Store interface {
	GetRecords(ctx context.Context, vins []string) ([]*models.Vehicle, error)
	GetRecordByID(ctx context.Context, id int64) (*models.Vehicle, error)
	GetRecordsByRegistrationID(ctx context.Context, registrationID string) ([]*models.Vehicle, error)
	// UpdateRecord persists v and, when withHistory is set, appends one
	// history entry labelled with the record's own state and type.
	UpdateRecord(ctx context.Context, v *models.Vehicle, actor string, withHistory bool) error
	SaveRegistrations(ctx context.Context, vehicles []*models.Vehicle, actor string, forced bool) (models.SaveResult, error)
	AppendHistory(ctx context.Context, v *models.Vehicle, actor, stateLabel, typeLabel string) error
	GetHistory(ctx context.Context, vin string) ([]models.HistoryEntry, error)
	GetLatestHistoryEntry(ctx context.Context, vin string) (*models.HistoryEntry, error)
	GetHistoryEntry(ctx context.Context, vin string, createdAt time.Time) (*models.HistoryEntry, error)
}

// RemoteClient submits registrations to the remote service.
type RemoteClient interface {
	ExecuteRegistration(ctx context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error)
	ExecuteSubsequentRegistration(ctx context.Context, reqs []models.SubsequentRegistrationRequest) (*models.SubsequentRegistrationResponse, error)
}

// Locker serialises work on overlapping vehicle sets.
type Locker interface {
	Acquire(ctx context.Context, keys []string) (release func(), err error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TransactionIDSource issues transaction ids for Begin.
type TransactionIDSource interface {
	Next() (string, error)
}

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultFinishTimeout = 30 * time.Second
)

// Service coordinates registration transactions for vehicle batches.
type Service struct {
	store          Store
	remote         RemoteClient
	locker         Locker
	txIDs          TransactionIDSource
	defaultBrand   brand.Brand
	brandIDs       brand.IDSource
	requestContext models.RequestContext
	storeTimeout   time.Duration
	finishTimeout  time.Duration
	now            func() time.Time
	logger         *slog.Logger
	tracer         trace.Tracer
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func WithTransactionIDs(src TransactionIDSource) Option {
	return func(s *Service) {
		s.txIDs = src
	}
}

// WithBrand sets the policy used when a request names no brand.
func WithBrand(b brand.Brand) Option {
	return func(s *Service) {
		s.defaultBrand = b
	}
}

// WithBrandIDs replaces the random component of generated registration ids.
func WithBrandIDs(ids brand.IDSource) Option {
	return func(s *Service) {
		s.brandIDs = ids
	}
}

func WithRequestContext(rc models.RequestContext) Option {
	return func(s *Service) {
		s.requestContext = rc
	}
}

// WithStoreTimeout bounds every individual store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithFinishTimeout bounds FinishTransaction, which runs detached from the
// caller's cancellation.
func WithFinishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.finishTimeout = d
		}
	}
}

// WithClock replaces the clock used for transaction end dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(store Store, remote RemoteClient, opts ...Option) *Service {
	s := &Service{
		store:         store,
		remote:        remote,
		defaultBrand:  brand.Toyota,
		storeTimeout:  defaultStoreTimeout,
		finishTimeout: defaultFinishTimeout,
		now:           time.Now,
		logger:        slog.Default(),
		tracer:        otel.Tracer("carreg/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.txIDs == nil {
		s.txIDs = brand.NewTransactionIDs(nil)
	}
	if s.locker == nil {
		s.locker = lock.NewMemoryLocker()
	}
	return s
}
