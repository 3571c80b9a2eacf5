package pricingsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/domain/pricing"
	"github.com/pricesync/backend/internal/domain/shared"
	"github.com/pricesync/backend/internal/infrastructure/logger"
	"github.com/pricesync/backend/internal/infrastructure/telemetry"
)

// ErrNoTransition is reported when a run reaches a state its flow does not handle
var ErrNoTransition = errors.New("pricingsync: no transition from state")

// ErrPanic wraps a value recovered from a panicking step
var ErrPanic = errors.New("pricingsync: step panicked")

// SyncService runs the item-created and item-updated pipelines.
// Each notification is an independent unit of work; the service keeps no
// per-run state between calls.
type SyncService struct {
	credentials integration.CredentialProvider
	configs     pricing.ConfigurationRepository
	platform    integration.CatalogPlatform
	deadLetters DeadLetterSink
	recorder    OutcomeRecorder
	deliveries  shared.IdempotencyStore
	dedup       shared.IdempotencyConfig
	namespace   string
	logger      *zap.Logger
	now         func() time.Time
}

// SyncServiceConfig contains configuration for SyncService
type SyncServiceConfig struct {
	Credentials integration.CredentialProvider
	Configs     pricing.ConfigurationRepository
	Platform    integration.CatalogPlatform

	// Optional collaborators
	DeadLetters DeadLetterSink
	Recorder    OutcomeRecorder
	Deliveries  shared.IdempotencyStore
	Dedup       shared.IdempotencyConfig

	// Namespace defaults to pricing.Namespace
	Namespace string
	Logger    *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	s := &SyncService{
		credentials: cfg.Credentials,
		configs:     cfg.Configs,
		platform:    cfg.Platform,
		deadLetters: cfg.DeadLetters,
		recorder:    cfg.Recorder,
		deliveries:  cfg.Deliveries,
		dedup:       cfg.Dedup,
		namespace:   cfg.Namespace,
		logger:      cfg.Logger,
		now:         time.Now,
	}
	if s.deadLetters == nil {
		s.deadLetters = nopDeadLetterSink{}
	}
	if s.recorder == nil {
		s.recorder = nopOutcomeRecorder{}
	}
	if s.namespace == "" {
		s.namespace = pricing.Namespace
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.dedup.TTL <= 0 {
		s.dedup.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	return s
}

// ---------------------------------------------------------------------------
// Flows
// ---------------------------------------------------------------------------

// transition performs the work that leaves a state and returns the state entered
type transition func(s *SyncService, ctx context.Context, r *run) (State, error)

type flow map[State]transition

var createdFlow = flow{
	StateReceived:            (*SyncService).resolveCredentials,
	StateCredentialsResolved: (*SyncService).resolveRequiredConfiguration,
	StateConfigResolved:      (*SyncService).seedAttributes,
}

var updatedFlow = flow{
	StateReceived:            (*SyncService).resolveCredentials,
	StateCredentialsResolved: (*SyncService).fetchInputs,
	StateInputsFetched:       (*SyncService).validateInputs,
	StateInputsValidated:     (*SyncService).resolveOptionalConfiguration,
	StateConfigResolved:      (*SyncService).compute,
	StateComputed:            (*SyncService).writeResults,
}

// run carries the data produced by one notification as it moves through states
type run struct {
	n      Notification
	out    *Outcome
	cred   *integration.Credential
	attrs  map[string]string
	inputs pricing.ItemCostInputs
	cfg    *pricing.TenantConfiguration
	writes []integration.AttributeInput
}

func (r *run) enter(state State) {
	r.out.Trail = append(r.out.Trail, state)
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Handle dispatches a notification by topic. Unknown topics are acknowledged without work.
func (s *SyncService) Handle(ctx context.Context, n Notification) *Outcome {
	switch n.Topic {
	case integration.TopicItemCreated:
		return s.HandleItemCreated(ctx, n)
	case integration.TopicItemUpdated:
		return s.HandleItemUpdated(ctx, n)
	default:
		return s.execute(ctx, n, nil)
	}
}

// HandleItemCreated seeds the new item with the shop's configured values.
// Absent configuration short-circuits; the calculator is never invoked.
func (s *SyncService) HandleItemCreated(ctx context.Context, n Notification) *Outcome {
	n.Topic = integration.TopicItemCreated
	return s.execute(ctx, n, createdFlow)
}

// HandleItemUpdated recomputes and writes the derived pricing of the item.
// Absent configuration falls back to defaults; missing inputs short-circuit.
func (s *SyncService) HandleItemUpdated(ctx context.Context, n Notification) *Outcome {
	n.Topic = integration.TopicItemUpdated
	return s.execute(ctx, n, updatedFlow)
}

// execute drives a run from Received to Acknowledged. It never returns an
// incomplete trail: every path, panics included, ends in StateAcknowledged.
func (s *SyncService) execute(ctx context.Context, n Notification, f flow) *Outcome {
	start := s.now()
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = start
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "pricing_sync", spanMethod(n.Topic),
		telemetry.WithAttribute(telemetry.SpanAttrShop, n.Shop),
		telemetry.WithAttribute(telemetry.SpanAttrItemID, n.ItemID),
		telemetry.WithAttribute(telemetry.SpanAttrTopic, n.Topic.String()),
	)
	defer span.End()

	ctx = logger.WithTenant(logger.WithContext(ctx, s.logger), n.Shop)
	log := logger.L(ctx)

	out := &Outcome{
		Topic:      n.Topic,
		Shop:       n.Shop,
		ItemID:     n.ItemID,
		DeliveryID: n.DeliveryID,
		StartedAt:  start,
	}
	if n.ItemID > 0 {
		out.ItemRef = n.ItemRef()
	}
	r := &run{n: n, out: out}
	r.enter(StateReceived)

	err := s.drive(ctx, r, f)
	if err != nil {
		var h *halt
		if !errors.As(err, &h) {
			h = &halt{kind: OutcomeFault, reason: ReasonInternalFault, err: err}
		}
		out.Kind, out.Reason, out.Err = h.kind, h.reason, h.err
		r.enter(StateShortCircuited)
	} else {
		out.Kind = OutcomeSuccess
	}
	r.enter(StateAcknowledged)
	out.Duration = s.now().Sub(start)

	s.report(ctx, log, r)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, out.Kind.String(),
		telemetry.SpanAttrReason, out.Reason.String(),
		telemetry.SpanAttrFinalState, out.Trail[len(out.Trail)-2].String(),
	)
	if out.IsFault() {
		telemetry.RecordError(span, out.Err)
		s.archive(ctx, log, r)
	} else {
		telemetry.SetOK(span)
	}
	s.recorder.RecordOutcome(ctx, out)

	return out
}

// drive applies transitions until Written or the first halt
func (s *SyncService) drive(ctx context.Context, r *run, f flow) error {
	if f == nil {
		return shortCircuit(ReasonUnsupportedTopic, fmt.Errorf("topic %q", r.n.Topic))
	}
	if s.isDuplicate(ctx, r.n) {
		return shortCircuit(ReasonDuplicateDelivery, nil)
	}

	state := StateReceived
	for state != StateWritten {
		next, ok := f[state]
		if !ok {
			return fault(ReasonInternalFault, fmt.Errorf("%w %s", ErrNoTransition, state))
		}
		entered, err := s.step(ctx, r, next)
		if err != nil {
			return err
		}
		r.enter(entered)
		state = entered
	}
	return nil
}

// step runs one transition, turning a panic into an internal fault
func (s *SyncService) step(ctx context.Context, r *run, t transition) (entered State, err error) {
	defer func() {
		if p := recover(); p != nil {
			entered = ""
			err = fault(ReasonInternalFault, fmt.Errorf("%w: %v", ErrPanic, p))
		}
	}()
	return t(s, ctx, r)
}

// isDuplicate reports whether the delivery was already handled.
// Store errors are logged and treated as new deliveries.
func (s *SyncService) isDuplicate(ctx context.Context, n Notification) bool {
	if !s.dedup.Enabled || s.deliveries == nil || n.DeliveryID == "" {
		return false
	}
	isNew, err := s.deliveries.MarkProcessed(ctx, n.DeliveryID, s.dedup.TTL)
	if err != nil {
		logger.L(ctx).Warn("Failed to check delivery idempotency, processing anyway",
			zap.String("delivery_id", n.DeliveryID),
			zap.Error(err))
		return false
	}
	return !isNew
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

// resolveCredentials looks up the shop's credential. A missing credential is
// not an error here; the next transition gates on it.
func (s *SyncService) resolveCredentials(ctx context.Context, r *run) (State, error) {
	if err := r.n.Validate(); err != nil {
		return "", shortCircuit(ReasonMalformedInput, err)
	}
	cred, err := s.credentials.Credential(ctx, r.n.Shop)
	if err != nil && !errors.Is(err, integration.ErrCredentialNotFound) {
		return "", fault(ReasonInternalFault, fmt.Errorf("resolve credential: %w", err))
	}
	if cred.IsUsable() {
		r.cred = cred
	}
	return StateCredentialsResolved, nil
}

func (s *SyncService) requireCredential(r *run) error {
	if r.cred == nil {
		return shortCircuit(ReasonCredentialAbsent, integration.ErrCredentialNotFound)
	}
	return nil
}

// resolveRequiredConfiguration is the created-path resolver: absence short-circuits
func (s *SyncService) resolveRequiredConfiguration(ctx context.Context, r *run) (State, error) {
	if err := s.requireCredential(r); err != nil {
		return "", err
	}
	cfg, err := s.configs.Resolve(ctx, r.n.Shop)
	if errors.Is(err, pricing.ErrConfigurationNotFound) {
		return "", shortCircuit(ReasonConfigurationAbsent, err)
	}
	if err != nil {
		return "", fault(ReasonInternalFault, fmt.Errorf("resolve configuration: %w", err))
	}
	r.cfg = cfg
	return StateConfigResolved, nil
}

// seedAttributes writes every configured field verbatim onto the new item
func (s *SyncService) seedAttributes(ctx context.Context, r *run) (State, error) {
	r.writes = integration.NewAttributeInputs(r.out.ItemRef, s.namespace, r.cfg.SeedAttributes())
	return s.write(ctx, r)
}

// fetchInputs reads the item's current attributes
func (s *SyncService) fetchInputs(ctx context.Context, r *run) (State, error) {
	if err := s.requireCredential(r); err != nil {
		return "", err
	}
	attrs, err := s.platform.ReadAttributes(ctx, r.cred, r.out.ItemRef, s.namespace)
	if errors.Is(err, integration.ErrItemNotFound) {
		return "", shortCircuit(ReasonItemAbsent, err)
	}
	if err != nil {
		return "", fault(ReasonTransportFault, fmt.Errorf("read attributes: %w", err))
	}
	r.attrs = attrs
	return StateInputsFetched, nil
}

// validateInputs requires material cost and hours worked to be present and numeric
func (s *SyncService) validateInputs(_ context.Context, r *run) (State, error) {
	in, err := pricing.ParseItemCostInputs(r.attrs)
	switch {
	case errors.Is(err, pricing.ErrRequiredInputAbsent):
		return "", shortCircuit(ReasonRequiredInputAbsent, err)
	case errors.Is(err, pricing.ErrMalformedInput):
		return "", shortCircuit(ReasonMalformedInput, err)
	case err != nil:
		return "", fault(ReasonInternalFault, err)
	}
	r.inputs = in
	return StateInputsValidated, nil
}

// resolveOptionalConfiguration is the updated-path resolver: absence means fallbacks
func (s *SyncService) resolveOptionalConfiguration(ctx context.Context, r *run) (State, error) {
	cfg, err := s.configs.Resolve(ctx, r.n.Shop)
	if errors.Is(err, pricing.ErrConfigurationNotFound) {
		logger.L(ctx).Debug("No pricing configuration, using fallbacks",
			zap.String("item_ref", r.out.ItemRef))
		return StateConfigResolved, nil
	}
	if err != nil {
		return "", fault(ReasonInternalFault, fmt.Errorf("resolve configuration: %w", err))
	}
	r.cfg = cfg
	return StateConfigResolved, nil
}

// compute runs the calculator and prepares the four derived attributes
func (s *SyncService) compute(_ context.Context, r *run) (State, error) {
	derived, err := pricing.Compute(r.inputs, r.cfg)
	if errors.Is(err, pricing.ErrDiscountOutOfRange) {
		return "", shortCircuit(ReasonInvalidConfiguration, err)
	}
	if err != nil {
		return "", fault(ReasonInternalFault, err)
	}
	r.out.Pricing = &derived
	r.writes = integration.NewAttributeInputs(r.out.ItemRef, s.namespace, derived.Attributes())
	return StateComputed, nil
}

func (s *SyncService) writeResults(ctx context.Context, r *run) (State, error) {
	return s.write(ctx, r)
}

// write sends the prepared batch. Rejected fields are kept on the outcome and
// do not change its kind; accepted fields are never rolled back.
func (s *SyncService) write(ctx context.Context, r *run) (State, error) {
	if len(r.writes) == 0 {
		return StateWritten, nil
	}
	res, err := s.platform.WriteAttributes(ctx, r.cred, r.writes)
	if err != nil {
		return "", fault(ReasonTransportFault, fmt.Errorf("write attributes: %w", err))
	}
	if res != nil {
		r.out.Written = res.Written
		r.out.Rejected = res.Rejected
	}
	return StateWritten, nil
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

func (s *SyncService) report(ctx context.Context, log *logger.ContextLogger, r *run) {
	o := r.out
	fields := []zap.Field{
		zap.String("topic", o.Topic.String()),
		zap.String("item_ref", o.ItemRef),
		zap.String("outcome", o.Kind.String()),
		zap.Strings("trail", o.TrailStrings()),
		zap.Duration("duration", o.Duration),
	}

	for _, rej := range o.Rejected {
		log.Warn("Attribute rejected by platform",
			zap.String("item_ref", o.ItemRef),
			zap.String("field", rej.Field),
			zap.String("message", rej.Message))
	}

	switch o.Kind {
	case OutcomeSuccess:
		log.Info("Notification processed", append(fields,
			zap.Int("written", len(o.Written)),
			zap.Int("rejected", len(o.Rejected)))...)
	case OutcomeShortCircuit:
		fields = append(fields, zap.String("reason", o.Reason.String()))
		if o.Err != nil {
			fields = append(fields, zap.NamedError("cause", o.Err))
		}
		switch o.Reason {
		case ReasonDuplicateDelivery, ReasonConfigurationAbsent, ReasonRequiredInputAbsent, ReasonUnsupportedTopic:
			log.Info("Notification short-circuited", fields...)
		default:
			log.Warn("Notification short-circuited", fields...)
		}
	case OutcomeFault:
		log.Error("Notification faulted, acknowledging anyway", append(fields,
			zap.String("reason", o.Reason.String()),
			zap.Error(o.Err))...)
	}
}

func (s *SyncService) archive(ctx context.Context, log *logger.ContextLogger, r *run) {
	letter := newDeadLetter(r.n, r.out, s.now())
	if err := s.deadLetters.Archive(ctx, letter); err != nil {
		log.Error("Failed to archive faulted notification",
			zap.String("item_ref", r.out.ItemRef),
			zap.Error(err))
	}
}

func spanMethod(topic integration.Topic) string {
	switch topic {
	case integration.TopicItemCreated:
		return "item_created"
	case integration.TopicItemUpdated:
		return "item_updated"
	default:
		return "unsupported"
	}
}
