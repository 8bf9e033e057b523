package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/services/analysis"
	"YoForex/internal/services/billing"
	"YoForex/internal/services/market"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/google/uuid"
)

const publishTimeout = 2 * time.Second

// AnalysisUsecase runs analyses for a user: quota, generation, history, usage and
// event publication.
type AnalysisUsecase struct {
	gen      *analysis.Generator
	analyses domrepo.AnalysisRepository
	usage    domrepo.UsageRepository
	users    domrepo.UserRepository
	subs     domrepo.SubscriptionRepository
	events   domrepo.EventPublisher
	market   *market.Service
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

func NewAnalysisUsecase(
	gen *analysis.Generator,
	analyses domrepo.AnalysisRepository,
	usage domrepo.UsageRepository,
	users domrepo.UserRepository,
	subs domrepo.SubscriptionRepository,
	events domrepo.EventPublisher,
	mkt *market.Service,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *AnalysisUsecase {
	return &AnalysisUsecase{
		gen:      gen,
		analyses: analyses,
		usage:    usage,
		users:    users,
		subs:     subs,
		events:   events,
		market:   mkt,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// Analyze runs an automatic analysis. With use_ai off the model list is ignored.
// Repeated model ids each take part in the consensus.
func (u *AnalysisUsecase) Analyze(ctx context.Context, userID string, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	var aiModels []string
	if req.UseAI == nil || *req.UseAI {
		aiModels = req.AIModels
	}
	if err := checkModels(aiModels); err != nil {
		return nil, err
	}

	return u.run(ctx, userID, models.KindAutomatic, func(ctx context.Context) (*models.AnalysisResult, error) {
		return u.gen.GenerateAnalysis(ctx, req.Pair, req.Timeframe, req.Strategy, aiModels)
	})
}

func (u *AnalysisUsecase) AnalyzeManual(ctx context.Context, userID string, req *models.ManualAnalysisRequest) (*models.AnalysisResult, error) {
	aiModels := req.AIModels
	if len(aiModels) == 0 {
		return nil, xhttp.FieldError("ai_models", "at least one AI model is required")
	}
	if err := checkModels(aiModels); err != nil {
		return nil, err
	}

	return u.run(ctx, userID, models.KindManual, func(ctx context.Context) (*models.AnalysisResult, error) {
		return u.gen.AnalyzeManualInput(ctx, req.Pair, req.Timeframe, req.TextAnalysis, req.Images, aiModels)
	})
}

func (u *AnalysisUsecase) run(ctx context.Context, userID, kind string, generate func(context.Context) (*models.AnalysisResult, error)) (*models.AnalysisResult, error) {
	now := u.now()
	if err := u.checkQuota(ctx, userID, now); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := generate(ctx)
	u.metrics.RecordLatency("analysis_generate", time.Since(start).Seconds())
	if err != nil {
		u.metrics.RecordError("analysis_generate")
		if errors.Is(err, analysis.ErrEmptyModelList) {
			return nil, xhttp.FieldError("ai_models", "at least one AI model is required").WithError(err)
		}
		return nil, fmt.Errorf("generate analysis: %w", err)
	}
	res.UserID = userID

	if err := u.analyses.Save(ctx, res); err != nil {
		u.metrics.RecordError("analysis_store")
		return nil, fmt.Errorf("store analysis: %w", err)
	}
	if _, err := u.usage.Increment(ctx, userID, now); err != nil {
		u.metrics.RecordError("usage_increment")
		u.log.Warn("usage increment failed", applogger.String("user_id", userID), applogger.Error(err))
	}

	u.metrics.RecordAnalysis(kind, string(res.Recommendation), res.Confidence)
	if res.MultiModel != nil {
		u.metrics.RecordConsensus(string(res.MultiModel.Consensus))
	}
	u.publish(ctx, kind, res)
	return res, nil
}

// checkQuota rejects the request when the user's monthly allowance is used up. The
// check and the later increment are not atomic, so concurrent requests can overshoot
// the limit by at most the number in flight.
func (u *AnalysisUsecase) checkQuota(ctx context.Context, userID string, now time.Time) error {
	su, err := u.users.GetByID(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.UnauthorizedError("Could not validate credentials")
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	sub, err := u.subs.Get(ctx, userID)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		return fmt.Errorf("load subscription: %w", err)
	}

	limit := billing.AnalysisLimit(billing.EffectivePlan(&su.User, sub, now))
	if limit == 0 {
		return nil
	}
	used, err := u.usage.Count(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	if used >= limit {
		return xhttp.QuotaExceededError(used, limit)
	}
	return nil
}

// publish is best effort: a failing event bus never fails the request.
func (u *AnalysisUsecase) publish(ctx context.Context, kind string, res *models.AnalysisResult) {
	ev := models.NewAnalysisEvent(uuid.NewString(), kind, res)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := u.events.Publish(pctx, ev)
	u.metrics.RecordEvent("kafka", err)
	if err != nil {
		u.log.Warn("publish analysis event failed",
			applogger.String("analysis_id", res.ID),
			applogger.Error(err),
		)
	}
}

func (u *AnalysisUsecase) History(ctx context.Context, userID string, limit, offset int) ([]*models.AnalysisResult, int64, error) {
	rows, total, err := u.analyses.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	return rows, total, nil
}

func (u *AnalysisUsecase) Get(ctx context.Context, userID, id string) (*models.AnalysisResult, error) {
	a, err := u.analyses.Get(ctx, userID, id)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, xhttp.NotFoundError("Analysis not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}
	return a, nil
}

func (u *AnalysisUsecase) Pairs() []models.TradingPair { return u.market.Quotes() }

func (u *AnalysisUsecase) Signals() []models.Signal { return u.market.Signals() }

func checkModels(ids []string) error {
	for _, id := range ids {
		if !domrepo.IsKnownModel(id) {
			return xhttp.FieldError("ai_models", fmt.Sprintf("unknown AI model %q", id))
		}
	}
	return nil
}
