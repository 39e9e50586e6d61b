package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"meal-estimator/internal/clipper"
	"meal-estimator/internal/config"
	"meal-estimator/internal/database"
	"meal-estimator/internal/fooddb"
	"meal-estimator/internal/llm"
	"meal-estimator/internal/meal"
	"meal-estimator/internal/metrics"
	"meal-estimator/internal/storage"
	"meal-estimator/internal/vision"
)

// Runtime is a fully wired App with the resources both binaries share.
type Runtime struct {
	App     *App
	Meals   *meal.Repository
	Metrics *metrics.Store

	db        *database.DB
	gemini    *llm.GeminiClient
	foodCache *fooddb.CachedSearcher
	logger    *zap.Logger
}

// Open connects every collaborator described by cfg. Text tasks (food
// estimates and page clipping) use Groq when a key is set, Gemini otherwise.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	goals, err := config.LoadGoals(cfg.GoalsFile)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	rt := &Runtime{
		Meals:   meal.NewRepository(db.SQL),
		Metrics: metrics.NewStore(db.SQL),
		db:      db,
		logger:  logger,
	}

	rt.gemini, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	var textGen llm.TextGenerator = rt.gemini
	if cfg.GroqAPIKey != "" {
		textGen = llm.NewGroqClient(cfg.GroqAPIKey)
	}

	rt.foodCache, err = fooddb.NewCachedSearcher(fooddb.NewOpenFoodFacts(cfg.FoodDBURL, logger), cfg.FoodCachePath, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize food cache: %w", err)
	}
	foods := fooddb.NewChain(logger, rt.foodCache, fooddb.NewEstimator(textGen, rt.Metrics, logger))

	var photos storage.PhotoStore
	if cfg.PhotoBucket != "" {
		photos, err = storage.NewS3Store(ctx, cfg.PhotoBucket, cfg.AWSRegion)
	} else {
		photos, err = storage.NewFileStore(cfg.PhotoStoragePath)
	}
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize photo storage: %w", err)
	}

	rt.App = NewApp(
		vision.NewScanner(rt.gemini, logger),
		foods,
		rt.Meals,
		rt.Metrics,
		logger,
		WithClipper(clipper.NewClipper(textGen, logger)),
		WithPhotoStore(photos),
		WithDefaultGoals(goals),
	)
	return rt, nil
}

// Close flushes the food cache and releases clients and the database.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.foodCache != nil {
		if err := rt.foodCache.SaveCache(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.gemini != nil {
		if err := rt.gemini.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
