package meal

import (
	"context"
	"fmt"
	"time"

	"github.com/mealtrack-api/internal/domain"
	"github.com/mealtrack-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName         = "name"
	fieldCalories     = "calories"
	fieldPortionGrams = "portion_grams"
	fieldEatenAt      = "eaten_at"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateMealRequest) (*domain.MealLog, error)
	Get(ctx context.Context, userID, mealID string) (*domain.MealLog, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.MealLog, error)
	Update(ctx context.Context, userID, mealID string, req domain.UpdateMealRequest) (*domain.MealLog, error)
	Delete(ctx context.Context, userID, mealID string) error
	// Summary aggregates calories and portion weight over [from, to].
	Summary(ctx context.Context, userID string, from, to time.Time) (*domain.MealSummary, error)
}

type mealStore interface {
	Put(ctx context.Context, m *domain.MealLog) error
	Get(ctx context.Context, mealID string) (*domain.MealLog, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.MealLog, error)
	Update(ctx context.Context, mealID string, updates map[string]interface{}) error
	Delete(ctx context.Context, mealID string) error
}

type service struct {
	repo mealStore
}

func NewService(repo mealStore) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateMealRequest) (*domain.MealLog, error) {
	now := time.Now().UTC()
	// eaten_at is the GSI sort key, compared as an RFC 3339 string. Stored
	// values stay at whole-second precision so fractional seconds can never
	// sort a meal outside the queried bounds.
	eatenAt := now.Truncate(time.Second)
	if req.EatenAt != "" {
		t, err := time.Parse(time.RFC3339, req.EatenAt)
		if err != nil {
			return nil, fmt.Errorf("eaten_at must be RFC 3339: %w", domain.ErrBadRequest)
		}
		eatenAt = t.UTC().Truncate(time.Second)
	}
	m := &domain.MealLog{
		MealID:       id.New(),
		UserID:       userID,
		Name:         req.Name,
		Calories:     req.Calories,
		PortionGrams: req.PortionGrams,
		EatenAt:      eatenAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, m); err != nil {
		return nil, fmt.Errorf("store meal: %w", domain.ErrInternal)
	}
	return m, nil
}

func (s *service) Get(ctx context.Context, userID, mealID string) (*domain.MealLog, error) {
	m, err := s.repo.Get(ctx, mealID)
	if err != nil {
		return nil, fmt.Errorf("meal not found: %w", domain.ErrNotFound)
	}
	// Ownership check: meals are never visible across users.
	if m.UserID != userID {
		return nil, fmt.Errorf("meal not found: %w", domain.ErrNotFound)
	}
	return m, nil
}

func (s *service) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.MealLog, error) {
	meals, err := s.repo.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", domain.ErrInternal)
	}
	return meals, nil
}

func (s *service) Update(ctx context.Context, userID, mealID string, req domain.UpdateMealRequest) (*domain.MealLog, error) {
	if _, err := s.Get(ctx, userID, mealID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Calories != nil {
		updates[fieldCalories] = *req.Calories
	}
	if req.PortionGrams != nil {
		updates[fieldPortionGrams] = *req.PortionGrams
	}
	if req.EatenAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EatenAt)
		if err != nil {
			return nil, fmt.Errorf("eaten_at must be RFC 3339: %w", domain.ErrBadRequest)
		}
		updates[fieldEatenAt] = t.UTC().Truncate(time.Second)
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID, mealID)
	}
	if err := s.repo.Update(ctx, mealID, updates); err != nil {
		return nil, fmt.Errorf("update meal: %w", domain.ErrInternal)
	}
	return s.Get(ctx, userID, mealID)
}

func (s *service) Delete(ctx context.Context, userID, mealID string) error {
	if _, err := s.Get(ctx, userID, mealID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, mealID); err != nil {
		return fmt.Errorf("delete meal: %w", domain.ErrInternal)
	}
	return nil
}

func (s *service) Summary(ctx context.Context, userID string, from, to time.Time) (*domain.MealSummary, error) {
	meals, err := s.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	sum := &domain.MealSummary{Meals: len(meals)}
	for _, m := range meals {
		sum.TotalCalories += m.Calories
		sum.TotalPortionGrams += m.PortionGrams
	}
	return sum, nil
}
