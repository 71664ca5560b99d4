package domain

import "time"

type MealLog struct {
	MealID       string    `json:"id" dynamodbav:"meal_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Calories     int       `json:"calories" dynamodbav:"calories"`
	PortionGrams int       `json:"portion_grams" dynamodbav:"portion_grams"`
	EatenAt      time.Time `json:"eaten_at" dynamodbav:"eaten_at"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateMealRequest struct {
	Name         string `json:"name" validate:"required"`
	Calories     int    `json:"calories" validate:"gte=0"`
	PortionGrams int    `json:"portion_grams" validate:"gte=0"`
	EatenAt      string `json:"eaten_at"` // RFC 3339; defaults to now
}

type UpdateMealRequest struct {
	Name         *string `json:"name"`
	Calories     *int    `json:"calories" validate:"omitempty,gte=0"`
	PortionGrams *int    `json:"portion_grams" validate:"omitempty,gte=0"`
	EatenAt      *string `json:"eaten_at"`
}

// MealSummary aggregates a user's logs over a date range.
type MealSummary struct {
	Meals             int `json:"meals"`
	TotalCalories     int `json:"total_calories"`
	TotalPortionGrams int `json:"total_portion_grams"`
}
