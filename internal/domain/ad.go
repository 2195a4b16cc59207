package domain

import (
	"time"

	"github.com/google/uuid"
)

// Condition describes the physical state of the item offered in an ad.
type Condition string

const (
	ConditionNew      Condition = "new"
	ConditionLikeNew  Condition = "like_new"
	ConditionUsedGood Condition = "used_good"
	ConditionUsedFair Condition = "used_fair"
	ConditionUsedPoor Condition = "used_poor"
)

// Conditions lists every valid condition value in display order.
func Conditions() []Condition {
	return []Condition{
		ConditionNew,
		ConditionLikeNew,
		ConditionUsedGood,
		ConditionUsedFair,
		ConditionUsedPoor,
	}
}

// ParseCondition reports whether s names a known condition.
func ParseCondition(s string) (Condition, bool) {
	switch Condition(s) {
	case ConditionNew, ConditionLikeNew, ConditionUsedGood, ConditionUsedFair, ConditionUsedPoor:
		return Condition(s), true
	}
	return "", false
}

// Ad represents a single listing a user offers for exchange.
// An inactive ad is never eligible to be offered, requested, or listed.
type Ad struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	ImageURL    *string    `json:"image_url,omitempty" db:"image_url"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" db:"category_id"`
	Condition   Condition  `json:"condition" db:"condition"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Category represents an ad category
type Category struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}
