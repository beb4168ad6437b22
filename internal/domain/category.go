package domain

import (
	"time"
)

// Category is a shared tag referenced by fragments and knowledge units.
// Categories are immutable after creation and never cascaded when their
// referents are deleted.
type Category struct {
	ID        string
	Name      string
	Icon      string
	CreatedAt time.Time
}

// NewCategory creates a new Category instance
func NewCategory(id, name, icon string, createdAt time.Time) *Category {
	return &Category{
		ID:        id,
		Name:      name,
		Icon:      icon,
		CreatedAt: createdAt,
	}
}

// ValidateCategory validates a Category instance
func ValidateCategory(c *Category) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "category cannot be nil")
	}

	if c.ID == "" {
		return NewDomainError(ErrCodeValidation, "category ID is required")
	}

	if c.Name == "" {
		return NewDomainError(ErrCodeValidation, "category Name is required")
	}

	return nil
}
