package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

type CreateRequest struct {
	Letter string `json:"letter" validate:"required,max=255"`
	Status *int   `json:"status" validate:"required"`
}

type UpdateRequest struct {
	ID     string  `json:"-"`
	Letter *string `json:"letter" validate:"omitempty,max=255"`
	Status *int    `json:"status"`
}

type ListRequest struct {
	pagination.Pagination
	Letter string
	Status *int
}

type ListResponse struct {
	pagination.PageInfo
	LetterTemplates []LetterTemplate `json:"letter_templates"`
}

type Service interface {
	Create(context.Context, CreateRequest) (LetterTemplate, error)
	Update(context.Context, UpdateRequest) (LetterTemplate, error)
	GetByID(ctx context.Context, id string) (LetterTemplate, error)
	List(context.Context, ListRequest) (ListResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidLetter = errors.New("invalid_letter")
	ErrInvalidCursor = errors.New("invalid_page_token")
	ErrNotFound      = errors.New("letter_template_not_found")
)
