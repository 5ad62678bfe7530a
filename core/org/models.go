package org

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Branch is an organizational scope that partitions users and courses.
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"` // unique
	IsActive  bool      `json:"is_active"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewBranch struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,alphanum_"`
}

func (nb *NewBranch) Validate(validate *validator.Validate, svc Service) error {
	nb.Name = core.CleanString(nb.Name)
	nb.Code = core.CleanString(nb.Code, true /* lower */)

	if err := validate.Struct(nb); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(nb.Code)
}

type UpdateBranch struct {
	Name     string `json:"name"`
	Code     string `json:"code" validate:"omitempty,alphanum_"`
	IsActive *bool  `json:"is_active"`
}

func (ub *UpdateBranch) Validate(validate *validator.Validate, orig Branch, svc Service) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	if code := core.CleanString(ub.Code, true /* lower */); code != "" {
		ub.Code = code
	} else {
		ub.Code = orig.Code
	}

	if err := validate.Struct(ub); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ub.Code, orig)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`

	core.Params
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Params.Clean()
}
