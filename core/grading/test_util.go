package grading

import (
	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/user"
)

// NewServiceMock returns a Service with the submit debounce disabled.
func NewServiceMock(repo Repository, assessSvc assessment.Service, usrRepo user.Repository) Service {
	return &service{repo: repo, assessSvc: assessSvc, usrRepo: usrRepo}
}
