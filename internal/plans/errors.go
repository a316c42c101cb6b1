package plans

import "errors"

var (
	ErrInvalidPlan    = errors.New("invalid plan definition")
	ErrDuplicateLevel = errors.New("a plan with this level already exists")
	ErrPlanNotFound   = errors.New("plan not found")
)
