package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"stackforge/internal/core"
)

// Validate parses every description in the robot paths and checks it.
// All problems are reported together.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	if len(req.RobotPaths) == 0 {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one robot path is required")
	}
	records, problems := s.OpenRepository(req.RobotPaths).Descriptions(ctx)
	validator := core.NewDescriptionValidator(s.Easyblocks)
	for _, record := range records {
		if err := validator.ValidateDescription(ctx, record.Path, record.Description); err != nil {
			problems = multierr.Append(problems, err)
		}
	}
	if problems != nil {
		return ValidateResult{Descriptions: len(records)}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid package descriptions").
			WithCause(problems)
	}
	log.Ctx(ctx).Debug().Int("descriptions", len(records)).Msg("descriptions validated")
	return ValidateResult{Descriptions: len(records)}, nil
}
