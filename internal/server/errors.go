package server

import (
	"errors"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/records"
)

// toStatus maps the pipeline's domain errors onto gRPC codes and leaves the
// rest to common.StatusFor.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ocr.ErrExtraction):
		return common.FailedPreconditionError(err.Error())
	case errors.Is(err, records.ErrMissingName), errors.Is(err, records.ErrMissingDate):
		return common.InvalidArgumentError(err.Error())
	case errors.Is(err, core.ErrAgeUnknown):
		return common.FailedPreconditionError("age is required: subject has no birth date")
	default:
		return common.StatusFor(err)
	}
}
