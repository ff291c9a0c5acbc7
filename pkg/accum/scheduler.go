package accum

import (
	"fmt"

	"github.com/abworrall/rawls-accum/pkg/radiance"
)

// A Policy decides how the sample count triggers a checkpoint.
type Policy string

const (
	// PolicyMultiple fires only when the sample count lands exactly on a
	// multiple of the step. If one pass carries the count past a multiple
	// without landing on it, that checkpoint never happens.
	PolicyMultiple Policy = "multiple"

	// PolicyCrossing fires whenever a fusion carries the count across (or
	// onto) a multiple of the step. Opt in.
	PolicyCrossing Policy = "crossing"
)

type Scheduler struct {
	Step   int
	Policy Policy
}

// NewScheduler rejects a non-positive step. An empty policy means PolicyMultiple.
func NewScheduler(step int, policy Policy) (Scheduler, error) {
	if step <= 0 {
		return Scheduler{}, fmt.Errorf("%w: checkpoint step must be positive, got %d", radiance.ErrInvalidConfiguration, step)
	}

	switch policy {
	case "":
		policy = PolicyMultiple
	case PolicyMultiple, PolicyCrossing:
	default:
		return Scheduler{}, fmt.Errorf("%w: no checkpoint policy '%s'", radiance.ErrInvalidConfiguration, policy)
	}

	return Scheduler{Step: step, Policy: policy}, nil
}

// ShouldCheckpoint is asked once per fusion, with the merged sample count
// before (0 for the first input) and after.
func (s Scheduler) ShouldCheckpoint(priorSamples, newSamples int) bool {
	if s.Policy == PolicyCrossing {
		return newSamples/s.Step > priorSamples/s.Step
	}
	return newSamples%s.Step == 0
}

// CheckpointName builds the snapshot filename, e.g. "scene_00250.png".
// The sample count is padded to at least five digits.
func CheckpointName(base string, samples int, ext string) string {
	return fmt.Sprintf("%s_%05d%s", base, samples, ext)
}
