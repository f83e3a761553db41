package scene

import "fmt"

// Step names one stage of the enrichment pipeline. Failure handling is
// keyed off the step: cover failures get their own error tag, every
// other step shares the hashing error tag.
type Step string

const (
	StepHashing Step = "hashing"
	StepCover   Step = "cover"
	StepSprite  Step = "sprite"
	StepPreview Step = "preview"
)

// StepError wraps a failure with the step it happened in.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) *StepError {
	return &StepError{Step: step, Err: err}
}
