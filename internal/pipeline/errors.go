package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure.
type Kind string

const (
	KindDataAccess   Kind = "data_access"
	KindIO           Kind = "io"
	KindSchema       Kind = "schema"
	KindPrecondition Kind = "precondition"
	KindTransform    Kind = "transform"
	KindTraining     Kind = "training"
	KindEvaluation   Kind = "evaluation"
	KindPromotion    Kind = "promotion"
)

// StageError wraps an underlying failure with the stage and operation it
// came from. Stages never recover locally; the orchestrator surfaces the
// first StageError and halts.
type StageError struct {
	Stage string
	Op    string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Stage, e.Op, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage, op string, kind Kind, err error) error {
	return &StageError{Stage: stage, Op: op, Kind: kind, Err: err}
}

func stageErrf(stage, op string, kind Kind, format string, args ...any) error {
	return &StageError{Stage: stage, Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind, or "" for foreign errors.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// StageOf extracts the originating stage name, or "" for foreign errors.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
