package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage of a run.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrTransport             = errors.New("transport error")
	ErrVendor                = errors.New("vendor error")
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrStaging               = errors.New("staging error")
	ErrHandoff               = errors.New("handoff error")
	ErrDataContract          = errors.New("data contract violation")
	ErrInvalidArgument       = errors.New("invalid argument")
)

// VendorError carries the errors payload of a success=false envelope.
type VendorError struct {
	Errors json.RawMessage
}

func (e *VendorError) Error() string {
	if len(e.Errors) == 0 {
		return "vendor error: <no details>"
	}
	return fmt.Sprintf("vendor error: %s", string(e.Errors))
}

func (e *VendorError) Is(target error) bool { return target == ErrVendor }

// ContentTypeError is returned when a JSON body was expected but something
// else came back. Body is truncated.
type ContentTypeError struct {
	Status      int
	ContentType string
	Body        string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unexpected content type %q (status %d): %s", e.ContentType, e.Status, e.Body)
}

func (e *ContentTypeError) Is(target error) bool { return target == ErrUnexpectedContentType }

// StageError names the stage that aborted a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
