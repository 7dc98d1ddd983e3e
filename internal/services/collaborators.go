package services

import (
	"context"
	"errors"
	"fmt"

	"weather-workbench/internal/records"
)

var (
	// ErrCancelled is wrapped by a *ConfirmationError when a prompt is declined
	ErrCancelled = errors.New("operation cancelled")

	// ErrUnsavedChanges is returned by operations that refuse to run over staged edits
	ErrUnsavedChanges = errors.New("save your table before performing this action")

	// ErrInvertedRange is returned when a period starts after it ends
	ErrInvertedRange = errors.New("the start date cannot be greater than the end date")
)

// Prompts shown before destructive or dirty-state operations
const (
	PromptOpen             = "When you click the OK button, all previous data will be erased and the table will be filled from the file."
	PromptSaveUnsaved      = "You did not save all the changes you made. Do you really want to save the last changes you made to a file?"
	PromptSortUnsaved      = "You did not save all the changes you made. Do you want to continue?"
	PromptSortReorders     = "This function can «ruin» a table because it changes the order of its elements. Do you really want to continue?"
	PromptAverageUnsaved   = "You did not save all the changes you made. Do you want to continue searching for the average value?"
	PromptHumidityUnsaved  = "You did not save all the changes you made. Do you want to continue searching for highest humidity days?"
	PromptPeriodsUnsaved   = "You did not save all the changes you made. Do you want to continue searching for periods of bounded drift?"
	PromptForecastUnsaved  = "You did not save all the changes you made. Do you want to continue forecasting weather?"
	PromptGraphUnsavedTmpl = "You did not save all the changes you made. Do you really want to continue build %s graph?"
)

// Notifications sent through a Notifier
const (
	NoticeNotEnoughData = "Not enough data to build a graph. Add at least 3 records."
	NoticeNoPeriods     = "In your table, there are no periods of 3 or more days with bounded temperature and pressure drift."
	NoticeForecastDone  = "The weather for the next month has been successfully predicted and added to the table."
	NoticeWindRuns      = "The days during which the wind direction did not change are grouped together."
)

// Confirmer asks the user an Ok/Cancel question
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, message string) bool

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool {
	return f(ctx, message)
}

// AlwaysConfirm approves every prompt, for batch use
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// Notifier delivers one-way messages to the user
type Notifier interface {
	Notify(ctx context.Context, message string)
	NotifyError(ctx context.Context, message string)
}

// Renderer draws a line chart of points
type Renderer interface {
	Render(ctx context.Context, points []records.Point, title string) error
}

// ConfirmationError reports the prompt that was declined
type ConfirmationError struct {
	Prompt string
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCancelled, e.Prompt)
}

func (e *ConfirmationError) Unwrap() error {
	return ErrCancelled
}

// IsTransient returns false as the user chose to stop
func (e *ConfirmationError) IsTransient() bool {
	return false
}

// confirm returns a *ConfirmationError unless c approves message
func confirm(ctx context.Context, c Confirmer, message string) error {
	if c == nil || !c.Confirm(ctx, message) {
		return &ConfirmationError{Prompt: message}
	}
	return nil
}
