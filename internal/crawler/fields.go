package crawler

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// FieldExtractor reads the name and address from a detail frame.
type FieldExtractor struct {
	selectors Selectors
	timings   Timings
	clock     Clock
	logger    *zap.Logger
}

// NewFieldExtractor constructs a FieldExtractor.
func NewFieldExtractor(selectors Selectors, timings Timings, clock Clock, logger *zap.Logger) *FieldExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldExtractor{selectors: selectors, timings: timings, clock: clock, logger: logger}
}

// ExtractFields never fails: a missing name yields HasName=false and a
// missing address yields "".
func (e *FieldExtractor) ExtractFields(ctx context.Context, frame Frame) Fields {
	var fields Fields

	nameEl := waitForSelector(ctx, e.clock, frame, e.selectors.Name, e.timings.NameWait, e.timings.PollInterval)
	if nameEl != nil {
		text, err := nameEl.Text(ctx)
		if err != nil {
			e.logger.Debug("read name failed", zap.Error(err))
		} else if name := strings.TrimSpace(text); name != "" {
			fields.Name = name
			fields.HasName = true
		}
	}

	fields.Address = e.textOf(ctx, frame, e.selectors.Address)
	return fields
}

func (e *FieldExtractor) textOf(ctx context.Context, frame Frame, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := frame.Query(ctx, selector)
	if err != nil || el == nil {
		return ""
	}
	text, err := el.Text(ctx)
	if err != nil {
		e.logger.Debug("read text failed", zap.String("selector", selector), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}
