package orderlog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo returns the ids of the span active in ctx, or empty
// strings when there is none.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds a log row stamped with the current trace and time.
//
//	entry := orderlog.NewEntry(ctx, orderID, orderlog.StatusNotified, orderlog.ChannelForms, "notify", "", warnings)
func NewEntry(
	ctx context.Context,
	orderID string,
	status Status,
	channel Channel,
	step string,
	payload string,
	warnings []string,
) *Entry {
	ti := ExtractTraceInfo(ctx)

	warnJSON := "[]"
	if len(warnings) > 0 {
		if b, err := json.Marshal(warnings); err == nil {
			warnJSON = string(b)
		}
	}

	return &Entry{
		OrderID:   orderID,
		Status:    status,
		Channel:   channel,
		Step:      step,
		Payload:   payload,
		Warnings:  warnJSON,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		UpdatedAt: time.Now().UTC(),
	}
}

// DecodeWarnings parses an entry's Warnings column. Bad data yields nil.
func (e Entry) DecodeWarnings() []string {
	var out []string
	if err := json.Unmarshal([]byte(e.Warnings), &out); err != nil {
		return nil
	}
	return out
}
