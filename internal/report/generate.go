package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"rollcall/internal/attendance"
)

// Format is an output encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts pdf or xlsx, defaulting to pdf when s is empty.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: format must be pdf or xlsx", attendance.ErrValidation)
}

// ContentType is the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Source supplies the rows a report is built from.
type Source interface {
	ListSessions(ctx context.Context) ([]attendance.Session, error)
	ListAttendees(ctx context.Context, categories ...attendance.Category) ([]attendance.Attendee, error)
	ListLogs(ctx context.Context, sessionIDs ...string) ([]attendance.Log, error)
}

// Output is a rendered report.
type Output struct {
	Data        []byte
	FileName    string
	ContentType string
}

// Generate loads the selected sessions from src and renders them.
func Generate(ctx context.Context, src Source, cfg Config, format Format, opts Options) (Output, error) {
	if err := cfg.Validate(); err != nil {
		return Output{}, err
	}
	opts = opts.withDefaults()

	sessions, err := src.ListSessions(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("list sessions: %w", err)
	}
	attendees, err := src.ListAttendees(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("list attendees: %w", err)
	}
	logs, err := src.ListLogs(ctx, cfg.SessionIDs...)
	if err != nil {
		return Output{}, fmt.Errorf("list logs: %w", err)
	}

	m := BuildMatrix(sessions, attendees, logs, cfg)
	if len(m.Sessions) == 0 {
		return Output{}, fmt.Errorf("%w: none of the selected sessions exist", attendance.ErrNotFound)
	}

	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		err = RenderXLSX(&buf, m)
	default:
		format = FormatPDF
		err = RenderPDF(&buf, m, opts)
	}
	if err != nil {
		return Output{}, fmt.Errorf("render %s: %w", format, err)
	}
	return Output{
		Data:        buf.Bytes(),
		FileName:    FileName(opts.Now, string(format)),
		ContentType: format.ContentType(),
	}, nil
}
