package export

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies a rendered export type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises user input, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Dataset defines tabular export content.
type Dataset struct {
	Title       string
	GeneratedAt time.Time
	Headers     []string
	Rows        []map[string]string
}

// File is a rendered export ready to be streamed to a client.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Render produces a File in the requested format. baseName is used for the
// download filename together with the generation timestamp.
func Render(format Format, baseName string, data Dataset) (*File, error) {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now().UTC()
	}
	stamp := data.GeneratedAt.UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		body, err := NewCSVExporter().Render(data)
		if err != nil {
			return nil, err
		}
		return &File{Filename: fmt.Sprintf("%s-%s.csv", baseName, stamp), ContentType: "text/csv", Data: body}, nil
	case FormatPDF:
		body, err := NewPDFExporter().Render(data)
		if err != nil {
			return nil, err
		}
		return &File{Filename: fmt.Sprintf("%s-%s.pdf", baseName, stamp), ContentType: "application/pdf", Data: body}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
