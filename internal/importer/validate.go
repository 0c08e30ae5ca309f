package importer

import (
	"errors"
	"io"

	"github.com/couchcryptid/location-import-service/internal/domain"
)

// RowReport is the offline verdict for one CSV row.
type RowReport struct {
	Line     int    `json:"line"`
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"`
	SiteType string `json:"site_type,omitempty"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
}

// Report summarizes a validation pass.
type Report struct {
	Rows    []RowReport `json:"rows"`
	Valid   int         `json:"valid"`
	Skipped int         `json:"skipped"`
}

// Validate decodes and classifies payload without touching a store. The
// decoding rules match Run; a malformed record returns the rows read so far.
func Validate(payload io.Reader) (Report, error) {
	var report Report

	data, err := io.ReadAll(payload)
	if err != nil {
		return report, err
	}
	rows, err := domain.NewRowReader(data)
	if err != nil {
		return report, err
	}

	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			return report, err
		}

		rr := RowReport{
			Line:  row.Line,
			Name:  row.Name,
			City:  row.City,
			State: domain.NormalizeState(row.State),
		}
		siteType, err := domain.ClassifySite(row.Name)
		if err != nil {
			rr.Skipped = true
			rr.Reason = domain.SkipMessage(row.Name)
			report.Skipped++
		} else {
			rr.SiteType = siteType
			report.Valid++
		}
		report.Rows = append(report.Rows, rr)
	}
}
