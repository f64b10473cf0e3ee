package importapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/poimport/internal/domain/purchasing"
	csvimport "github.com/erp/poimport/internal/infrastructure/import"
	"github.com/google/uuid"
)

// GroupState is the processing state of one purchase order group
type GroupState string

const (
	GroupPending    GroupState = "pending"
	GroupResolving  GroupState = "resolving"
	GroupComputing  GroupState = "computing"
	GroupPersisting GroupState = "persisting"
	GroupSucceeded  GroupState = "succeeded"
	GroupFailed     GroupState = "failed"
	GroupSkipped    GroupState = "skipped"
)

// IsTerminal reports whether no further transition is possible
func (s GroupState) IsTerminal() bool {
	return s == GroupSucceeded || s == GroupFailed || s == GroupSkipped
}

// GroupResult is the outcome of one purchase order group
type GroupResult struct {
	PONumber string            `json:"po_number"`
	State    GroupState        `json:"state"`
	Stage    GroupState        `json:"stage,omitempty"`
	ID       uuid.UUID         `json:"id"`
	Lines    int               `json:"lines"`
	Totals   purchasing.Totals `json:"totals"`
	Error    string            `json:"error,omitempty"`
	Code     string            `json:"code,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// ImportFailure pairs a failed PO number with its error
type ImportFailure struct {
	PONumber string     `json:"po_number"`
	Stage    GroupState `json:"stage"`
	Code     string     `json:"code,omitempty"`
	Error    string     `json:"error"`
}

// ImportSummary reports the outcome of an import run
type ImportSummary struct {
	TotalRows      int                  `json:"total_rows"`
	TotalGroups    int                  `json:"total"`
	Succeeded      int                  `json:"successful"`
	Failed         int                  `json:"failed"`
	Skipped        int                  `json:"skipped"`
	SkippedRows    int                  `json:"skipped_rows"`
	VendorsCreated int                  `json:"vendors_created"`
	Interrupted    bool                 `json:"interrupted,omitempty"`
	Failures       []ImportFailure      `json:"failures,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
	RowErrors      []csvimport.RowError `json:"row_errors,omitempty"`
	Details        []GroupResult        `json:"details"`
	StartedAt      time.Time            `json:"started_at"`
	Duration       time.Duration        `json:"duration_ns"`
}

func (s *ImportSummary) record(r GroupResult) {
	s.Details = append(s.Details, r)
	for _, w := range r.Warnings {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%s: %s", r.PONumber, w))
	}
	switch r.State {
	case GroupSucceeded:
		s.Succeeded++
	case GroupSkipped:
		s.Skipped++
	case GroupFailed:
		s.Failed++
		s.Failures = append(s.Failures, ImportFailure{
			PONumber: r.PONumber,
			Stage:    r.Stage,
			Code:     r.Code,
			Error:    r.Error,
		})
	}
}

// String renders the summary as a human readable report
func (s *ImportSummary) String() string {
	var sb strings.Builder
	line := strings.Repeat("=", 60)

	sb.WriteString(line + "\nImport Summary\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("Rows read:   %d\n", s.TotalRows))
	sb.WriteString(fmt.Sprintf("Successful:  %d/%d POs\n", s.Succeeded, s.TotalGroups))
	if s.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("Skipped:     %d/%d POs (already imported)\n", s.Skipped, s.TotalGroups))
	}
	if s.Failed > 0 {
		sb.WriteString(fmt.Sprintf("Failed:      %d/%d POs\n", s.Failed, s.TotalGroups))
	}
	if s.SkippedRows > 0 {
		sb.WriteString(fmt.Sprintf("Rows without PO number: %d\n", s.SkippedRows))
	}
	if s.VendorsCreated > 0 {
		sb.WriteString(fmt.Sprintf("Vendors created: %d\n", s.VendorsCreated))
	}
	if s.Interrupted {
		sb.WriteString("Run was interrupted before all POs were processed\n")
	}
	if len(s.Failures) > 0 {
		sb.WriteString("\nFailed POs:\n")
		for _, f := range s.Failures {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", f.PONumber, f.Error))
		}
	}
	if len(s.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range s.Warnings {
			sb.WriteString("  - " + w + "\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\nElapsed: %s\n", s.Duration.Round(time.Millisecond)))
	sb.WriteString(line + "\n")
	return sb.String()
}
