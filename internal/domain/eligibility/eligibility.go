// Package eligibility decides whether a submission may enter a comparison
// or ranking operation.
package eligibility

import (
	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

// Reason is a structured rejection code surfaced verbatim in skip lists.
type Reason string

// Rejection reason codes. Status rejections use the status_<status> form,
// built by StatusReason.
const (
	ReasonNotFound      Reason = "batch_not_found"
	ReasonInvalid       Reason = "batch_invalid"
	ReasonNoDocuments   Reason = "no_processed_documents"
	ReasonNoValidBlocks Reason = "no_valid_blocks"
	ReasonNoValidKPIs   Reason = "no_valid_kpis"
	ReasonNoKPIs        Reason = "no_kpis"
)

// StatusReason builds the rejection code for a non-completed status.
func StatusReason(status string) Reason {
	return Reason("status_" + status)
}

// Check runs the ordered eligibility checks against a read snapshot.
// The first failing condition short-circuits; the order determines which
// single reason code a caller observes and must not change:
//
//  1. missing submission
//  2. marked invalid (irreversible for a submission instance)
//  3. status not completed
//  4. user-sourced with zero processed documents
//  5. zero valid extracted blocks (system submissions may have blocks
//     without documents, so the document check above is skipped for them)
//  6. no usable overall score
func Check(rec *model.Record) (bool, Reason) {
	if rec == nil || rec.Submission == nil {
		return false, ReasonNotFound
	}
	sub := rec.Submission
	if sub.Invalid {
		return false, ReasonInvalid
	}
	if sub.Status != model.StatusCompleted {
		return false, StatusReason(sub.Status)
	}
	if !sub.SystemSourced() && rec.DocumentCount == 0 {
		return false, ReasonNoDocuments
	}
	if rec.ValidBlockCount == 0 {
		return false, ReasonNoValidBlocks
	}
	if _, ok := kpi.Canonicalize(sub.RawKPIs).Value(kpi.OverallScore); !ok {
		return false, ReasonNoValidKPIs
	}
	return true, ""
}
