package trial

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMissingIdentifier indicates a record carries no registry identifier.
var ErrMissingIdentifier = errors.New("record has no identifier")

// SkipReason explains why a record produced no trial.
type SkipReason string

// SkipReason values.
const (
	SkipNone              SkipReason = ""
	SkipMissingIdentifier SkipReason = "missing_identifier"
	SkipMalformedRecord   SkipReason = "malformed_record"
)

// NormalizeResult is the outcome of normalizing one record: either a trial
// with an optional protocol document, or a skip reason.
type NormalizeResult struct {
	trial    Trial
	protocol *Protocol
	skip     SkipReason
	err      error
}

// OK reports whether the record produced a trial.
func (r NormalizeResult) OK() bool { return r.skip == SkipNone }

// Trial returns the structured row. Only meaningful when OK.
func (r NormalizeResult) Trial() Trial { return r.trial }

// Protocol returns the protocol document, if the record was rich enough.
func (r NormalizeResult) Protocol() (Protocol, bool) {
	if r.protocol == nil {
		return Protocol{}, false
	}
	return *r.protocol, true
}

// SkipReason returns why the record was skipped.
func (r NormalizeResult) SkipReason() SkipReason { return r.skip }

// Err returns the underlying error for a skipped record.
func (r NormalizeResult) Err() error { return r.err }

func skipped(reason SkipReason, err error) NormalizeResult {
	return NormalizeResult{skip: reason, err: err}
}

// Normalize decodes a raw registry record and normalizes it. A record that
// does not decode is skipped with SkipMalformedRecord.
func Normalize(raw json.RawMessage) NormalizeResult {
	var study Study
	if err := json.Unmarshal(raw, &study); err != nil {
		return skipped(SkipMalformedRecord, fmt.Errorf("decode record: %w", err))
	}
	return NormalizeStudy(study)
}

// NormalizeStudy derives the trial row and protocol document from a study.
func NormalizeStudy(study Study) NormalizeResult {
	p := study.ProtocolSection

	nctID := strings.TrimSpace(p.Identification.NCTID)
	if nctID == "" {
		return skipped(SkipMissingIdentifier, ErrMissingIdentifier)
	}

	t := NewTrial(
		nctID,
		p.Identification.BriefTitle,
		p.Status.OverallStatus,
		strings.Join(p.Design.Phases, ", "),
		strings.Join(p.Conditions.Conditions, ", "),
	)

	result := NormalizeResult{trial: t}

	text := ComposeDocument(t, p.Description.DetailedDescription, p.Eligibility.EligibilityCriteria)
	if Eligible(text) {
		doc := NewProtocol(nctID, text)
		result.protocol = &doc
	}
	return result
}

// ComposeDocument builds the label-tagged protocol text for a trial.
func ComposeDocument(t Trial, description, eligibility string) string {
	return fmt.Sprintf(
		"TRIAL ID: %s\nTITLE: %s\nCONDITIONS: %s\nDESCRIPTION: %s\nELIGIBILITY CRITERIA: %s",
		t.NCTID(), t.Title(), t.Conditions(), description, eligibility,
	)
}

// Eligible reports whether a composed document is long enough to index.
func Eligible(text string) bool {
	return utf8.RuneCountInString(text) > MinDocumentLength
}
