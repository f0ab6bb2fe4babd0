// Package trial provides the clinical trial domain: the structured trial row,
// the protocol document used for semantic retrieval, and the normalizer that
// derives both from a raw registry record.
package trial

// Placeholder values used when a registry record omits a field.
const (
	DefaultTitle  = "No Title"
	DefaultStatus = "Unknown"
	DefaultPhase  = "Not Applicable"
)

// Source is the provenance tag stored with every protocol document.
const Source = "ClinicalTrials.gov"

// MinDocumentLength is the character count a composed protocol document must
// exceed to be indexed.
const MinDocumentLength = 100

// Trial is the structured representation of one registry record.
type Trial struct {
	nctID      string
	title      string
	status     string
	phase      string
	conditions string
}

// NewTrial creates a Trial. Empty title, status and phase fall back to their
// placeholders.
func NewTrial(nctID, title, status, phase, conditions string) Trial {
	if title == "" {
		title = DefaultTitle
	}
	if status == "" {
		status = DefaultStatus
	}
	if phase == "" {
		phase = DefaultPhase
	}
	return Trial{
		nctID:      nctID,
		title:      title,
		status:     status,
		phase:      phase,
		conditions: conditions,
	}
}

// NCTID returns the registry identifier.
func (t Trial) NCTID() string { return t.nctID }

// Title returns the brief title.
func (t Trial) Title() string { return t.title }

// Status returns the overall recruitment status.
func (t Trial) Status() string { return t.status }

// Phase returns the comma-joined phase tags.
func (t Trial) Phase() string { return t.phase }

// Conditions returns the comma-joined condition names.
func (t Trial) Conditions() string { return t.conditions }

// Metadata is attached to every protocol document in the vector store.
type Metadata struct {
	nctID  string
	source string
}

// NewMetadata creates Metadata for a trial identifier.
func NewMetadata(nctID, source string) Metadata {
	return Metadata{nctID: nctID, source: source}
}

// NCTID returns the trial identifier the document belongs to.
func (m Metadata) NCTID() string { return m.nctID }

// Source returns the provenance tag.
func (m Metadata) Source() string { return m.source }

// Protocol is the free-text document indexed for semantic retrieval.
// Its ID equals the trial identifier.
type Protocol struct {
	id       string
	text     string
	metadata Metadata
}

// NewProtocol creates a Protocol keyed by the trial identifier.
func NewProtocol(nctID, text string) Protocol {
	return Protocol{
		id:       nctID,
		text:     text,
		metadata: NewMetadata(nctID, Source),
	}
}

// ID returns the document ID.
func (p Protocol) ID() string { return p.id }

// Text returns the document text.
func (p Protocol) Text() string { return p.text }

// Metadata returns the document metadata.
func (p Protocol) Metadata() Metadata { return p.metadata }
