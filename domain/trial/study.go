package trial

// Study is one raw record as returned by the registry's studies endpoint.
// Only the sections requested through the fields parameter are modelled;
// every section is optional and decodes to its zero value when absent.
type Study struct {
	ProtocolSection ProtocolSection `json:"protocolSection"`
}

// ProtocolSection groups the registry modules describing a study.
type ProtocolSection struct {
	Identification IdentificationModule `json:"identificationModule"`
	Status         StatusModule         `json:"statusModule"`
	Design         DesignModule         `json:"designModule"`
	Conditions     ConditionsModule     `json:"conditionsModule"`
	Description    DescriptionModule    `json:"descriptionModule"`
	Eligibility    EligibilityModule    `json:"eligibilityModule"`
}

// IdentificationModule carries the registry identifier and title.
type IdentificationModule struct {
	NCTID      string `json:"nctId"`
	BriefTitle string `json:"briefTitle"`
}

// StatusModule carries the recruitment status.
type StatusModule struct {
	OverallStatus string `json:"overallStatus"`
}

// DesignModule carries the trial phase tags.
type DesignModule struct {
	Phases []string `json:"phases"`
}

// ConditionsModule carries the studied condition names.
type ConditionsModule struct {
	Conditions []string `json:"conditions"`
}

// DescriptionModule carries the long-form description.
type DescriptionModule struct {
	DetailedDescription string `json:"detailedDescription"`
}

// EligibilityModule carries the inclusion and exclusion criteria text.
type EligibilityModule struct {
	EligibilityCriteria string `json:"eligibilityCriteria"`
}
