package lifecycle

// Tabs says which student workspace tabs can be activated.
type Tabs struct {
	DocumentsEnabled    bool `json:"documentsEnabled"`
	ApplicationsEnabled bool `json:"applicationsEnabled"`
}

// GateTabs derives the enabled tabs from a stage. Documents open once the
// personal and academic sections are done; applications only when
// everything is.
func GateTabs(stage Stage) Tabs {
	return Tabs{
		DocumentsEnabled:    stage != NeedsPersonalInfo && stage != NeedsAcademicQualification,
		ApplicationsEnabled: stage == Complete,
	}
}
