package schema

// FieldType is the semantic type a canonical field coerces to.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDateTime FieldType = "datetime"
)

// Domain group labels, used for reporting and the mapping UI.
const (
	GroupIdentification = "Patient Identification"
	GroupClinical       = "Clinical Data"
	GroupDemographics   = "Demographics"
)

// Field describes one canonical target field: its semantic type, domain
// group, whether it is a critical identification field, the match patterns
// the suggester scores headers against, and a human label.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Group    string
	Critical bool
	Patterns []string
}

// Fields is the static canonical field registry, in suggestion order.
// It is initialized once and never mutated; concurrent reads are safe.
var Fields = []Field{
	{
		Name: "mrn", Label: "MRN", Type: TypeString, Group: GroupIdentification, Critical: true,
		Patterns: []string{`^mrn$`, `^m\.r\.n\.?$`, `medical.*record`, `patient.*id`, `patient.*number`},
	},
	{
		Name: "first_name", Label: "First Name (FN)", Type: TypeString, Group: GroupIdentification, Critical: true,
		Patterns: []string{`^fn$`, `^first name$`, `^firstname$`, `first.*name`, `fname`, `given.*name`},
	},
	{
		Name: "last_name", Label: "Last Name (LN)", Type: TypeString, Group: GroupIdentification, Critical: true,
		Patterns: []string{`^ln$`, `^last name$`, `^lastname$`, `last.*name`, `lname`, `surname`, `family.*name`},
	},
	{
		Name: "date_of_service", Label: "Date of Service", Type: TypeDateTime, Group: GroupIdentification,
		Patterns: []string{`date.*service`, `dos`, `service.*date`, `visit.*date`, `^date of service$`},
	},
	{
		Name: "location", Label: "Location", Type: TypeString, Group: GroupIdentification,
		Patterns: []string{`location`, `loc`, `site`, `facility`, `^location$`},
	},
	{
		Name: "reason_for_visit", Label: "Reason for Visit", Type: TypeString, Group: GroupIdentification,
		Patterns: []string{`reason.*visit`, `chief.*complaint`, `presenting.*problem`, `^reason for visit$`},
	},
	{
		Name: "points", Label: "Points", Type: TypeNumber, Group: GroupClinical,
		Patterns: []string{`^points$`, `^pts$`, `points`, `pts`, `score`, `total.*points`},
	},
	{
		Name: "percent", Label: "Percent", Type: TypeNumber, Group: GroupClinical,
		Patterns: []string{`^percent$`, `percent`, `percentage`, `%`, `pct`},
	},
	{
		Name: "category", Label: "Category", Type: TypeString, Group: GroupClinical,
		Patterns: []string{`^category$`, `category`, `cat`, `risk.*category`},
	},
	{
		Name: "pca_confirmed", Label: "PCa confirmed?", Type: TypeBoolean, Group: GroupClinical,
		Patterns: []string{`pca.*confirmed`, `prostate.*cancer`, `cancer.*confirmed`, `^pca confirmed`},
	},
	{
		Name: "gleason_grade", Label: "Gleason Grade (GG)", Type: TypeString, Group: GroupClinical,
		Patterns: []string{`^gg$`, `^gleason$`, `gleason`, `gg`, `gleason.*grade`, `grade`},
	},
	{
		Name: "age_group", Label: "Age Group", Type: TypeString, Group: GroupDemographics,
		Patterns: []string{`age.*group`, `age.*range`, `^age group$`},
	},
	{
		Name: "family_history", Label: "FH of prostate", Type: TypeString, Group: GroupDemographics,
		Patterns: []string{`^fh$`, `family.*history`, `fh`, `fhx`, `family.*hx`, `^fh of prostate$`},
	},
	{
		Name: "race", Label: "Race", Type: TypeString, Group: GroupDemographics,
		Patterns: []string{`^race$`, `race`, `ethnicity`, `racial`},
	},
	{
		Name: "genetic_mutation", Label: "Genetic", Type: TypeString, Group: GroupDemographics,
		Patterns: []string{`genetic`, `mutation`, `gene`, `brca`, `^genetic risk$`, `^genetic$`},
	},
}

// fieldsByName indexes the registry for lookups.
var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f
	}
	return m
}()

// highValueFields get the permissive 0.1 threshold in the pattern phase; the
// rest use 0.3. Recall is favored over precision because a human reviews
// suggestions before they are applied.
var highValueFields = map[string]bool{
	"mrn":             true,
	"first_name":      true,
	"last_name":       true,
	"date_of_service": true,
	"location":        true,
}

// FieldByName returns the registry entry for a canonical field name.
func FieldByName(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// IsCanonical reports whether name is a canonical field name.
func IsCanonical(name string) bool {
	_, ok := fieldsByName[name]
	return ok
}

// FieldNames returns the canonical field names in registry order.
func FieldNames() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}
