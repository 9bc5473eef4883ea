package flatfile

import "fmt"

// MetadataField is one of the identity or form-level fields every record
// carries. Exports spell them either the long way (studyName, normalized to
// study_name) or the short way (studyname).
type MetadataField struct {
	Long  string
	Short string
}

func (m MetadataField) Name(short bool) string {
	if short {
		return m.Short
	}
	return m.Long
}

var (
	StudyName   = MetadataField{Long: "study_name", Short: "studyname"}
	SiteName    = MetadataField{Long: "site_name", Short: "sitename"}
	SiteID      = MetadataField{Long: "site_id", Short: "siteid"}
	PatientName = MetadataField{Long: "patient_name", Short: "patientname"}
	PatientID   = MetadataField{Long: "patient_id", Short: "patientid"}
	FormTitle   = MetadataField{Long: "form_title", Short: "formtitle"}
	BaseForm    = MetadataField{Long: "base_form", Short: "baseform"}
	FormNumber  = MetadataField{Long: "form_number", Short: "formnumber"}
	FormGroup   = MetadataField{Long: "form_group", Short: "formgroup"}
	FormState   = MetadataField{Long: "form_state", Short: "formstate"}
)

// IterationField holds the 1-based iteration index of repeating forms.
const IterationField = "i"

// RepeatingPrefix marks the canonical name of a repeating form.
const RepeatingPrefix = "i_"

// Metadata lists the metadata fields in canonical order: the identity
// fields shared by the whole document first, then the form-level fields.
func Metadata() []MetadataField {
	return []MetadataField{
		StudyName, SiteName, SiteID, PatientName, PatientID,
		FormTitle, BaseForm, FormNumber, FormGroup, FormState,
	}
}

// Identity lists the study, site and patient fields.
func Identity() []MetadataField {
	return []MetadataField{StudyName, SiteName, SiteID, PatientName, PatientID}
}

// MetadataNames returns the spelled names of all metadata fields.
func MetadataNames(short bool) []string {
	fields := Metadata()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name(short)
	}
	return names
}

// LookupMetadata finds a metadata field by either spelling.
func LookupMetadata(name string) (MetadataField, bool) {
	for _, f := range Metadata() {
		if f.Long == name || f.Short == name {
			return f, true
		}
	}
	return MetadataField{}, false
}

// ParseRequired resolves configured field names for WithRequired.
func ParseRequired(names []string) ([]MetadataField, error) {
	fields := make([]MetadataField, 0, len(names))
	for _, name := range names {
		f, ok := LookupMetadata(name)
		if !ok {
			return nil, fmt.Errorf("%q is not a metadata field", name)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
