package merge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

func parseFixture(t *testing.T, name string) *flatfile.Dataset {
	t.Helper()
	ds, err := flatfile.ParseFile(filepath.Join("..", "flatfile", "testdata", name))
	require.NoError(t, err)
	return ds
}

func TestMergeDefaultSharedFields(t *testing.T) {
	ds := parseFixture(t, "communications_with_details.xml")

	merged, err := MergeForms(ds, "communications", "i_communications_details", Options{})
	require.NoError(t, err)
	require.Len(t, merged, 3)

	first := merged[0]
	assert.Equal(t, "i_communications_details", first.FormName)
	assert.Equal(t, 1, first.Iteration)
	assert.Equal(t, []string{
		"study_name", "site_name", "site_id", "patient_name", "patient_id",
		"form_title", "base_form", "form_number", "form_group", "form_state",
		"communications_made", "contacted_by", "investigator", "communication", "i",
	}, first.Fields.Keys())
	assert.Equal(t, value.Text("Yes"), first.Get("communications_made"))
	assert.Equal(t, value.Text("You"), first.Get("contacted_by"))

	assert.Equal(t, value.Text("A follow up"), merged[1].Get("communication"))
	assert.Equal(t, 2, merged[1].Iteration)
	assert.Equal(t, value.Text("ABC-002"), merged[2].Get("patient_name"))
	assert.Equal(t, value.Text("No"), merged[2].Get("communications_made"))
}

func TestMergeTakesSharedFieldsFromMain(t *testing.T) {
	main := []flatfile.Record{record("communications", "patient_id", value.Integer(1), "form_state", value.Text("Complete"))}
	sub := []flatfile.Record{record("i_details", "patient_id", value.Integer(1), "form_state", value.Text("In-Work"), "note", value.Text("n"))}

	merged, err := Merge(main, sub, Options{SharedFields: []string{"patient_id", "form_state"}})
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, value.Text("Complete"), merged[0].Get("form_state"))
	assert.Equal(t, []string{"patient_id", "form_state", "note"}, merged[0].Fields.Keys())

	merged, err = Merge(main, sub, Options{SharedFields: []string{}})
	require.NoError(t, err)
	assert.Equal(t, value.Text("In-Work"), merged[0].Get("form_state"))

	assert.Equal(t, []string{"patient_id", "form_state"}, main[0].Fields.Keys())
	assert.Equal(t, value.Text("In-Work"), sub[0].Get("form_state"))
}

func TestMergeNullFormNumbersJoin(t *testing.T) {
	main := parseFixture(t, "flat_form_communications.xml").Records("communications")
	sub := parseFixture(t, "i_form_communications_details.xml").Records("i_communications_details")

	merged, err := Merge(main, sub, Options{})
	require.NoError(t, err)
	require.Len(t, merged, 3)
	for i, rec := range merged {
		assert.Equal(t, value.Text("ABC-001"), rec.Get("patient_name"))
		assert.Equal(t, value.Text("Yes"), rec.Get("communications_made"))
		assert.Equal(t, value.Integer(int64(i+1)), rec.Get("i"))
	}
}

func TestMergeCardinalityFailures(t *testing.T) {
	sub := []flatfile.Record{record("i_x", "patient_id", value.Integer(7), "form_number", value.Integer(1))}

	_, err := Merge(nil, sub, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMerge))
	var ke *KeyError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, value.Integer(7), ke.Key.PatientID)
	assert.Contains(t, err.Error(), "patient_id=7 form_number=1")

	main := []flatfile.Record{
		record("x", "patient_id", value.Integer(7), "form_number", value.Integer(1)),
		record("x", "patient_id", value.Integer(7), "form_number", value.Integer(1)),
	}
	_, err = Merge(main, sub, Options{})
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, 2, ke.Matches)

	_, err = Merge(main[:1], []flatfile.Record{record("i_x", "form_number", value.Integer(1))}, Options{})
	assert.True(t, errors.Is(err, ErrMerge))

	_, err = Merge([]flatfile.Record{record("x", "site_id", value.Integer(1))}, sub, Options{})
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, "main", ke.Side)
}

func TestMergeKeyKindsMustAgree(t *testing.T) {
	main := []flatfile.Record{record("x", "patient_id", value.Integer(7))}
	sub := []flatfile.Record{record("i_x", "patient_id", value.Text("7"))}
	_, err := Merge(main, sub, Options{})
	assert.True(t, errors.Is(err, ErrMerge))
}

func TestMergeShortNames(t *testing.T) {
	main := []flatfile.Record{record("x", "studyname", value.Text("PBS"), "patientid", value.Integer(3), "formnumber", value.Null())}
	sub := []flatfile.Record{record("i_x", "studyname", value.Text("PBS"), "patientid", value.Integer(3), "score", value.Integer(9))}

	merged, err := Merge(main, sub, Options{ShortNames: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"studyname", "patientid", "formnumber", "score"}, merged[0].Fields.Keys())
	assert.True(t, merged[0].ShortNames)

	_, err = Merge(main, sub, Options{})
	assert.True(t, errors.Is(err, ErrMerge), "long names look for patient_id")
}

func TestMergeFormsUnknownForm(t *testing.T) {
	ds := parseFixture(t, "flat_form_communications.xml")
	_, err := MergeForms(ds, "communications", "i_missing", Options{})
	assert.True(t, errors.Is(err, ErrUnknownForm))
}

func TestDefaultSharedFields(t *testing.T) {
	assert.Equal(t, flatfile.MetadataNames(false), DefaultSharedFields(false))
	assert.Contains(t, DefaultSharedFields(true), "patientid")
	assert.Len(t, DefaultSharedFields(true), 10)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: communications
    main: communications
    sub: i_communications_details
  - name: sites
    main: sites
    sub: i_site_contacts
    short_names: true
    shared_fields: [studyname, sitename]
  - name: keep-all
    main: a
    sub: i_a
    shared_fields: []
`), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles.Profiles, 3)

	p, err := profiles.Lookup("communications")
	require.NoError(t, err)
	assert.Nil(t, p.Options().SharedFields)
	assert.False(t, p.Options().ShortNames)

	p, err = profiles.Lookup("sites")
	require.NoError(t, err)
	assert.Equal(t, Options{ShortNames: true, SharedFields: []string{"studyname", "sitename"}}, p.Options())

	p, err = profiles.Lookup("keep-all")
	require.NoError(t, err)
	assert.NotNil(t, p.SharedFields)
	assert.Empty(t, p.SharedFields)

	_, err = profiles.Lookup("nope")
	assert.True(t, errors.Is(err, ErrUnknownProfile))

	empty, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Empty(t, empty.Profiles)

	_, err = ParseProfiles([]byte("profiles:\n  - name: x\n    main: a\n"))
	assert.Error(t, err)
	_, err = ParseProfiles([]byte("profiles:\n  - {name: x, main: a, sub: b}\n  - {name: x, main: c, sub: d}\n"))
	assert.Error(t, err)
}

func record(form string, kv ...interface{}) flatfile.Record {
	fields := flatfile.NewFields()
	for i := 0; i+1 < len(kv); i += 2 {
		fields.Set(kv[i].(string), kv[i+1].(value.Value))
	}
	return flatfile.Record{FormName: form, Fields: fields}
}
