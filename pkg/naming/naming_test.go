package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	cases := map[string]string{
		"studyName":                "study_name",
		"siteId":                   "site_id",
		"communicationsMade":       "communications_made",
		"i_communications_details": "i_communications_details",
		"studyname":                "studyname",
		"HTTPServer":               "http_server",
		"dose2Amount":              "dose2_amount",
		"patient-ID":               "patient_id",
		"communications.form.name": "communications_form_name",
		"__leading__trailing__":    "leading_trailing",
		"FormTitle":                "form_title",
		"":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Snake(in), "Snake(%q)", in)
	}
}

func TestPascal(t *testing.T) {
	assert.Equal(t, "ICommunicationsDetails", Pascal("i_communications_details"))
	assert.Equal(t, "Communications", Pascal("communications"))
	assert.Equal(t, "StudyName", Pascal("studyName"))
	assert.Equal(t, "", Pascal("___"))
}

func TestConventionApply(t *testing.T) {
	assert.Equal(t, "studyName", Keep.Apply("studyName"))
	assert.Equal(t, "study_name", SnakeCase.Apply("studyName"))
	assert.Equal(t, "StudyName", PascalCase.Apply("study_name"))

	c, ok := ParseConvention("PASCAL")
	assert.True(t, ok)
	assert.Equal(t, PascalCase, c)

	assert.Equal(t, "pascal", c.String())
	assert.Equal(t, "snake", SnakeCase.String())

	_, ok = ParseConvention("kebab")
	assert.False(t, ok)
}
