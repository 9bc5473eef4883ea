package flatfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequired(t *testing.T) {
	fields, err := ParseRequired([]string{"study_name", "patientid"})
	require.NoError(t, err)
	assert.Equal(t, []MetadataField{StudyName, PatientID}, fields)

	fields, err = ParseRequired(nil)
	require.NoError(t, err)
	assert.Empty(t, fields)

	_, err = ParseRequired([]string{"weight"})
	assert.Error(t, err)
}

func TestMetadataNames(t *testing.T) {
	assert.Equal(t, "site_id", MetadataNames(false)[2])
	assert.Equal(t, "formstate", MetadataNames(true)[9])
}
