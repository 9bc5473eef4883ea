package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/prelude-parser/pkg/common/models"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

func TestRecordModelsKeepOrderAndValues(t *testing.T) {
	ds, err := flatfile.ParseFile(filepath.Join("..", "flatfile", "testdata", "communications_with_details.xml"))
	require.NoError(t, err)

	exportID := uuid.New()
	rows, err := toRecordModels(exportID, ds)
	require.NoError(t, err)
	require.Len(t, rows, ds.Len())

	for i, row := range rows {
		assert.Equal(t, exportID, row.ExportID)
		assert.Equal(t, i, row.Position)
	}

	last := rows[len(rows)-1]
	assert.Equal(t, "i_communications_details", last.FormName)
	assert.True(t, last.Repeating)

	all := ds.All()
	for i, row := range rows {
		rec, err := fromRecordModel(row)
		require.NoError(t, err)
		assert.Equal(t, all[i].FormName, rec.FormName)
		assert.Equal(t, all[i].Iteration, rec.Iteration)
		assert.Equal(t, all[i].Fields.Keys(), rec.Fields.Keys())
		for name, v := range all[i].Fields.All() {
			assert.True(t, v.Equal(rec.Get(name)), "field %s", name)
		}
	}
}

func TestExportModelRoundTrip(t *testing.T) {
	summary := models.ExportSummary{
		ID:       uuid.New(),
		Source:   "upload.xml",
		Checksum: "abc",
		Records:  3,
		Forms: []models.FormSummary{
			{Name: "communications", TypeName: "Communications", Records: 1},
			{Name: "i_communications_details", TypeName: "ICommunicationsDetails", Records: 2},
		},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	row, err := toExportModel(summary)
	require.NoError(t, err)
	assert.Equal(t, 2, row.FormCount)
	assert.Equal(t, "flatfile_exports", row.TableName())

	back := fromExportModel(*row)
	assert.True(t, back.Stored)
	assert.Equal(t, summary.Forms, back.Forms)
	assert.Equal(t, summary.CreatedAt, back.CreatedAt)
}

func TestExportModelDefaultsCreatedAt(t *testing.T) {
	row, err := toExportModel(models.ExportSummary{ID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, row.CreatedAt.IsZero())
}

func TestFromRecordModelRejectsBadFields(t *testing.T) {
	_, err := fromRecordModel(recordModel{Fields: []byte(`[{"name":"x","kind":"nope"}]`)})
	require.Error(t, err)

	rec, err := fromRecordModel(recordModel{FormName: "f", Fields: []byte(`[{"name":"x","kind":"integer","value":"4"}]`)})
	require.NoError(t, err)
	assert.Equal(t, value.Integer(4), rec.Get("x"))
}
