package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/prelude-parser/pkg/common/config"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/merge"
)

func TestBootstrapAppliesParserSettings(t *testing.T) {
	svc, cleanup, err := Bootstrap(&config.Config{
		ParserShortNames:     true,
		ParserRequiredFields: []string{"site_name", "study_name"},
	}, "test")
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, svc.short)
	assert.Equal(t, []string{"site_name", "study_name"}, svc.required)

	var keyErr *merge.KeyError
	_, err = svc.Merge(context.Background(), "upload.xml", readFixture(t), MergeRequest{Main: "communications", Sub: "i_communications_details"})
	require.ErrorAs(t, err, &keyErr)

	_, err = svc.ParseBytes(context.Background(), "null.xml",
		[]byte(`<export><demographics><studyName>PBS</studyName><siteName></siteName></demographics></export>`))
	assert.ErrorIs(t, err, flatfile.ErrParsing)
}

func TestBootstrapRejectsUnknownRequiredField(t *testing.T) {
	_, _, err := Bootstrap(&config.Config{ParserRequiredFields: []string{"visit_date"}}, "test")
	assert.Error(t, err)
}
