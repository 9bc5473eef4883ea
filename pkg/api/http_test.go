package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/merge"
	"github.com/synaptica-ai/prelude-parser/pkg/service"
	"github.com/synaptica-ai/prelude-parser/pkg/store"
)

func newServer(t *testing.T, maxBody int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewHandler(service.New(), maxBody)))
	t.Cleanup(srv.Close)
	return srv
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "flatfile", "testdata", name))
	require.NoError(t, err)
	return data
}

func post(t *testing.T, url string, body []byte) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/xml", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var payload map[string]interface{}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	}
	return resp, payload
}

func TestParseRecords(t *testing.T) {
	srv := newServer(t, 0)
	resp, payload := post(t, srv.URL+"/api/v1/flatfile/parse?source=comms.xml", fixture(t, "communications_with_details.xml"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	export := payload["export"].(map[string]interface{})
	assert.Equal(t, "comms.xml", export["source"])
	assert.Equal(t, float64(5), export["records"])

	data := payload["data"].(map[string]interface{})
	comms := data["communications"].([]interface{})
	require.Len(t, comms, 2)
	first := comms[0].(map[string]interface{})
	assert.Equal(t, "Yes", first["communications_made"])
	assert.Equal(t, float64(1681574905819), first["patient_id"])
}

func TestParseColumns(t *testing.T) {
	srv := newServer(t, 0)
	resp, payload := post(t, srv.URL+"/api/v1/flatfile/parse?shape=columns&names=pascal", fixture(t, "flat_form_demographics.xml"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := payload["data"].(map[string]interface{})
	demo := data["demographics"].(map[string]interface{})
	assert.Equal(t, []interface{}{"2020-04-15", "1990-01-02"}, demo["Dob"])
	assert.Equal(t, []interface{}{80.2, 72.5}, demo["Weight"])
}

func TestParseErrorsMapToStatus(t *testing.T) {
	srv := newServer(t, 0)

	resp, payload := post(t, srv.URL+"/api/v1/flatfile/parse", fixture(t, "truncated.xml"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, payload["error"], "error parsing xml")

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/parse", fixture(t, "not_xml.csv"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/parse?shape=rows", fixture(t, "flat_form_demographics.xml"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseBodyLimit(t *testing.T) {
	srv := newServer(t, 16)
	resp, _ := post(t, srv.URL+"/api/v1/flatfile/parse", fixture(t, "flat_form_demographics.xml"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestMergeEndpoint(t *testing.T) {
	srv := newServer(t, 0)
	body := fixture(t, "communications_with_details.xml")

	resp, payload := post(t, srv.URL+"/api/v1/flatfile/merge?main=communications&sub=i_communications_details", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), payload["count"])
	items := payload["items"].([]interface{})
	last := items[2].(map[string]interface{})
	assert.Equal(t, "No", last["communications_made"])
	assert.Equal(t, "Them", last["contacted_by"])

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/merge?main=communications&sub=visits", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/merge?main=i_communications_details&sub=communications", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/merge?main=communications", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/merge?main=communications&sub=i_communications_details&short_names=maybe", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/api/v1/flatfile/merge?main=communications&sub=i_communications_details&short_names=true", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, payload = post(t, srv.URL+"/api/v1/flatfile/merge?main=communications&sub=i_communications_details&short_names=false", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), payload["count"])
}

func TestExportsWithoutStore(t *testing.T) {
	srv := newServer(t, 0)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/flatfile/exports/%s", srv.URL, uuid.New()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/flatfile/exports/not-a-uuid/records")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newServer(t, 0)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", flatfile.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", store.ErrExportNotFound), http.StatusNotFound},
		{&flatfile.SchemaError{Reason: "missing"}, http.StatusUnprocessableEntity},
		{&merge.KeyError{Reason: "no matching main record"}, http.StatusConflict},
		{fmt.Errorf("x: %w", merge.ErrUnknownProfile), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, StatusFor(tc.err), tc.err.Error())
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{}, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a,,b "))
}
