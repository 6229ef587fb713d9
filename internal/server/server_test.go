package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/reperage/internal/models"
	"github.com/tOgg1/reperage/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	s, err := store.OpenInMemory(context.Background())
	require.NoError(t, err)
	srv := httptest.NewServer(New(s).Router())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, s.Close())
	})
	return srv, s
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestChatRoutesEndToEnd(t *testing.T) {
	srv, st := newTestServer(t)
	report, err := st.CreateReport(context.Background(), "Nice port", "Lea")
	require.NoError(t, err)
	base := srv.URL + "/api"
	reportURL := base + "/reperages/" + itoa(report.ID)

	resp := doJSON(t, http.MethodPost, reportURL+"/messages", map[string]string{
		"auteur_type": "production",
		"auteur_nom":  "Prod",
		"contenu":     "need photos of the gate",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, models.AuthorProduction, created.AuthorType)

	resp = doJSON(t, http.MethodGet, reportURL+"/messages/unread-count?for=fixer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count models.UnreadCount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	require.Equal(t, 1, count.Count)

	resp = doJSON(t, http.MethodPut, base+"/messages/"+itoa(created.ID)+"/read", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, reportURL+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Read)
}

func TestChatRoutesErrors(t *testing.T) {
	srv, st := newTestServer(t)
	report, err := st.CreateReport(context.Background(), "", "")
	require.NoError(t, err)
	base := srv.URL + "/api"

	resp := doJSON(t, http.MethodGet, base+"/reperages/999/messages", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/reperages/"+itoa(report.ID)+"/messages", map[string]string{"contenu": "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, base+"/messages/4242/read", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/reperages/"+itoa(report.ID)+"/messages/unread-count?for=director", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/reperages/abc/messages", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAndGetReport(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reperages", map[string]string{"titre": "Porto", "fixer_nom": "Ines"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var report models.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Positive(t, report.ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reperages/"+itoa(report.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
