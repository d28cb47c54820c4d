package webapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anacrolix/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviesite/dmc/control"
	"github.com/moviesite/dmc/upnptest"
)

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPlayRejectsBadJSON(t *testing.T) {
	router := NewRouter(control.New(&control.Config{}), log.Default)
	for _, body := range []string{"", "{", `{"renderer": "vlc"}`} {
		rec := post(t, router, "/api/movie/play", body)
		assert.Equal(t, http.StatusOK, rec.Code)

		var result control.PlayResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, control.PlayResult{Protocol: "", Result: "no json"}, result, body)
	}
}

func TestPlayReportsOutcomeInBody(t *testing.T) {
	router := NewRouter(control.New(&control.Config{}), log.Default)
	rec := post(t, router, "/api/movie/play", `{"id": 1, "file": "x:\\Movies\\Alien.mkv"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result control.PlayResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "volume not configured", result.Result)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestBrowseUnknownServer(t *testing.T) {
	router := NewRouter(control.New(&control.Config{}), log.Default)
	rec := post(t, router, "/api/dlna/browse", `{"mediaserver": "v"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Code   int    `json:"code"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Code)
	assert.Equal(t, "not configured", resp.Reason)
}

func TestBrowseListsTree(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{
		ID: "0", Container: true,
		Children: []*upnptest.Object{
			{ID: "11", Title: "Alien", URI: "http://media/11.mkv"},
		},
	})
	defer fake.Close()

	ctrl := control.New(&control.Config{
		Volumes: map[string]control.VolumeTarget{"v": {DeviceURL: fake.DescURL()}},
	})
	rec := post(t, NewRouter(ctrl, log.Default), "/api/dlna/browse", `{"mediaserver": "v"}`)

	var resp struct {
		Code   int `json:"code"`
		Result []struct {
			Path  string `json:"path"`
			Files []struct {
				Title string `json:"title"`
				URI   string `json:"uri"`
			} `json:"files"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	require.Len(t, resp.Result, 1)
	require.Len(t, resp.Result[0].Files, 1)
	assert.Equal(t, "Alien", resp.Result[0].Files[0].Title)
	assert.Equal(t, "http://media/11.mkv", resp.Result[0].Files[0].URI)
}

func TestCheckReportsMissing(t *testing.T) {
	fake := upnptest.NewMediaServer(&upnptest.Object{ID: "0", Container: true})
	defer fake.Close()

	ctrl := control.New(&control.Config{
		Volumes: map[string]control.VolumeTarget{"v": {DeviceURL: fake.DescURL()}},
	})
	rec := post(t, NewRouter(ctrl, log.Default), "/api/dlna/check",
		`{"mediaserver": "v", "files": [{"id": 1, "title": "Alien", "file": "v:\\Movies\\Alien.mkv"}]}`)

	var resp struct {
		Code   int                  `json:"code"`
		Result []control.CheckEntry `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, control.NotFoundURI, resp.Result[0].URI)
}
