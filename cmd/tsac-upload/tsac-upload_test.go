package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotimescales/formats/tsa"
)

func TestPutAnalysis(t *testing.T) {
	a, err := tsa.New("tuesday-2015", 0, map[string]int{"lag": 1})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/analysis/processed", r.URL.Path)
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body processedAnalysis
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data, err := base64.StdEncoding.DecodeString(body.RawData)
		require.NoError(t, err)
		got, err := tsa.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, "tuesday-2015", body.Name)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": got.Id.String()})
	}))
	defer srv.Close()

	id, err := putAnalysis(srv.Client(), srv.URL+"/", "secret", a)
	require.NoError(t, err)
	assert.Equal(t, a.Id.String(), id)

	_, err = putAnalysis(srv.Client(), srv.URL, "wrong", a)
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
