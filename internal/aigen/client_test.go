/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package aigen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateImageSendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/images:generate", r.URL.Path)
		var req ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a cat", req.Prompt)
		assert.Nil(t, req.References)
		_, _ = w.Write([]byte(`{"image":{"src":"data:image/png;base64,AA==","width":8,"height":8}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "k", time.Second)
	img, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat", AspectRatio: Square})
	require.NoError(t, err)
	assert.Equal(t, 8, img.Width)
	assert.Equal(t, "data:image/png;base64,AA==", img.Src)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
		kind   FailureKind
	}{
		{http.StatusTooManyRequests, ErrQuota, FailureQuota},
		{http.StatusServiceUnavailable, ErrQuota, FailureQuota},
		{http.StatusUnauthorized, ErrCredentialExpired, FailureCredential},
		{http.StatusForbidden, ErrCredentialExpired, FailureCredential},
		{http.StatusInternalServerError, ErrGeneration, FailureGeneric},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		_, err := NewHTTPClient(srv.URL, "", time.Second).RefinePrompt(context.Background(), "x")
		srv.Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.Equal(t, tc.kind, Classify(err))
		assert.Contains(t, err.Error(), "nope")
	}
	assert.True(t, Retryable(ErrQuota))
	assert.False(t, Retryable(ErrCredentialExpired))
	assert.Equal(t, FailureCanceled, Classify(context.Canceled))
	assert.Empty(t, UserMessage(nil))
}

func TestVideoJobPolling(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/videos:generate", func(w http.ResponseWriter, r *http.Request) {
		var req VideoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "h-1", req.ContinuationOf)
		_, _ = w.Write([]byte(`{"job":{"id":"job-7"}}`))
	})
	mux.HandleFunc("/v1/jobs/job-7", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 2 {
			_, _ = w.Write([]byte(`{"done":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"done":true,"video":{"src":"https://cdn/v.mp4","handle":"h-2"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "k", time.Second)
	job, err := c.GenerateVideo(context.Background(), VideoRequest{Prompt: "more", ContinuationOf: "h-1"})
	require.NoError(t, err)
	assert.Equal(t, "job-7", job.ID())

	res, err := job.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Done)

	res, err = job.Poll(context.Background())
	require.NoError(t, err)
	require.True(t, res.Done)
	require.NoError(t, res.Err)
	assert.Equal(t, "h-2", res.Video.Handle)
}

func TestVideoJobFailureIsDoneWithError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"done":false,"error":"safety filter"}`))
	}))
	defer srv.Close()
	job := &httpJob{c: NewHTTPClient(srv.URL, "", time.Second), id: "j"}
	res, err := job.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.True(t, errors.Is(res.Err, ErrGeneration))
}

func TestContinuationExcludesReferences(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "", time.Second)
	_, err := c.GenerateVideo(context.Background(), VideoRequest{ContinuationOf: "h", References: []string{"data:x"}})
	require.Error(t, err)
}
