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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "canvasstudio/internal/log"
)

// HTTPClient talks JSON over HTTP to the generation service, authenticating with a
// bearer API key.
type HTTPClient struct {
	BaseURL string
	Key     string
	client  *http.Client
	log     *slog.Logger
}

var _ Service = (*HTTPClient)(nil)

// NewHTTPClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewHTTPClient(baseURL, key string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Key:     key,
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("aigen"),
	}
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.Key)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", ErrGeneration, method, u.Path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request", slog.String("method", method), slog.String("path", u.Path),
		slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, u.Path, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrGeneration, u.Path, err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	var eb errorBody
	msg := resp.Status
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(b, &eb) == nil && eb.Error.Message != "" {
		msg = eb.Error.Message
	}
	var kind error
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		kind = ErrQuota
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrCredentialExpired
	default:
		kind = ErrGeneration
	}
	return fmt.Errorf("%w: %s %s: %s", kind, method, path, msg)
}

func (c *HTTPClient) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	var out struct {
		Image Image `json:"image"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/images:generate", req, &out); err != nil {
		return Image{}, err
	}
	if out.Image.Src == "" {
		return Image{}, fmt.Errorf("%w: empty image in response", ErrGeneration)
	}
	return out.Image, nil
}

func (c *HTTPClient) GenerateVideo(ctx context.Context, req VideoRequest) (Job, error) {
	if req.ContinuationOf != "" && len(req.References) > 0 {
		return nil, errors.New("generate video: continuation and references are exclusive")
	}
	var out struct {
		Job struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/videos:generate", req, &out); err != nil {
		return nil, err
	}
	if out.Job.ID == "" {
		return nil, fmt.Errorf("%w: missing job id", ErrGeneration)
	}
	return &httpJob{c: c, id: out.Job.ID}, nil
}

type httpJob struct {
	c  *HTTPClient
	id string
}

func (j *httpJob) ID() string { return j.id }

// Poll fetches the job state. A job that finished with an error yields Done with Err set;
// a transport failure is returned as the error.
func (j *httpJob) Poll(ctx context.Context) (PollResult, error) {
	var out struct {
		Done  bool   `json:"done"`
		Video *Video `json:"video"`
		Error string `json:"error"`
	}
	if err := j.c.doJSON(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(j.id), nil, &out); err != nil {
		return PollResult{}, err
	}
	res := PollResult{Done: out.Done, Video: out.Video}
	if out.Error != "" {
		res.Done, res.Err = true, fmt.Errorf("%w: %s", ErrGeneration, out.Error)
	} else if out.Done && (out.Video == nil || out.Video.Src == "") {
		res.Err = fmt.Errorf("%w: job finished without video", ErrGeneration)
	}
	return res, nil
}

func (c *HTTPClient) text(ctx context.Context, path string, body any) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *HTTPClient) DescribeImage(ctx context.Context, image string) (string, error) {
	return c.text(ctx, "/v1/images:describe", map[string]string{"image": image})
}

func (c *HTTPClient) DetectObjects(ctx context.Context, image string) ([]Detection, error) {
	var out struct {
		Objects []Detection `json:"objects"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/images:detect", map[string]string{"image": image}, &out); err != nil {
		return nil, err
	}
	return out.Objects, nil
}

func (c *HTTPClient) RefinePrompt(ctx context.Context, text string) (string, error) {
	return c.text(ctx, "/v1/prompts:refine", map[string]string{"text": text})
}

func (c *HTTPClient) Chat(ctx context.Context, history []ChatMessage, msg ChatMessage) (string, error) {
	return c.text(ctx, "/v1/chat", map[string]any{"history": history, "message": msg})
}
