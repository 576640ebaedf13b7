package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func newPolicy(t *testing.T, fn roundTripperFunc) *Policy {
	t.Helper()
	p, err := NewWithHTTPClient(Config{
		BaseURL:   "http://policy/",
		APIKey:    "k",
		Timeout:   time.Second,
		InputSize: 3,
	}, &http.Client{Transport: fn})
	require.NoError(t, err)
	return p
}

func TestPredict(t *testing.T) {
	p := newPolicy(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/predict", req.URL.Path)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "Bearer k", req.Header.Get("Authorization"))

		var in predictRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, in.Observation)

		return jsonResponse(http.StatusOK, predictResponse{Action: []int{3, 2, 1, 0, 2, 1}}), nil
	})

	got, err := p.Predict(context.Background(), []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionIndices{3, 2, 1, 0, 2, 1}, got)
}

func TestPredictErrors(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripperFunc
		want error
	}{
		{
			name: "transport failure",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			want: policy.ErrUnavailable,
		},
		{
			name: "server error",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusServiceUnavailable, map[string]string{"error": "loading"}), nil
			},
			want: policy.ErrUnavailable,
		},
		{
			name: "wrong head count",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, predictResponse{Action: []int{1, 2}}), nil
			},
			want: policy.ErrInvalidAction,
		},
		{
			name: "garbage body",
			rt: func(*http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader([]byte("nope")))}, nil
			},
			want: policy.ErrInvalidAction,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPolicy(t, tc.rt)
			_, err := p.Predict(context.Background(), []float64{0, 0, 0})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPredictClientErrorIsNotTransient(t *testing.T) {
	p := newPolicy(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "bad"}), nil
	})
	_, err := p.Predict(context.Background(), []float64{0, 0, 0})
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
	assert.NotErrorIs(t, err, policy.ErrUnavailable)
}

func TestPredictInputSize(t *testing.T) {
	p := newPolicy(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("request should not be sent")
		return nil, nil
	})
	_, err := p.Predict(context.Background(), []float64{1})
	assert.ErrorIs(t, err, policy.ErrInputSize)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
