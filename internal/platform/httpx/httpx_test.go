package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get order: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: gstin", ErrDuplicate), http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: quantity", ErrValidation), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, tc.status, StatusOf(tc.err))
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("pq: password authentication failed"))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Detail)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
}

type createTruck struct {
	LicensePlate string `json:"license_plate" validate:"required"`
	Capacity     int    `json:"capacity" validate:"gt=0"`
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"license_plate":"KA01","capacity":0}`))
	var in createTruck
	err := DecodeAndValidate(req, &in)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "capacity failed gt")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"license_plate":"KA01","capacity":5,"colour":"red"}`))
	require.ErrorIs(t, DecodeAndValidate(req, &in), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"license_plate":"KA01","capacity":5}`))
	require.NoError(t, DecodeAndValidate(req, &in))
	assert.Equal(t, 5, in.Capacity)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?company=7&page=x", nil)

	id, err := RequireQueryInt64(req, "company")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = RequireQueryInt64(req, "retailer")
	require.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 1, QueryInt(req, "page", 1))
}

func TestURLParamInt64(t *testing.T) {
	r := chi.NewRouter()
	var got int64
	var gotErr error
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = URLParamInt64(r, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/-1", nil))
	require.ErrorIs(t, gotErr, ErrValidation)
}
