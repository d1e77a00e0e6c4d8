package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kaerrors "github.com/Melonai/ka/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateShiftRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    uint64
		wantErr bool
	}{
		{name: "cursor", body: `{"cursor": 3}`, want: 3},
		{name: "zero cursor", body: `{"cursor": 0}`, want: 0},
		{name: "missing cursor", body: `{}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "negative cursor", body: `{"cursor": -1}`, wantErr: true},
		{name: "unknown field", body: `{"cursor": 1, "force": true}`, wantErr: true},
		{name: "malformed", body: `{"cursor":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/shift", strings.NewReader(tt.body))
			got, err := ValidateShiftRequest(req)
			if tt.wantErr {
				assert.True(t, kaerrors.IsType(err, kaerrors.ErrorTypeValidation))
				assert.Equal(t, http.StatusBadRequest, kaerrors.StatusCode(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got.Cursor)
			assert.Equal(t, tt.want, *got.Cursor)
		})
	}
}

func TestValidateShiftRequest_Details(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/shift", strings.NewReader(`{}`))
	_, err := ValidateShiftRequest(req)

	var e *kaerrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, map[string]string{"Cursor": "required"}, e.Details)
}

func TestValidateUpdateRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/update", nil)
	got, err := ValidateUpdateRequest(req)
	require.NoError(t, err)
	assert.Zero(t, got.Timestamp)

	req = httptest.NewRequest(http.MethodPost, "/api/update", strings.NewReader(`{"timestamp": 42}`))
	got, err = ValidateUpdateRequest(req)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.Timestamp)
}
