package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type adjustBody struct {
	Quantity int             `json:"quantity" validate:"gt=0"`
	Mode     string          `json:"mode" validate:"required,stock_mode"`
	Amount   decimal.Decimal `json:"amount" validate:"money"`
	Window   string          `json:"window" validate:"omitempty,reminder_window"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0,"mode":"multiply","amount":"-1","window":"noon"}`))
	var body adjustBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "must be greater than 0", details["quantity"])
	assert.Equal(t, "must be add or subtract", details["mode"])
	assert.Equal(t, "must be a non-negative amount", details["amount"])
	assert.Contains(t, details, "window")
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"mode":"add","extra":true}`))
	var body adjustBody
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3,"mode":"subtract","amount":"12.50","window":"evening"}`))
	var body adjustBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 3, body.Quantity)
	assert.True(t, body.Amount.Equal(decimal.RequireFromString("12.5")))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30&bad=x", nil)
	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = ParseQueryInt(req, "missing", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, err = ParseQueryInt(req, "bad", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "limit", 20, 1, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseURLUUID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParseURLUUID(req, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("orderId", "9b2f8f52-7d55-4a4f-9a43-2d3c0b8f5a11")
	id, err := ParseURLUUID(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, "9b2f8f52-7d55-4a4f-9a43-2d3c0b8f5a11", id.String())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString("abc", 0))
	assert.Equal(t, "café", SanitizeString("café au lait", 4))
	assert.Equal(t, "ab\ncd", SanitizeString("a\x00b\ncd\t", 0))
}
