package validate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginReq struct {
	Username string  `json:"username" validate:"notblank"`
	Password string  `json:"password" validate:"required,min=4"`
	Weight   float64 `json:"weight" validate:"omitempty,gt=0"`
}

func TestDecode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"sole","password":"sun26"}`))
	var in loginReq
	require.NoError(t, Decode(req, &in))
	assert.Equal(t, "sole", in.Username)
}

func TestDecode_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
	var in loginReq
	assert.ErrorIs(t, Decode(req, &in), ErrBadJSON)
}

func TestDecode_ValidationMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"  ","password":"ab","weight":-1}`))
	var in loginReq
	err := Decode(req, &in)
	require.Error(t, err)

	msg := Message(err)
	assert.Contains(t, msg, "username: username cannot be blank")
	assert.Contains(t, msg, "password:")
	assert.Contains(t, msg, "weight:")

	rr := httptest.NewRecorder()
	WriteError(rr, err)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
