package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindProgressRequest(t *testing.T, body string) (updateProgressRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/games/progress/update", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req updateProgressRequest
	err := c.ShouldBindJSON(&req)
	return req, err
}

func TestUpdateProgressRequest_CompetitionIDByTitle(t *testing.T) {
	req, err := bindProgressRequest(t, `{"competition_id": "Game Name", "delta": 10}`)
	require.NoError(t, err)

	ref, ok := competitionRef(req.CompetitionID)
	require.True(t, ok)
	assert.Equal(t, "Game Name", ref)

	delta, err := req.Delta.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(10), delta)
}

func TestUpdateProgressRequest_CompetitionIDByNumber(t *testing.T) {
	req, err := bindProgressRequest(t, `{"competition_id": 7, "delta": -3}`)
	require.NoError(t, err)

	ref, ok := competitionRef(req.CompetitionID)
	require.True(t, ok)
	assert.Equal(t, "7", ref)
}

func TestUpdateProgressRequest_CompetitionIDByDigitString(t *testing.T) {
	req, err := bindProgressRequest(t, `{"competition_id": "3", "delta": 1}`)
	require.NoError(t, err)

	ref, ok := competitionRef(req.CompetitionID)
	require.True(t, ok)
	assert.Equal(t, "3", ref)
}

func TestCompetitionRef_Invalid(t *testing.T) {
	_, ok := competitionRef(nil)
	assert.False(t, ok)

	_, ok = competitionRef(json.RawMessage(`""`))
	assert.False(t, ok)

	_, ok = competitionRef(json.RawMessage(`{"id": 1}`))
	assert.False(t, ok)
}
