package devserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteDepositDevGatedByEnvironment(t *testing.T) {
	store := NewStore()
	handler := NewHandler(store, "", "https://stub/pay", false, nil)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/deposits/providers/keepz?to_entity_id=1&amount=5&currency=GEL", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/deposits/1/complete-dev", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "force-complete must be rejected outside development")
}

func TestCreateTransactionValidation(t *testing.T) {
	handler := NewHandler(NewStore(), "", "", true, nil)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)

	post := func(body string) int {
		resp, err := http.Post(srv.URL+"/api/transactions", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, post("{not json"))
	assert.Equal(t, http.StatusUnprocessableEntity,
		post(`{"from_entity_id":1,"to_entity_id":2,"amount":"-1","currency":"GEL"}`))
	assert.Equal(t, http.StatusUnprocessableEntity,
		post(`{"from_entity_id":1,"to_entity_id":1,"amount":"5","currency":"GEL"}`))
	assert.Equal(t, http.StatusCreated,
		post(`{"from_entity_id":1,"to_entity_id":2,"amount":"5","currency":"GEL","status":"draft"}`))
}
