package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ginContext(t *testing.T, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", strings.NewReader(body))
	return c
}

func TestConditionMatchSchema(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		var evt conditionMatchEvent
		err := decodeValidated(ginContext(t, `{"signal_id":1,"instrument_code":"005930","match_kind":"entered"}`), compiledConditionMatch, &evt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), evt.SignalID)
		assert.Equal(t, "005930", evt.InstrumentCode)
		assert.Equal(t, "entered", evt.MatchKind)
	})

	t.Run("missing field", func(t *testing.T) {
		var evt conditionMatchEvent
		err := decodeValidated(ginContext(t, `{"signal_id":1,"match_kind":"entered"}`), compiledConditionMatch, &evt)
		assert.Error(t, err)
	})

	t.Run("unknown match kind", func(t *testing.T) {
		var evt conditionMatchEvent
		err := decodeValidated(ginContext(t, `{"signal_id":1,"instrument_code":"005930","match_kind":"bounced"}`), compiledConditionMatch, &evt)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		var evt conditionMatchEvent
		err := decodeValidated(ginContext(t, `{"signal_id":`), compiledConditionMatch, &evt)
		assert.Error(t, err)
	})
}

func TestFillEventSchema(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		var evt fillEvent
		err := decodeValidated(ginContext(t, `{"order_reference":"ORD-1","filled_quantity":5,"filled_price":70000}`), compiledFillEvent, &evt)
		require.NoError(t, err)
		assert.Equal(t, "ORD-1", evt.OrderReference)
		assert.Equal(t, int64(5), evt.FilledQuantity)
		assert.Equal(t, int64(70_000), evt.FilledPrice)
	})

	t.Run("zero quantity", func(t *testing.T) {
		var evt fillEvent
		err := decodeValidated(ginContext(t, `{"order_reference":"ORD-1","filled_quantity":0,"filled_price":70000}`), compiledFillEvent, &evt)
		assert.Error(t, err)
	})

	t.Run("fractional quantity", func(t *testing.T) {
		var evt fillEvent
		err := decodeValidated(ginContext(t, `{"order_reference":"ORD-1","filled_quantity":1.5,"filled_price":70000}`), compiledFillEvent, &evt)
		assert.Error(t, err)
	})

	t.Run("empty reference", func(t *testing.T) {
		var evt fillEvent
		err := decodeValidated(ginContext(t, `{"order_reference":"","filled_quantity":1,"filled_price":70000}`), compiledFillEvent, &evt)
		assert.Error(t, err)
	})
}
