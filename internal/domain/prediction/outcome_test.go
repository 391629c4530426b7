package prediction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSucceededRoundsToTwoDecimals(t *testing.T) {
	require.Equal(t, 17.46, Succeeded(17.456).Prediction)
	require.Equal(t, 17.45, Succeeded(17.4549).Prediction)
	require.Equal(t, -2.5, Succeeded(-2.499).Prediction)
	require.Equal(t, "17.40", Succeeded(17.4).Display())
}

func TestOutcomeJSON(t *testing.T) {
	data, err := json.Marshal(Succeeded(17.456))
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"success","prediction":17.46,"display":"17.46"}`, string(data))

	data, err = json.Marshal(NetworkFailed("Could not connect to the prediction service."))
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"network_error","message":"Could not connect to the prediction service."}`, string(data))

	data, err = json.Marshal(Idle())
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"idle"}`, string(data))
}

func TestStatusTerminal(t *testing.T) {
	require.False(t, StatusIdle.Terminal())
	require.False(t, StatusSubmitting.Terminal())
	for _, s := range []Status{StatusValidationError, StatusNetworkError, StatusAPIError, StatusSuccess} {
		require.True(t, s.Terminal(), s)
	}
	require.True(t, APIFailed("x").IsError())
	require.False(t, Succeeded(1).IsError())
}
