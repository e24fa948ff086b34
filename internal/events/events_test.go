package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airdash/internal/domain"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		name    string
		event   string
		raw     string
		want    Kind
		wantErr error
	}{
		{"approved", "flight_approved", `{"flight":{"id":42,"status":"ODOBREN"}}`, KindFlightApproved, nil},
		{"approved without flight", "flight_approved", `{}`, "", ErrInvalidPayload},
		{"cancelled null flight", "flight_cancelled", `{"flight":null}`, "", ErrInvalidPayload},
		{"purchase failed without reason", "purchase_failed", `{"user_id":7}`, KindPurchaseFailed, nil},
		{"purchase success empty", "purchase_success", ``, KindPurchaseSucceeded, nil},
		{"status by id", "flight_status_changed", `{"flight_id":5,"status":"U_TOKU"}`, KindFlightStatusChanged, nil},
		{"status bogus", "flight_status_changed", `{"flight_id":5,"status":"LANDED"}`, "", ErrInvalidPayload},
		{"status missing id", "flight_status_changed", `{"status":"U_TOKU"}`, "", ErrInvalidPayload},
		{"broken json", "flight_updated", `{"flight":`, "", ErrInvalidPayload},
		{"unknown", "seat_locked", `{}`, "", ErrUnknownEvent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := Decode(tc.event, []byte(tc.raw))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.Kind())
		})
	}
}

func TestDecode_Meta(t *testing.T) {
	ev, err := Decode("flight_approved", []byte(`{"user_id":9,"flight":{"id":1,"azuriran":"2025-01-02T10:00:00"}}`))
	require.NoError(t, err)

	meta := ev.Metadata()
	assert.Equal(t, int64(9), meta.UserID)
	ts, _ := domain.ParseTimestamp("2025-01-02T10:00:00")
	assert.Equal(t, ts.UnixNano(), meta.Version)

	ev, err = Decode("flight_approved", []byte(`{"version":3,"flight":{"id":1,"azuriran":"2025-01-02T10:00:00"}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), ev.Metadata().Version)
}

func TestDecode_StatusChangedFullFlight(t *testing.T) {
	ev, err := Decode("flight_status_changed", []byte(`{"flight":{"id":8,"naziv":"BEG-CDG","status":"ZAVRSEN"}}`))
	require.NoError(t, err)

	sc := ev.(FlightStatusChanged)
	require.NotNil(t, sc.Flight)
	assert.Equal(t, int64(8), sc.FlightID)
	assert.Equal(t, domain.FlightStatusFinished, sc.Status)
	assert.Equal(t, int64(8), FlightID(ev))
}

func TestVocabulary(t *testing.T) {
	assert.Contains(t, Vocabulary(NamespaceUser), KindPurchaseFailed)
	assert.Contains(t, Vocabulary(NamespaceAdmin), KindNewFlightPending)
	assert.Empty(t, Vocabulary("/nowhere"))
}
