package invoice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tour/internal/common"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusUnpaid, true},
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusPaid, false},
		{StatusUnpaid, StatusSent, true},
		{StatusUnpaid, StatusPaid, true},
		{StatusUnpaid, StatusDraft, false},
		{StatusSent, StatusSent, true},
		{StatusSent, StatusPaid, true},
		{StatusSent, StatusUnpaid, false},
		{StatusPaid, StatusSent, false},
		{StatusPaid, StatusUnpaid, false},
		{StatusPaid, StatusDraft, false},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			require.Equal(t, tc.to, got)
			continue
		}
		require.Error(t, err, "%s -> %s", tc.from, tc.to)
		require.True(t, errors.Is(err, ErrInvalidTransition))
		require.True(t, common.HasCode(err, common.CodeConflict))
		require.Equal(t, tc.from, got)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" PAID ")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, s)

	_, err = ParseStatus("void")
	require.True(t, common.HasCode(err, common.CodeValidation))
}

func TestInitialStatus(t *testing.T) {
	s, err := InitialStatus("")
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, s)

	s, err = InitialStatus("draft")
	require.NoError(t, err)
	require.Equal(t, StatusDraft, s)

	_, err = InitialStatus("paid")
	require.True(t, common.HasCode(err, common.CodeValidation))
}
