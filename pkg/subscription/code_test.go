package subscription

import (
	"regexp"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[0-9A-F]{12}$`)

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		seen[code] = true
	}
	assert.Len(t, seen, 500)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCDEF012345", NormalizeCode("  abcdef012345 "))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"30d", 30, false},
		{"1d", 1, false},
		{"7D", 7, false},
		{" 14 d ", 14, false},
		{"3650d", 3650, false},
		{"0d", 0, true},
		{"-5d", 0, true},
		{"30", 0, true},
		{"30h", 0, true},
		{"d", 0, true},
		{"1.5d", 0, true},
		{"abcd", 0, true},
		{"", 0, true},
		{"3651d", 0, true},
		{"99999999999999999999d", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDuration(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDuration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCodeFilter(t *testing.T) {
	assert.Equal(t, CodeFilterAvailable, ParseCodeFilter("available"))
	assert.Equal(t, CodeFilterRedeemed, ParseCodeFilter("redeemed"))
	assert.Equal(t, CodeFilterAll, ParseCodeFilter(""))
	assert.Equal(t, CodeFilterAll, ParseCodeFilter("whatever"))
}
