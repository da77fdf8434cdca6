package network

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHardwareAddr(t *testing.T) {
	tests := map[string]struct {
		input    string
		want     string
		wantFail bool
	}{
		"colons lower":      {input: "c4:34:6b:ba:79:6c", want: "C4:34:6B:BA:79:6C"},
		"hyphens":           {input: "C4-34-6B-BA-79-6C", want: "C4:34:6B:BA:79:6C"},
		"cisco dots":        {input: "c434.6bba.796c", want: "C4:34:6B:BA:79:6C"},
		"no separators":     {input: "c4346bba796c", want: "C4:34:6B:BA:79:6C"},
		"mixed separators":  {input: "c4:34-6b.ba:79-6c", want: "C4:34:6B:BA:79:6C"},
		"already canonical": {input: "C4:34:6B:BA:79:6C", want: "C4:34:6B:BA:79:6C"},
		"surrounding space": {input: "  52:54:00:12:34:56 ", want: "52:54:00:12:34:56"},
		"too short":         {input: "C4:34:6B:BA:79", wantFail: true},
		"too long":          {input: "C4:34:6B:BA:79:6C:00", wantFail: true},
		"non hex":           {input: "G4:34:6B:BA:79:6C", wantFail: true},
		"empty":             {input: "", wantFail: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeHardwareAddr(test.input)
			if test.wantFail {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)

			again, err := NormalizeHardwareAddr(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestOUI(t *testing.T) {
	oui, err := OUI("52-54-00-12-34-56")
	require.NoError(t, err)
	assert.Equal(t, "525400", oui)

	_, err = OUI("52:54:00")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNormalizeOUI(t *testing.T) {
	for input, want := range map[string]string{
		"52:54:00":          "525400",
		"525400":            "525400",
		"00-0c-29":          "000C29",
		"00:50:56:aa:bb:cc": "005056",
	} {
		got, err := NormalizeOUI(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := NormalizeOUI("52:54")
	assert.Error(t, err)
	_, err = NormalizeOUI("ZZ:54:00")
	assert.Error(t, err)
}

func TestIsZeroHardwareAddr(t *testing.T) {
	assert.True(t, IsZeroHardwareAddr("00:00:00:00:00:00"))
	assert.False(t, IsZeroHardwareAddr("00:00:00:00:00:01"))
	assert.False(t, IsZeroHardwareAddr(""))
}
