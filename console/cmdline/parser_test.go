package cmdline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input   string
		name    string
		args    []string
		comment string
	}{
		{"HOME", "HOME", nil, ""},
		{"home", "HOME", nil, ""},
		{"  SetTarget   3200  ", "SETTARGET", []string{"3200"}, ""},
		{"set\t-5", "SET", []string{"-5"}, ""},
		{"STATUS ; periodic poll", "STATUS", nil, "; periodic poll"},
		{"POS;x", "POS", nil, ";x"},
		{"rpm 120 extra", "RPM", []string{"120", "extra"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd := parser.ParseLine(tt.input)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.name, cmd.Name)
			assert.Equal(t, tt.args, cmd.Args)
			assert.Equal(t, tt.comment, cmd.Comment)
			assert.False(t, cmd.IsComment())
		})
	}
}

func TestParseBlankAndComments(t *testing.T) {
	parser := NewParser()

	assert.Nil(t, parser.ParseLine(""))
	assert.Nil(t, parser.ParseLine("   \t "))

	cmd := parser.ParseLine("# calibration run")
	require.NotNil(t, cmd)
	assert.True(t, cmd.IsComment())
	assert.Equal(t, "# calibration run", cmd.Comment)
}

func TestParserReuseDoesNotAlias(t *testing.T) {
	parser := NewParser()
	first := parser.ParseLine("SET 100")
	parser.ParseLine("SET 200")
	assert.Equal(t, "100", first.Arg(0))
}

func TestIntArg(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input string
		want  int32
		err   error
	}{
		{"SET 3200", 3200, nil},
		{"SET -1", -1, nil},
		{"SET 50000", 50000, nil},
		{"SET", 0, ErrMissingArgument},
		{"SET abc", 0, ErrInvalidArgument},
		{"SET 12.5", 0, ErrInvalidArgument},
		{"SET 99999999999", 0, ErrInvalidArgument},
	}

	for _, tt := range tests {
		got, err := parser.ParseLine(tt.input).IntArg(0)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestUintArg(t *testing.T) {
	parser := NewParser()

	n, err := parser.ParseLine("RPM 120").UintArg(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(120), n)

	_, err = parser.ParseLine("RPM -3").UintArg(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = parser.ParseLine("RPM").UintArg(0)
	assert.ErrorIs(t, err, ErrMissingArgument)
}
