package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
	}{
		{"150.00", 15000},
		{"100", 10000},
		{"99.9", 9990},
		{"0.01", 1},
		{"0", 0},
		{".50", 50},
		{"-12.34", -1234},
		{" 45.60 ", 4560},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.want, got, "Parse(%q)", tc.in)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "12.3.4", "1,50"} {
		_, err := Parse(in)
		assert.Error(t, err, "Parse(%q)", in)
	}
}

func TestParseRejectsMisplacedSigns(t *testing.T) {
	// A sign is only legal as the first character; anything later must
	// not survive into the integer parse and flip the result.
	for _, in := range []string{"--5", "+-5", "-+5", "9.-1", "5-", "1.2-", "-", "+", "-."} {
		_, err := Parse(in)
		assert.Error(t, err, "Parse(%q)", in)
	}

	got, err := Parse("+12.50")
	require.NoError(t, err)
	assert.Equal(t, Cents(1250), got)
}

func TestString(t *testing.T) {
	assert.Equal(t, "150.00", Cents(15000).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "0.00", Cents(0).String())
	assert.Equal(t, "-12.34", Cents(-1234).String())
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Cents(15000))
	require.NoError(t, err)
	assert.Equal(t, `"150.00"`, string(data))

	var c Cents
	require.NoError(t, json.Unmarshal([]byte(`"150.00"`), &c))
	assert.Equal(t, Cents(15000), c)

	// Numeric form from older clients.
	require.NoError(t, json.Unmarshal([]byte(`150.5`), &c))
	assert.Equal(t, Cents(15050), c)

	require.NoError(t, json.Unmarshal([]byte(`150`), &c))
	assert.Equal(t, Cents(15000), c)
}

func TestSumIsExact(t *testing.T) {
	// 0.10 + 0.20 style drift cannot happen with integer cents.
	var total Cents
	for i := 0; i < 1000; i++ {
		total += MustParse("0.10")
	}
	assert.Equal(t, MustParse("100.00"), total)
}

func TestScan(t *testing.T) {
	var c Cents
	require.NoError(t, c.Scan(int64(1234)))
	assert.Equal(t, Cents(1234), c)

	require.NoError(t, c.Scan([]byte("5678")))
	assert.Equal(t, Cents(5678), c)

	assert.Error(t, c.Scan(3.14))
}
