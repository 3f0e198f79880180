package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Cents is a currency amount stored as an integer number of cents.
// Invoice amounts and project revenue never touch floating point, so
// summation is exact regardless of magnitude or order.
type Cents int64

// Parse converts a decimal amount string ("150.00", "99.9", "1200") into
// Cents. At most two fractional digits are accepted.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole = s[:i]
		frac = s[i+1:]
	}
	// A sign is only valid in the leading position; everything past it
	// must be digits, or inputs like "--5" and "9.-1" would slip through
	// ParseInt with a surviving sign.
	if (whole == "" && frac == "") || !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	// Right-pad the fraction to two digits so "9.9" means 990 cents.
	frac = frac + strings.Repeat("0", 2-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var f int64
	if frac != "00" {
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}

	c := w*100 + f
	if neg {
		c = -c
	}
	return Cents(c), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) Cents {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the amount with two decimal places, e.g. "150.00".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a decimal string so clients never see
// a binary float representation.
func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a decimal string ("150.00") or a JSON
// number (150, 150.5) as the store and older clients emit both.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := Parse(str)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	// JSON numbers are decimal text on the wire; parse them the same way
	// instead of round-tripping through float64.
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer; amounts persist as bigint cents.
func (c Cents) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan implements sql.Scanner.
func (c *Cents) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = 0
	case int64:
		*c = Cents(v)
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Cents: %w", v, err)
		}
		*c = Cents(parsed)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Cents: %w", v, err)
		}
		*c = Cents(parsed)
	default:
		return fmt.Errorf("cannot scan %T into Cents", value)
	}
	return nil
}
