package inventory

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Stake is a node's committed stake as published by the scraper: a numeric string, a JSON
// number or null. Arithmetic always goes through Amount, which treats missing, empty and
// unparsable values as zero. Amounts are arbitrary precision: 18-decimal denominations
// routinely exceed int64.
type Stake struct {
	value     decimal.Decimal
	present   bool
	malformed bool
	raw       string
}

// NewStake parses s the same way a JSON string value would be parsed.
func NewStake(s string) Stake {
	var st Stake
	st.parse(s)
	return st
}

func (s *Stake) parse(v string) {
	*s = Stake{raw: v}
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		s.malformed = true
		return
	}
	s.value = d
	s.present = true
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Stake) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Stake{}
		return nil
	}
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		s.parse(str)
		return nil
	}
	s.parse(string(trimmed))
	return nil
}

// MarshalJSON writes the parsed value back as a string, or null when absent.
func (s Stake) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(s.value.String())
}

// Amount returns the floor of the stake, or 0 when the stake is null, empty or unparsable.
func (s Stake) Amount() decimal.Decimal {
	if !s.present {
		return decimal.Zero
	}
	return s.value.Floor()
}

var hundred = decimal.NewFromInt(100)

// StakeShare returns part*100/whole. ok is false when whole is zero.
func StakeShare(part, whole decimal.Decimal) (pct float64, ok bool) {
	if whole.IsZero() {
		return 0, false
	}
	return part.Mul(hundred).Div(whole).InexactFloat64(), true
}

// Present reports whether a numeric stake was supplied.
func (s Stake) Present() bool { return s.present }

// Malformed reports whether a non-empty stake failed to parse as a number.
func (s Stake) Malformed() bool { return s.malformed }

// Raw returns the value as it appeared in the document.
func (s Stake) Raw() string { return s.raw }
