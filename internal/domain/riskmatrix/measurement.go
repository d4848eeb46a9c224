package riskmatrix

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type MeasurementKind string

const (
	MeasurementNone        MeasurementKind = ""
	MeasurementNumeric     MeasurementKind = "numeric"
	MeasurementQualitative MeasurementKind = "qualitative"
)

// Measurement is either a numeric value with a unit or a qualitative note.
// The zero value means "not measured".
type Measurement struct {
	Kind   MeasurementKind  `json:"kind,omitempty"`
	Number *decimal.Decimal `json:"value,omitempty"`
	Unit   string           `json:"unit,omitempty"`
	Note   string           `json:"note,omitempty"`
}

func Numeric(v decimal.Decimal, unit string) Measurement {
	return Measurement{Kind: MeasurementNumeric, Number: &v, Unit: unit}
}

func Qualitative(note string) Measurement {
	return Measurement{Kind: MeasurementQualitative, Note: note}
}

func (m Measurement) IsZero() bool { return m.Kind == MeasurementNone }

// Validate checks that exactly the fields of the kind are set.
func (m Measurement) Validate() error {
	switch m.Kind {
	case MeasurementNone:
		if m.Number != nil || m.Note != "" || m.Unit != "" {
			return fmt.Errorf("measurement kind is required")
		}
	case MeasurementNumeric:
		if m.Number == nil {
			return fmt.Errorf("numeric measurement needs a value")
		}
		if m.Note != "" {
			return fmt.Errorf("numeric measurement cannot carry a note")
		}
	case MeasurementQualitative:
		if strings.TrimSpace(m.Note) == "" {
			return fmt.Errorf("qualitative measurement needs a note")
		}
		if m.Number != nil || m.Unit != "" {
			return fmt.Errorf("qualitative measurement cannot carry a value or unit")
		}
	default:
		return fmt.Errorf("invalid measurement kind: %s", m.Kind)
	}
	return nil
}

// String is the stored text form: "numeric:<value> <unit>" or
// "qualitative:<note>".
func (m Measurement) String() string {
	switch m.Kind {
	case MeasurementNumeric:
		s := string(MeasurementNumeric) + ":" + m.Number.String()
		if m.Unit != "" {
			s += " " + m.Unit
		}
		return s
	case MeasurementQualitative:
		return string(MeasurementQualitative) + ":" + m.Note
	}
	return ""
}

// ParseMeasurement reads the stored text form. Text without a known prefix,
// or a numeric prefix whose value is not a decimal, is kept as a qualitative
// note.
func ParseMeasurement(s string) (Measurement, error) {
	if strings.TrimSpace(s) == "" {
		return Measurement{}, nil
	}
	kind, rest, found := strings.Cut(s, ":")
	if found && MeasurementKind(kind) == MeasurementNumeric {
		value, unit, _ := strings.Cut(rest, " ")
		d, err := decimal.NewFromString(value)
		if err != nil {
			return Qualitative(s), nil
		}
		return Numeric(d, unit), nil
	}
	if found && MeasurementKind(kind) == MeasurementQualitative {
		return Qualitative(rest), nil
	}
	return Qualitative(s), nil
}

// Scan implements sql.Scanner.
func (m *Measurement) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*m = Measurement{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Measurement", src)
	}
	parsed, err := ParseMeasurement(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer. An unmeasured value is stored as NULL.
func (m Measurement) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}
	return m.String(), nil
}
