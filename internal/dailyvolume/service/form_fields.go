package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"gorm.io/datatypes"
)

type reading struct {
	volume     *float64
	inlet      *float64
	outlet     *float64
	allocation *float64
	nomination *float64
	status     *int
	remark     *string
}

// applyFormFieldAnswers folds answers into r and returns them keyed for storage.
func applyFormFieldAnswers(r *reading, answers []domain.FormFieldAnswer) (datatypes.JSONMap, error) {
	stored := datatypes.JSONMap{}
	for _, answer := range answers {
		key := strings.ToLower(strings.TrimSpace(answer.Key))
		if key == "" {
			return nil, domain.ErrInvalidFormFieldAnswers
		}
		stored[key] = answer.Value

		var err error
		switch key {
		case "volume":
			r.volume, err = floatAnswer(answer.Value)
		case "inlet_pressure":
			r.inlet, err = floatAnswer(answer.Value)
		case "outlet_pressure":
			r.outlet, err = floatAnswer(answer.Value)
		case "allocation":
			r.allocation, err = floatAnswer(answer.Value)
		case "nomination":
			r.nomination, err = floatAnswer(answer.Value)
		case "status":
			var f *float64
			f, err = floatAnswer(answer.Value)
			if err == nil {
				status := int(*f)
				r.status = &status
			}
		case "remark":
			remark := fmt.Sprint(answer.Value)
			r.remark = &remark
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidFormFieldAnswers, key)
		}
	}
	return stored, nil
}

func floatAnswer(value any) (*float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, fmt.Errorf("unsupported value %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite value")
	}
	return &f, nil
}
