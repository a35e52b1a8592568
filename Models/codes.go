package Models

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	PlanCodePrefix      = "PM"
	WorkOrderCodePrefix = "OT"
)

// NextCode returns the next PREFIX-YYYY-NNNN code for model's table.
// Soft-deleted rows keep their codes, so they are counted too.
func NextCode(tx *gorm.DB, model interface{}, prefix string, year int) (string, error) {
	head := fmt.Sprintf("%s-%d-", prefix, year)

	var codes []string
	err := tx.Unscoped().Model(model).
		Where("code LIKE ?", head+"%").
		Order("code DESC").
		Limit(1).
		Pluck("code", &codes).Error
	if err != nil {
		return "", fmt.Errorf("reading last %s code: %w", prefix, err)
	}

	seq := 0
	if len(codes) > 0 {
		seq, err = strconv.Atoi(strings.TrimPrefix(codes[0], head))
		if err != nil {
			return "", fmt.Errorf("malformed code %q: %w", codes[0], err)
		}
	}
	return fmt.Sprintf("%s%04d", head, seq+1), nil
}
