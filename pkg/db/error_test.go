package db

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm sentinel", fmt.Errorf("insert customer: %w", gorm.ErrDuplicatedKey), true},
		{"postgres message", errors.New(`ERROR: duplicate key value violates unique constraint "uq_customers_billable" (SQLSTATE 23505)`), true},
		{"mysql message", errors.New("Error 1062 (23000): Duplicate entry 'user-42' for key 'uq_customers_billable'"), true},
		{"sqlite message", errors.New("UNIQUE constraint failed: customers.billable_type, customers.billable_id"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicateKeyErr(tc.err); got != tc.want {
				t.Fatalf("IsDuplicateKeyErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
