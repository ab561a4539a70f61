package storage

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Record is the persisted best distance: one decimal number in a text
// file.
type Record struct {
	path string
}

func NewRecord(path string) *Record {
	return &Record{path: path}
}

func (r *Record) Path() string { return r.path }

// Load returns the stored value, or 0 when the file is missing, unreadable
// or does not hold a finite non-negative number.
func (r *Record) Load() float64 {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Save overwrites the record with v to two decimals.
func (r *Record) Save(v float64) error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(r.path, []byte(strconv.FormatFloat(v, 'f', 2, 64)), 0644)
}

// Update saves v if it beats the stored value and reports whether it did.
func (r *Record) Update(v float64) (bool, error) {
	if v <= r.Load() {
		return false, nil
	}
	return true, r.Save(v)
}
