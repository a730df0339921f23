package utils_test

import (
	"testing"
	"time"

	"github.com/yuriiter/bixistrava/pkg/utils"
)

func TestParseDate(t *testing.T) {
	got, err := utils.ParseDate("2021-08-24")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Year() != 2021 || got.Month() != time.August || got.Day() != 24 {
		t.Fatalf("got %s", got)
	}

	got, err = utils.ParseDate("24/08/2021")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Day() != 24 || got.Month() != time.August {
		t.Fatalf("got %s", got)
	}

	got, err = utils.ParseDate("today")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.YearDay() != time.Now().YearDay() {
		t.Fatalf("today = %s", got)
	}

	if _, err := utils.ParseDate("24th of August"); err == nil {
		t.Fatal("expected error for unrecognized date")
	}
}
