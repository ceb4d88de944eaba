package contacts

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	in := "name,email\nAda,ada@example.com\nLinus,linus@example.com\n"

	columns, rows, err := Parse(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(columns) != 2 || columns[0] != "name" || columns[1] != "email" {
		t.Errorf("columns = %v, want [name email]", columns)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[1]["name"] != "Linus" {
		t.Errorf("rows[1][name] = %q, want Linus", rows[1]["name"])
	}
}

func TestParse_FiltersEmptyRows(t *testing.T) {
	in := "name,email\nAda,ada@example.com\n,\n\"\",\nLinus,linus@example.com\n"

	_, rows, err := Parse(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2 (empty rows filtered)", len(rows))
	}
}

func TestParse_CapsRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name\n")
	for range 10 {
		sb.WriteString("someone\n")
	}

	_, rows, err := Parse(strings.NewReader(sb.String()), 3)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want 3", len(rows))
	}
}

func TestParse_EmptyFile(t *testing.T) {
	if _, _, err := Parse(strings.NewReader(""), 0); err == nil {
		t.Fatal("Parse succeeded on empty input, want error")
	}
}

func TestParse_ShortRecord(t *testing.T) {
	in := "name,email,company\nAda,ada@example.com\n"

	_, rows, err := Parse(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if _, ok := rows[0]["company"]; ok {
		t.Errorf("short record gained a company value: %v", rows[0])
	}
}
