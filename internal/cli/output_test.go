package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func testOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Output{jsonMode: jsonMode, w: &out, errW: &errOut}, &out, &errOut
}

func TestOutput_Snapshot_Table(t *testing.T) {
	o, out, errOut := testOutput(false)

	o.Snapshot(&SnapshotResponse{
		ExecutionID: "a1b2",
		Status:      "RUNNING",
		Tick:        5,
		NodeStates: map[string]NodeStateView{
			"sensor": {Value: 21.5, IsActive: true, LastUpdatedTick: 4},
			"calc":   {Value: 43.0, IsActive: true, LastUpdatedTick: 4},
			"broken": {Error: "division by zero", LastUpdatedTick: 2},
		},
	})

	// Заголовок с метаданными execution уходит в stderr
	header := errOut.String()
	if !strings.Contains(header, "a1b2") || !strings.Contains(header, "tick=5") {
		t.Errorf("заголовок не содержит execution и tick: %q", header)
	}

	table := out.String()
	if !strings.Contains(table, "NODE") {
		t.Errorf("нет заголовка таблицы: %q", table)
	}
	if !strings.Contains(table, "division by zero") {
		t.Errorf("нет ошибки узла: %q", table)
	}

	// Узлы отсортированы по ID
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) != 4 {
		t.Fatalf("строк = %d, want 4: %q", len(lines), table)
	}
	for i, want := range []string{"broken", "calc", "sensor"} {
		if !strings.HasPrefix(lines[i+1], want) {
			t.Errorf("строка %d начинается с %q, want %q", i+1, lines[i+1], want)
		}
	}
}

func TestOutput_Snapshot_JSON(t *testing.T) {
	o, out, errOut := testOutput(true)

	o.Snapshot(&SnapshotResponse{
		ExecutionID: "a1b2",
		Status:      "PAUSED",
		Tick:        3,
		NodeStates:  map[string]NodeStateView{"sensor": {Value: 1.0, IsActive: true}},
	})

	// В JSON-режиме снимок уходит целиком в stdout, stderr пуст
	if errOut.Len() != 0 {
		t.Errorf("stderr не пуст: %q", errOut.String())
	}

	var decoded SnapshotResponse
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Tick != 3 || decoded.Status != "PAUSED" {
		t.Errorf("Tick=%d Status=%s, want 3 PAUSED", decoded.Tick, decoded.Status)
	}
}

func TestFormatNodeValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"on", "on"},
		{42.0, "42"}, // числа из JSON — float64, целые без дробной части
		{26.5, "26.5"},
		{true, "true"},
		{false, "false"},
		{[]any{1.0, 2.0}, "[1 2]"},
	}

	for _, c := range cases {
		if got := FormatNodeValue(c.in); got != c.want {
			t.Errorf("FormatNodeValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
