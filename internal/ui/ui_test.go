package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHeaderRender(t *testing.T) {
	out := NewHeader("Push Configuration", "wifiman-cfg push", map[string]string{
		"Device": "192.168.4.1:8080",
		"Auth":   "basic",
	}).SetWidth(80).Render()

	for _, want := range []string{"PUSH CONFIGURATION", "wifiman-cfg push", "Device:", "192.168.4.1:8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Auth:") > strings.Index(out, "Device:") {
		t.Error("params should be sorted by key")
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Pushed", map[string]string{"Networks": "2"}),
			want:   []string{"SUCCESS", "Pushed", "Networks:", "2"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Push", errors.New("auth failed"), []string{"check password"}),
			want:   []string{"FAILED", "Error: auth failed", "Troubleshooting:", "check password"},
		},
		{
			name:   "warning",
			result: NewWarningResult("Plaintext password", nil),
			want:   []string{"WARNING", "Plaintext password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).Render()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"SSID", "RSSI"}, [][]string{{"Home", "-40"}, {"Cabin", "-70"}}, 0)
	for _, want := range []string{"SSID", "RSSI", "Home", "-40", "Cabin"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTable() missing %q:\n%s", want, out)
		}
	}

	if out := RenderTable([]string{"SSID"}, nil, -1); !strings.Contains(out, "(none)") {
		t.Errorf("RenderTable(empty) = %q", out)
	}
}

func TestProgressUpdateStep(t *testing.T) {
	p := NewProgress([]string{"Snapshot", "Push", "Verify", "Report"})

	p.UpdateStep(1, StepComplete, "")
	p.UpdateStep(2, StepRunning, "")
	if p.Current != 2 {
		t.Errorf("Current = %d, want 2", p.Current)
	}
	if p.Percent != 0.25 {
		t.Errorf("Percent = %v, want 0.25", p.Percent)
	}

	p.UpdateStep(2, StepComplete, "")
	p.UpdateStep(3, StepSkipped, "")
	if p.Percent != 0.75 {
		t.Errorf("Percent = %v, want 0.75", p.Percent)
	}

	p.UpdateStep(9, StepComplete, "")
	if !strings.Contains(p.Render(), "[4/4] Report") {
		t.Errorf("Render() = %s", p.Render())
	}
}

func TestRunner(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{
		Title:     "Push",
		Command:   "wifiman-cfg push",
		StepNames: []string{"Snapshot", "Push"},
		Output:    &buf,
	})

	err := r.Run(func(onStep StepCallback) (map[string]string, error) {
		onStep(1, StepRunning, "")
		onStep(1, StepComplete, "")
		onStep(2, StepComplete, "3 networks")
		return map[string]string{"Device": "pi"}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"PUSH", "[1/2] Snapshot", "(3 networks)", "SUCCESS", "Duration:"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunnerFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("device refused")
	r := NewRunner(RunnerConfig{
		Title:        "Push",
		StepNames:    []string{"Push"},
		Troubleshoot: func(error) []string { return []string{"enable the config server"} },
		Output:       &buf,
	})

	err := r.Run(func(onStep StepCallback) (map[string]string, error) {
		onStep(1, StepFailed, "")
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	for _, want := range []string{"FAILED", "device refused", "enable the config server"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"DISABLE\n", true},
		{"  DISABLE  \n", true},
		{"DISABLE", true},
		{"disable\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Disable config server", []string{"no remote access"}, "DISABLE")
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "no remote access") {
			t.Errorf("Confirm(%q) did not show the warnings", tt.input)
		}
	}
}

func TestSpinWithoutTerminal(t *testing.T) {
	if IsTerminal() {
		t.Skip("stdout is a terminal")
	}

	var buf bytes.Buffer
	want := errors.New("done")
	if err := Spin(&buf, "Scanning", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Spin() error = %v, want %v", err, want)
	}
	if !strings.Contains(buf.String(), "Scanning...") {
		t.Errorf("Spin() output = %q", buf.String())
	}
}
