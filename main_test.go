package main

import "testing"

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		display bool
		want    bool
	}{
		{"no args with display", nil, true, false},
		{"no args without display", nil, false, true},
		{"forced cli", []string{"--cli"}, true, true},
		{"forced gui", []string{"--gui"}, false, false},
		{"subcommand", []string{"credentials", "--json"}, true, true},
		{"help flag", []string{"--help"}, true, true},
		{"cli wins over gui", []string{"--gui", "--cli"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCLIMode(tt.args, tt.display); got != tt.want {
				t.Errorf("isCLIMode(%v, %v) = %v, want %v", tt.args, tt.display, got, tt.want)
			}
		})
	}
}
