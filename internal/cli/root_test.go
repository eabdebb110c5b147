package cli

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := map[string]bool{
		"chat":          false,
		"tasks":         false,
		"conversations": false,
		"serve":         false,
		"mcp":           false,
		"version":       false,
	}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2026-08-30")
	if appVersion != "1.2.3" || appCommit != "abc1234" || appDate != "2026-08-30" {
		t.Errorf("version info = %s/%s/%s", appVersion, appCommit, appDate)
	}
}
