// Package ui renders terminal output for the wifiman and wifiman-cfg
// commands.
//
// Components follow a "render once and exit" pattern: a command prints a
// Header, runs its operation while a Runner reports steps, and finishes
// with a Result box. Tables list scan candidates, discovered devices and
// history entries.
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Push Configuration",
//	    Command:   "wifiman-cfg push",
//	    Params:    map[string]string{"Device": "192.168.4.1:8080"},
//	    StepNames: []string{"Snapshot", "Push", "Verify"},
//	})
//	err := runner.Run(func(onStep ui.StepCallback) error { ... })
//
// Logging is silent unless --log-level is given, so the styled output is
// the only thing on the terminal by default.
package ui
