// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecute_DispatchesSubcommand(t *testing.T) {
	var ran []string
	root := &Command{
		Name: "caskade",
		Subcommands: []*Command{
			{
				Name: "authority",
				Subcommands: []*Command{
					{
						Name: "view",
						Run: func(args []string) error {
							ran = append(ran, "view")
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"authority", "view"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(ran) != 1 || ran[0] != "view" {
		t.Errorf("ran = %v, want [view]", ran)
	}
}

func TestExecute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "caskade",
		Subcommands: []*Command{
			{Name: "authority", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"authroity"})
	if err == nil {
		t.Fatal("Execute() accepted a misspelled command")
	}
	if !strings.Contains(err.Error(), `did you mean "authority"`) {
		t.Errorf("error = %q, want a suggestion for authority", err)
	}
}

func TestExecute_ParsesFlags(t *testing.T) {
	var label string
	var got []string
	command := &Command{
		Name: "grant",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("grant", pflag.ContinueOnError)
			flagSet.StringVar(&label, "label", "", "policy label")
			return flagSet
		},
		Run: func(args []string) error {
			got = args
			return nil
		},
	}

	if err := command.Execute([]string{"--label", "secrets/research", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if label != "secrets/research" {
		t.Errorf("label = %q, want %q", label, "secrets/research")
	}
	if len(got) != 1 || got[0] != "extra" {
		t.Errorf("args = %v, want [extra]", got)
	}
}

func TestExecute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "grant",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("grant", pflag.ContinueOnError)
			flagSet.String("label", "", "policy label")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--lable", "x"})
	if err == nil {
		t.Fatal("Execute() accepted an unknown flag")
	}
	if !strings.Contains(err.Error(), "--label") {
		t.Errorf("error = %q, want a suggestion for --label", err)
	}
}

func TestExecute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "caskade",
		Subcommands: []*Command{{Name: "authority"}},
	}
	if err := root.Execute(nil); err == nil {
		t.Error("Execute() with no args succeeded despite requiring a subcommand")
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"grant", "grant", 0},
		{"grant", "grnat", 2},
		{"revoke", "", 6},
		{"init", "view", 4},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
