package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/jobs"
	_ "github.com/oris-services/servicedesk/testing"
)

func run(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "seed-admin", "jobs", "render"} {
		require.True(t, names[want], want)
	}
}

func TestTriggerRejectsUnknownTask(t *testing.T) {
	_, err := run("jobs", "trigger", "ledger:rebuild")
	require.ErrorIs(t, err, jobs.ErrUnknownTask)
}

func TestRenderValidatesArgsBeforeConnecting(t *testing.T) {
	_, err := run("render", "abc", "quotation")
	require.ErrorContains(t, err, "invalid quotation id")

	_, err = run("render", "12", "receipt")
	require.Error(t, err)
}

func TestSeedAdminRequiresFlags(t *testing.T) {
	_, err := run("seed-admin", "--email", "admin@oris.do")
	require.Error(t, err)

	_, err = run("seed-admin", "--email", "admin@oris.do", "--password", "short")
	require.ErrorContains(t, err, "at least 8")
}
