//go:build e2e

package e2e

import (
	"os"
	"os/exec"
	"testing"
)

var finsightBin string

func TestMain(m *testing.M) {
	finsightBin = envOrLookPath("FINSIGHT_BIN", "finsight")
	os.Exit(m.Run())
}

func envOrLookPath(envVar, name string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

func requireFinsight(t *testing.T) {
	t.Helper()
	if finsightBin == "" {
		t.Skip("finsight binary not available (set FINSIGHT_BIN or add to PATH)")
	}
}
