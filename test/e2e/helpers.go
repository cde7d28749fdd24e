//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const (
	e2eAPIKey    = "e2e-test-api-key"
	e2eUser      = "u-e2e"
	e2eWorkspace = "w-e2e"
)

// finsightServer manages a running finsight server process.
type finsightServer struct {
	cmd     *exec.Cmd
	dataDir string
	dbPath  string
	address string
	logFile *os.File
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// baseEnv configures the binary entirely through environment variables.
func baseEnv(dataDir, dbPath string) []string {
	return append(os.Environ(),
		"FINSIGHT_DB_PATH="+dbPath,
		"FINSIGHT_API_KEY="+e2eAPIKey,
		"FINSIGHT_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		"OPENAI_API_KEY=",
	)
}

// runCLI runs one finsight subcommand against dbPath and returns its output.
func runCLI(t *testing.T, dataDir, dbPath string, args ...string) string {
	t.Helper()
	cmd := exec.Command(finsightBin, args...)
	cmd.Env = baseEnv(dataDir, dbPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("finsight %v: %v\n%s", args, err, out)
	}
	return string(out)
}

// startFinsight launches the server on dbPath and waits for it to become healthy.
func startFinsight(t *testing.T, dataDir, dbPath string) *finsightServer {
	t.Helper()
	requireFinsight(t)

	port := freePort(t)
	cmd := exec.Command(finsightBin)
	cmd.Env = append(baseEnv(dataDir, dbPath), fmt.Sprintf("FINSIGHT_PORT=%d", port))

	lf, err := os.CreateTemp(dataDir, "finsight-*.log")
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start finsight: %v", err)
	}

	s := &finsightServer{
		cmd:     cmd,
		dataDir: dataDir,
		dbPath:  dbPath,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		logFile: lf,
	}
	t.Cleanup(s.stop)

	if err := s.waitHealthy(10 * time.Second); err != nil {
		logs, _ := os.ReadFile(lf.Name())
		t.Fatalf("finsight not healthy: %v\n%s", err, logs)
	}
	return s
}

func (s *finsightServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
		s.cmd = nil
	}
	s.logFile.Close()
}

func (s *finsightServer) baseURL() string {
	return "http://" + s.address
}

func (s *finsightServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(s.baseURL() + "/api/v1/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("finsight not healthy after %s", timeout)
}

// do sends an authenticated, scoped request and decodes a JSON body into out
// when out is non-nil.
func (s *finsightServer) do(t *testing.T, method, path string, wantStatus int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL()+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+e2eAPIKey)
	req.Header.Set("X-User-ID", e2eUser)
	req.Header.Set("X-Workspace-ID", e2eWorkspace)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("%s %s: decode: %v: %s", method, path, err, body)
		}
	}
}
