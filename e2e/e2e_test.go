//go:build e2e

// Package e2e runs the spbridge binary against a live SharePoint tenant and
// an S3-compatible bucket. Required environment (or .env at the module root):
//
//	SPBRIDGE_ACCESS_TOKEN    Graph bearer token with Sites.Read.All
//	SPBRIDGE_E2E_DRIVE_ID    a document library to browse
//	SPBRIDGE_E2E_FILE_ID     a small document in that library
//	SPBRIDGE_E2E_BUCKET      destination bucket
//	SPBRIDGE_E2E_ENDPOINT    S3 endpoint (e.g. a local MinIO)
//	SPBRIDGE_S3_ACCESS_KEY_ID / SPBRIDGE_S3_SECRET_ACCESS_KEY
package e2e

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/spbridge/testutil"
)

var (
	binaryPath string
	configPath string
	env        map[string]string
)

func TestMain(m *testing.M) {
	root := testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))

	env = testutil.RequireEnv(
		"SPBRIDGE_ACCESS_TOKEN",
		"SPBRIDGE_E2E_DRIVE_ID",
		"SPBRIDGE_E2E_FILE_ID",
		"SPBRIDGE_E2E_BUCKET",
		"SPBRIDGE_E2E_ENDPOINT",
		"SPBRIDGE_S3_ACCESS_KEY_ID",
		"SPBRIDGE_S3_SECRET_ACCESS_KEY",
	)

	tmpDir, err := os.MkdirTemp("", "spbridge-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	code := run(m, root, tmpDir)
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func run(m *testing.M, root, tmpDir string) int {
	binaryPath = filepath.Join(tmpDir, "spbridge")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		return 1
	}

	configPath = filepath.Join(tmpDir, "config.toml")

	cfg := fmt.Sprintf(`
[storage]
enabled = true
bucket = %q
endpoint = %q
path_style = true
prefix = "spbridge-e2e"
`, env["SPBRIDGE_E2E_BUCKET"], env["SPBRIDGE_E2E_ENDPOINT"])

	if err := os.WriteFile(configPath, []byte(cfg), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "writing config: %v\n", err)
		return 1
	}

	// Keep the developer's own config out of the run.
	os.Unsetenv("SPBRIDGE_CONFIG")

	return m.Run()
}

// runCLI runs the binary and returns stdout, stderr and the exit code.
func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()

	fullArgs := append([]string{"--config", configPath, "--json"}, args...)
	cmd := exec.Command(binaryPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		t.Fatalf("running %v: %v", args, err)
	}

	return stdout.String(), stderr.String(), cmd.ProcessState.ExitCode()
}

type browseResult struct {
	Level       string  `json:"level"`
	CurrentPath string  `json:"current_path"`
	ParentPath  *string `json:"parent_path"`
	Folders     []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	} `json:"folders"`
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

func TestE2E_BrowseDriveRoot(t *testing.T) {
	driveID := env["SPBRIDGE_E2E_DRIVE_ID"]

	stdout, stderr, code := runCLI(t, "browse", "--drive", driveID)
	require.Zero(t, code, stderr)

	var result browseResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))

	assert.Equal(t, "folder", result.Level)
	assert.Equal(t, "/drives/"+driveID, result.CurrentPath)
	require.NotNil(t, result.ParentPath)
	assert.Equal(t, "/sites", *result.ParentPath)

	for _, f := range result.Folders {
		assert.Equal(t, "folder", f.Kind)
	}
}

func TestE2E_BrowseSites(t *testing.T) {
	stdout, stderr, code := runCLI(t, "browse", "--site", "root")
	require.Zero(t, code, stderr)

	var result browseResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "drive", result.Level)
}

func TestE2E_FolderWithoutDrive(t *testing.T) {
	_, stderr, code := runCLI(t, "browse", "--folder", "root")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid request")
}

func TestE2E_TransferIsIdempotent(t *testing.T) {
	driveID := env["SPBRIDGE_E2E_DRIVE_ID"]
	fileID := env["SPBRIDGE_E2E_FILE_ID"]
	collection := fmt.Sprintf("e2e-%d", time.Now().UnixNano())

	var keys []string

	for range 2 {
		stdout, stderr, code := runCLI(t, "transfer",
			"--drive", driveID, "--collection", collection, fileID, "does-not-exist")
		assert.Equal(t, 1, code, stderr)

		var report struct {
			Total      int `json:"total"`
			Successful int `json:"successful"`
			Failed     int `json:"failed"`
			Results    []struct {
				FileID         string `json:"file_id"`
				Status         string `json:"status"`
				DestinationKey string `json:"destination_key"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))

		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 1, report.Successful)
		assert.Equal(t, 1, report.Failed)
		require.Len(t, report.Results, 2)
		assert.Equal(t, fileID, report.Results[0].FileID)
		assert.Equal(t, "success", report.Results[0].Status)
		assert.Equal(t, "failed", report.Results[1].Status)

		keys = append(keys, report.Results[0].DestinationKey)
	}

	assert.Equal(t, "spbridge-e2e/collections/"+collection+"/blobs/"+fileID, keys[0])
	assert.Equal(t, keys[0], keys[1])
}
