package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	return <-done, fnErr
}

// assertJSON checks that output is valid JSON and decodes it into v
func assertJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// withArena points the global arena flags at a small unpinned arena and
// restores every global flag when the test ends.
func withArena(t *testing.T, size string) {
	t.Helper()

	saved := struct {
		verbose, quiet, jsonOut, noPrefault, alignAddresses bool
		logLevel, heapSize, blockSize, pinPolicy            string
	}{verbose, quiet, jsonOut, noPrefault, alignAddresses, logLevel, heapSize, blockSize, pinPolicy}

	t.Cleanup(func() {
		verbose, quiet, jsonOut = saved.verbose, saved.quiet, saved.jsonOut
		noPrefault, alignAddresses = saved.noPrefault, saved.alignAddresses
		logLevel, heapSize, blockSize, pinPolicy = saved.logLevel, saved.heapSize, saved.blockSize, saved.pinPolicy
	})

	verbose, quiet, jsonOut = false, false, false
	noPrefault, alignAddresses = false, false
	logLevel = "error"
	heapSize = size
	blockSize = ""
	pinPolicy = "never"
}
