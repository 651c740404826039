package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// engineForbidden lists import prefixes the engine packages must never reach.
var engineForbidden = []string{
	"satchel/server/internal/net",
	"satchel/server/internal/app",
	"github.com/gorilla/websocket",
	"github.com/nats-io/",
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/inventory/...", "./internal/catalog/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	violations, err := findViolations(bytes.NewReader(output), engineForbidden)
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

// findViolations decodes a `go list -json` stream and reports every import
// matching one of the forbidden prefixes.
func findViolations(r io.Reader, forbidden []string) ([]string, error) {
	decoder := json.NewDecoder(r)
	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		for _, imp := range pkg.Imports {
			for _, prefix := range forbidden {
				if strings.HasPrefix(imp, prefix) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
					break
				}
			}
		}
	}
	sort.Strings(violations)
	return violations, nil
}
