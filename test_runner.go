//go:build ignore

package main

import (
	"fmt"
	"os"
	"os/exec"
)

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func main() {
	fmt.Println("Running all tests for url-shortener...")

	// Unit tests with the race detector and coverage
	if err := run("go", "test", "-race", "-cover", "./..."); err != nil {
		fmt.Printf("Tests failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAll tests passed!")

	// Integration tests skip themselves unless REDIS_URL is set
	if os.Getenv("REDIS_URL") != "" {
		fmt.Println("\nRunning integration tests...")
		if err := run("go", "test", "-tags", "integration", "./internal/cache/..."); err != nil {
			fmt.Printf("Integration tests failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("\nRunning benchmarks...")
	if err := run("go", "test", "-run=^$", "-bench=.", "-benchmem", "./..."); err != nil {
		fmt.Printf("Benchmarks failed: %v\n", err)
		// Don't exit on benchmark failure
	}

	fmt.Println("\nTest run complete!")
}
