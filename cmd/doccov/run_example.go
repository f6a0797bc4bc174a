package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/report"
	"doccov/internal/sandbox"
)

var (
	runPackage string
	runVersion string
	runFile    string
	runBackend string
	runFormat  string
)

var runExampleCmd = &cobra.Command{
	Use:   "run-example",
	Short: "Run one example against a published package",
	Long: `Run a Go example in a throwaway workspace that imports the given package.

The code is read from --file, or from stdin when --file is "-" or omitted.
A statement list is wrapped in func main; a complete program is run as is.

Examples:
  echo 'fmt.Println(calc.Add(1, 2))' | doccov run-example --package example.com/calc
  doccov run-example --package example.com/calc --version v1.2.0 --file example.go`,
	Args: cobra.NoArgs,
	RunE: runRunExample,
}

func init() {
	runExampleCmd.Flags().StringVar(&runPackage, "package", "", "Import path of the package under test (required)")
	runExampleCmd.Flags().StringVar(&runVersion, "version", "", "Package version to install (default latest)")
	runExampleCmd.Flags().StringVarP(&runFile, "file", "f", "-", "File holding the example code, or - for stdin")
	runExampleCmd.Flags().StringVar(&runBackend, "backend", "", "Sandbox backend: local or container (default from config)")
	runExampleCmd.Flags().StringVar(&runFormat, "format", "human", "Output format (human, json, yaml)")
	_ = runExampleCmd.MarkFlagRequired("package")
	rootCmd.AddCommand(runExampleCmd)
}

func runRunExample(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(runFormat)
	if err != nil {
		return err
	}
	code, err := readExampleCode(runFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	eng, _, err := setup(".")
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := eng.RunExample(ctx, sandbox.Request{
		PackageName:    runPackage,
		PackageVersion: runVersion,
		Code:           code,
	}, runBackend)
	if err != nil {
		return err
	}

	if format == report.FormatHuman {
		err = writeResultHuman(cmd.OutOrStdout(), res)
	} else {
		err = report.Write(cmd.OutOrStdout(), res, format)
	}
	if err != nil {
		return err
	}
	if !res.Success {
		return &gateError{}
	}
	return nil
}

// readExampleCode reads the example from path, or from stdin for "-".
func readExampleCode(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read example: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.Newf(errors.InvalidRequest, "example code is empty")
	}
	return string(data), nil
}

func writeResultHuman(w io.Writer, res openpkg.ExampleExecutionResult) error {
	var b strings.Builder
	if res.Success {
		b.WriteString(fmt.Sprintf("ok (%dms)\n", res.Duration))
	} else {
		b.WriteString(fmt.Sprintf("FAIL exit %d (%dms)\n", res.ExitCode, res.Duration))
	}
	if res.Stdout != "" {
		b.WriteString("--- stdout\n")
		b.WriteString(res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			b.WriteString("\n")
		}
	}
	if res.Stderr != "" {
		b.WriteString("--- stderr\n")
		b.WriteString(res.Stderr)
		if !strings.HasSuffix(res.Stderr, "\n") {
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
