package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/schema"
)

var validateKind string

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check an openpkg or doccov document against its schema",
	Long: `Validate a spec or report file against the embedded schema. The kind is
detected from the top-level "openpkg" or "doccov" field unless --kind is
given. Files ending in .zst are decompressed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", "", "Document kind: openpkg or doccov (default detected)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	if strings.HasSuffix(path, openpkg.CompressedExt) {
		if _, err := openpkg.Load(path); err != nil {
			return validationFailed(cmd.OutOrStdout(), path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s document\n", path, schema.KindOpenPkg)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.EntryNotFound, "read "+path, err)
	}
	kind, err := documentKind(data, validateKind)
	if err != nil {
		return err
	}
	if err := schema.Validate(kind, data); err != nil {
		return validationFailed(cmd.OutOrStdout(), path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s document\n", path, kind)
	return nil
}

// documentKind returns the explicit kind, or detects it from the
// top-level version field.
func documentKind(data []byte, explicit string) (schema.Kind, error) {
	switch schema.Kind(explicit) {
	case schema.KindOpenPkg, schema.KindDoccov:
		return schema.Kind(explicit), nil
	case "":
	default:
		return "", errors.Newf(errors.InvalidRequest, "unknown kind %q (want openpkg or doccov)", explicit)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", errors.New(errors.SpecInvalid, "document is not a JSON object", err)
	}
	if _, ok := probe["doccov"]; ok {
		return schema.KindDoccov, nil
	}
	if _, ok := probe["openpkg"]; ok {
		return schema.KindOpenPkg, nil
	}
	return "", errors.Newf(errors.SpecInvalid, "cannot tell the document kind: no openpkg or doccov field")
}

// validationFailed lists the schema issues and turns a rejection into a
// failed gate. Other errors are returned unchanged.
func validationFailed(w io.Writer, path string, err error) error {
	var de *errors.DoccovError
	if !stderrors.As(err, &de) || de.Code != errors.SpecInvalid {
		return err
	}
	issues, _ := de.Details.([]schema.Issue)
	fmt.Fprintf(w, "%s: invalid\n", path)
	for _, is := range issues {
		if is.Path != "" {
			fmt.Fprintf(w, "  %s: %s\n", is.Path, is.Message)
		} else {
			fmt.Fprintf(w, "  %s\n", is.Message)
		}
	}
	if len(issues) == 0 {
		fmt.Fprintf(w, "  %s\n", de.Message)
	}
	return &gateError{}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
