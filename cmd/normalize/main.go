// Command normalize prints the normalized JSON form of a workbook.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"excel-insights-api/internal/excel"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"

	"github.com/spf13/cobra"
)

var (
	outputPath string
	pretty     bool
	sheetName  string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "normalize [workbook]",
		Short: "Normalize a spreadsheet into headers, rows and column types",
		Long: `normalize reads an .xlsx, .xls or .csv file and prints every sheet as
headers, rows and inferred column types in JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	rootCmd.Flags().StringVar(&sheetName, "sheet", "", "Only print the named sheet")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Init(logLevel, "console")
	inputPath := args[0]

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	format := excel.DetectFormat(data, inputPath)

	wb, err := excel.NewNormalizer().NormalizeAs(context.Background(), data, format)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	var out interface{} = wb
	if sheetName != "" {
		sheet, ok := wb[sheetName]
		if !ok {
			return fmt.Errorf("sheet %q not found (available: %s)", sheetName, strings.Join(wb.SheetNames(), ", "))
		}
		out = model.NormalizedWorkbook{sheetName: sheet}
	}

	var jsonData []byte
	if pretty {
		jsonData, err = json.MarshalIndent(out, "", "  ")
	} else {
		jsonData, err = json.Marshal(out)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	fmt.Println(string(jsonData))
	return nil
}
