package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/pkg/models"
)

type scoreOutput struct {
	Prediction *models.Prediction  `json:"prediction"`
	Summary    string              `json:"summary"`
	Display    *prediction.Display `json:"display,omitempty"`
}

func scoreCmd() *cobra.Command {
	var (
		file       string
		display    bool
		maxFactors int
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score event attributes read from a YAML or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := readAttributes(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			p, err := prediction.NewEngine(prediction.Config{}).Predict(attrs)
			if err != nil {
				return err
			}

			out := scoreOutput{Prediction: p, Summary: prediction.Summary(p)}
			if display {
				d := prediction.NewDisplay(p, maxFactors)
				out.Display = &d
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "attributes file, - for stdin")
	cmd.Flags().BoolVar(&display, "display", false, "include the rendered display model")
	cmd.Flags().IntVar(&maxFactors, "max-factors", 5, "factors shown in the display model")
	return cmd
}

// readAttributes decodes attributes from path. JSON files are decoded as
// JSON, anything else as YAML.
func readAttributes(path string, stdin io.Reader) (models.EventAttributes, error) {
	var attrs models.EventAttributes

	var (
		data []byte
		err  error
	)
	if path == "-" || path == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return attrs, fmt.Errorf("failed to read attributes: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &attrs)
	} else {
		err = yaml.Unmarshal(data, &attrs)
	}
	if err != nil {
		return attrs, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
