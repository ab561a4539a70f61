package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

type ExportData struct {
	RunInfo
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	States   [][]float64        `json:"states"`
	Controls [][]float64        `json:"controls"`
	Metrics  map[string]float64 `json:"metrics"`
}

func NewExportData(info RunInfo, result *dynamo.Result) ExportData {
	data := ExportData{
		RunInfo:  info,
		Steps:    result.StepsTaken,
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Controls: make([][]float64, len(result.Controls)),
		Metrics:  result.Metrics,
	}

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	return data
}

// ExportJSON writes the run as indented JSON to w.
func ExportJSON(w io.Writer, info RunInfo, result *dynamo.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(info, result))
}

// ExportJSONFile writes the run to path; "-" means stdout.
func ExportJSONFile(path string, info RunInfo, result *dynamo.Result) error {
	if path == "-" {
		return ExportJSON(os.Stdout, info, result)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := ExportJSON(file, info, result); err != nil {
		return err
	}
	return file.Close()
}
