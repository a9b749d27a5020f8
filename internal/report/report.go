package report

import (
	"encoding/json"
	"os"
)

func SaveSummaryJSON(sum FileSummary, out string) error {
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadSummaryJSON(path string) (FileSummary, error) {
	var sum FileSummary
	b, err := os.ReadFile(path)
	if err != nil {
		return sum, err
	}
	err = json.Unmarshal(b, &sum)
	return sum, err
}
