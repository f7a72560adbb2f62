package utils

import (
	"fmt"
	"os"

	json "github.com/bytedance/sonic"
)

func JsonString(obj any) string {
	jsonStr, _ := json.Marshal(obj)
	return string(jsonStr)
}

func JsonIndent(obj any) string {
	jsonStr, _ := json.MarshalIndent(obj, "", "  ")
	return string(jsonStr)
}

// JsonFile unmarshals a JSON file into out.
func JsonFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
