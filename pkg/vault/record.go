package vault

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultRecordFile is where deployment records are written
const DefaultRecordFile = "deployment-info.json"

// Record describes a deployed vault
type Record struct {
	ContractAddress string `json:"contractAddress"`
	Owner           string `json:"owner"`
	FeeCollector    string `json:"feeCollector"`
	ProtocolFee     string `json:"protocolFee"`
	DeploymentTime  string `json:"deploymentTime"`
	Network         string `json:"network"`
}

// WriteRecord saves the record as indented JSON
func WriteRecord(path string, rec *Record) error {
	if path == "" {
		path = DefaultRecordFile
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment record: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write deployment record: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to save deployment record: %w", err)
	}
	return nil
}

// ReadRecord loads a previously written record
func ReadRecord(path string) (*Record, error) {
	if path == "" {
		path = DefaultRecordFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse deployment record: %w", err)
	}
	return &rec, nil
}
