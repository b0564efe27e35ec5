package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Record is one unit to process: the labels shown in the community listing
// and the location of its transcript.
type Record struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	// Source is an http(s) URL or a local path.
	Source string `json:"url"`
}

// UnmarshalJSON accepts an object with address, owner and url keys or a
// three-element array in that order. Missing object keys are left empty.
func (r *Record) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var fields []string
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("record array: %w", err)
		}
		if len(fields) != 3 {
			return fmt.Errorf("record array has %d elements, want 3", len(fields))
		}
		r.Address, r.Owner, r.Source = fields[0], fields[1], fields[2]
		return nil
	}

	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("record object: %w", err)
	}
	*r = Record(p)
	return nil
}

// DataFile is the record list read for identifier.
func DataFile(identifier string) string { return identifier + "_data.json" }

// OutputFile is the CSV written for identifier.
func OutputFile(identifier string) string { return identifier + ".csv" }

// LoadRecords reads a JSON array of records. Objects and arrays may be
// mixed.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoRecordFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	records := make([]Record, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &records[i]); err != nil {
			return nil, fmt.Errorf("parse %s: record %d: %w", path, i, err)
		}
	}
	return records, nil
}

// FixtureRecords returns the sample records of the 北新路 182巷 community.
func FixtureRecords() []Record {
	return []Record{
		{"北新路 182巷32號 16樓之11", "新ＯＯＯＯＯ (2025/05/31)", "https://docs.evertrust.com.tw/ycut/pdf/25151062qQjoO7rOB5RyN4QpCt5xw/.pdf/"},
		{"北新路 182巷16號 15樓之4", "新ＯＯＯＯＯ (2025/10/17)", "https://docs.evertrust.com.tw/ycut/pdf/25290063h2OimbcVpwF9WHwtWMQNV/.pdf/"},
		{"北新路 182巷32號 14樓之4", "新ＯＯＯＯＯ (2025/08/21)", "https://docs.evertrust.com.tw/ycut/pdf/25233063N0rUEWxs7F9ZiGsIUVtD1/.pdf/"},
		{"北新路 182巷16號 6樓之5", "新ＯＯＯＯＯ (2025/10/17)", "https://docs.evertrust.com.tw/ycut/pdf/25290061MW6mseHeS2u7ZceJmbxjH/.pdf/"},
		{"北新路 182巷32號 5樓之5", "新ＯＯＯＯＯ (2025/10/17)", "https://docs.evertrust.com.tw/ycut/pdf/25290060QoTOgNGtz7bSzIeVHJd0r/.pdf/"},
		{"北新路 182巷16號 4樓之5", "新ＯＯＯＯＯ (2025/08/05)", "https://docs.evertrust.com.tw/ycut/pdf/25217067cDlRMK58GLaxideT1Ztu3/.pdf/"},
		{"北新路 182巷32號 3樓之1", "新ＯＯＯＯＯ (2025/10/17)", "https://docs.evertrust.com.tw/ycut/pdf/25290062DUPoIQES2GXj4fCFhJzWd/.pdf/"},
		{"北新路 182巷16號 1樓", "新ＯＯＯＯＯ (2024/10/22)", "https://docs.evertrust.com.tw/ycut/pdf/24296062nwWi4h3LHLjJ63YzP7k7j/.pdf/"},
		{"北新路 182巷18號 1樓", "新ＯＯＯＯＯ (2024/05/13)", "https://docs.evertrust.com.tw/ycut/pdf/24135066u0r2cU6UgB12Z7i3bfhuc/.pdf/"},
	}
}
