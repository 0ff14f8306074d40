package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
)

// ParseCSV turns a CSV document into a loosely typed batch shaped by the
// descriptor. The header row must carry every descriptor column (extra
// columns are ignored); an empty cell becomes nil so the validator's
// presence rule can judge it.
func ParseCSV(data []byte, desc *entity.Descriptor) (types.Batch, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return types.Batch{}, fmt.Errorf("%s source is empty", desc.Name)
	}
	if err != nil {
		return types.Batch{}, fmt.Errorf("read %s header: %w", desc.Name, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range desc.Columns {
		if _, ok := index[col.Name]; !ok {
			return types.Batch{}, fmt.Errorf("%s source is missing column %s", desc.Name, col.Name)
		}
	}

	batch := types.Batch{Columns: desc.ColumnNames()}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.Batch{}, fmt.Errorf("read %s line %d: %w", desc.Name, line, err)
		}
		rec := make(types.Record, len(desc.Columns))
		for _, col := range desc.Columns {
			cell := row[index[col.Name]]
			if cell == "" {
				rec[col.Name] = nil
				continue
			}
			rec[col.Name] = cell
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}
