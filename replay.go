// Copyright 2026 The Orby Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orby

import (
	"github.com/orbydb/orby/internal/aofwire"
)

// ReplayAOF reads path in full and reissues every record through the
// engine's own public methods, in order, exactly as written (spec.md
// §4.3 "replay-by-reissue"). It does not read the Vault or the header;
// it is meant to rebuild state from a bare AOF file.
func (e *Engine) ReplayAOF(path string) error {
	buf, err := aofwire.ReadAll(path)
	if err != nil {
		return wrapIOError("ReplayAOF", e.name, err)
	}
	if len(buf) == 0 {
		return nil
	}

	_, _, laneCount := e.Meta()
	scanner := aofwire.NewScanner(buf, laneCount)

	for {
		rec, ok, err := scanner.Next()
		if err != nil {
			return errInvalidFormat("ReplayAOF", e.name, err.Error())
		}
		if !ok {
			return nil
		}

		switch rec.Op {
		case aofwire.OpInsert:
			row := rowFromBytes(rec.Row)
			if err := e.InsertBatch([]Row{row}); err != nil {
				return err
			}

		case aofwire.OpPurge:
			e.PurgeByID(int(rec.Col), CellFromBytes(rec.ID[:]))

		case aofwire.OpUpdate:
			row := rowFromBytes(rec.Row)
			e.UpdateByID(int(rec.Col), CellFromBytes(rec.ID[:]), row)

		case aofwire.OpTruncate:
			if err := e.PurgeAllData(nil); err != nil {
				return err
			}

		case aofwire.OpLaneBatch:
			values := cellsFromBytes(rec.Values)
			if err := e.InsertLaneBatch(int(rec.LaneIdx), values); err != nil {
				return err
			}
		}
	}
}

func rowFromBytes(b []byte) Row {
	row := make(Row, len(b)/16)
	for i := range row {
		row[i] = CellFromBytes(b[i*16 : (i+1)*16])
	}
	return row
}

func cellsFromBytes(b []byte) []Cell {
	cells := make([]Cell, len(b)/16)
	for i := range cells {
		cells[i] = CellFromBytes(b[i*16 : (i+1)*16])
	}
	return cells
}
