package steps

import (
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// vectorPattern captures "x,y,z" as three float arguments
const vectorPattern = `(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`

// getCellValueFromTable gets a cell value by column name from a table row
func getCellValueFromTable(table *godog.Table, row *messages.PickleTableRow, columnName string) string {
	if len(table.Rows) == 0 {
		return ""
	}

	headerRow := table.Rows[0]

	for i, headerCell := range headerRow.Cells {
		if headerCell.Value == columnName {
			if i < len(row.Cells) {
				return row.Cells[i].Value
			}
			return ""
		}
	}

	return ""
}

func floatFromTable(table *godog.Table, row *messages.PickleTableRow, columnName string) (float64, error) {
	raw := getCellValueFromTable(table, row, columnName)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", columnName, raw)
	}
	return v, nil
}

func vectorFromTableRow(table *godog.Table, row *messages.PickleTableRow) (shared.Vector3, error) {
	var coords [3]float64
	for i, column := range []string{"x", "y", "z"} {
		v, err := floatFromTable(table, row, column)
		if err != nil {
			return shared.Vector3{}, err
		}
		coords[i] = v
	}
	return shared.NewVector3(coords[0], coords[1], coords[2]), nil
}
