package sheet

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// Parser reads frame-data workbooks where each sheet holds one character's
// move table. Columns are located by header text, not position, because the
// community sheets this format comes from shuffle columns between revisions.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]domain.CharacterMoves, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var out []domain.CharacterMoves
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
		}
		character := strings.TrimSpace(sheetName)
		out = append(out, domain.CharacterMoves{
			Character: character,
			Moves:     parseSheet(character, rows),
		})
	}
	return out, nil
}

// Column keys understood by the parser. Aliases cover both the English
// headers used by exported sheets and the Japanese headers of the source
// community workbook.
var columnAliases = map[string][]string{
	"move":             {"move", "move name", "技", "技名", "ワザ"},
	"category":         {"category", "type", "分類", "カテゴリ"},
	"startup":          {"startup", "startup frames", "発生", "発生f"},
	"active":           {"active", "active frames", "判定持続", "持続"},
	"total":            {"total", "total frames", "全体", "全体f"},
	"landing_lag":      {"landing lag", "着地隙"},
	"shield_stun":      {"shield stun", "ガード硬直"},
	"shield_advantage": {"shield advantage", "advantage", "ガード硬直差", "硬直差"},
	"damage":           {"damage", "ダメージ"},
	"damage_1v1":       {"damage 1v1", "1v1 damage", "1v1", "1on1"},
	"note":             {"note", "notes", "備考"},
}

var headerIndex = buildHeaderIndex()

func buildHeaderIndex() map[string]string {
	index := make(map[string]string)
	for key, aliases := range columnAliases {
		for _, alias := range aliases {
			index[alias] = key
		}
	}
	return index
}

func parseSheet(character string, rows [][]string) []domain.MoveRecord {
	headerRow, columns := findHeader(rows)
	if columns == nil {
		return nil
	}

	// Absent optional columns map to -1 so cellAt yields "".
	col := func(key string) int {
		idx, ok := columns[key]
		if !ok {
			return -1
		}
		return idx
	}

	var moves []domain.MoveRecord
	for _, row := range rows[headerRow+1:] {
		move := strings.TrimSpace(cellAt(row, col("move")))
		if move == "" {
			continue
		}
		moves = append(moves, domain.MoveRecord{
			Character:       character,
			Move:            move,
			Category:        strings.TrimSpace(cellAt(row, col("category"))),
			Startup:         parseIntCell(cellAt(row, col("startup"))),
			Active:          parseIntCell(cellAt(row, col("active"))),
			Total:           parseIntCell(cellAt(row, col("total"))),
			LandingLag:      parseIntCell(cellAt(row, col("landing_lag"))),
			ShieldStun:      parseIntCell(cellAt(row, col("shield_stun"))),
			ShieldAdvantage: parseIntCell(cellAt(row, col("shield_advantage"))),
			Damage:          parseFloatCell(cellAt(row, col("damage"))),
			Damage1v1:       parseFloatCell(cellAt(row, col("damage_1v1"))),
			Note:            strings.TrimSpace(cellAt(row, col("note"))),
		})
	}
	return moves
}

// findHeader locates the first row containing a recognizable move-name
// header and maps column keys to indexes. Rows above it (sheet titles,
// legends) are skipped.
func findHeader(rows [][]string) (int, map[string]int) {
	for rowIdx, row := range rows {
		columns := make(map[string]int)
		for colIdx, cell := range row {
			if key, ok := headerIndex[normalizeHeader(cell)]; ok {
				if _, seen := columns[key]; !seen {
					columns[key] = colIdx
				}
			}
		}
		if _, ok := columns["move"]; ok {
			return rowIdx, columns
		}
	}
	return 0, nil
}

func normalizeHeader(cell string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(cell))), " ")
}

// cellAt tolerates short rows: excelize trims trailing empty cells.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

var (
	intCellPattern   = regexp.MustCompile(`-?\d+`)
	floatCellPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// parseIntCell extracts the first integer from lenient cell text: "8F" and
// the range "8-10" both yield 8. Blank or non-numeric cells yield nil.
func parseIntCell(cell string) *int {
	match := intCellPattern.FindString(cell)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatCell(cell string) *float64 {
	match := floatCellPattern.FindString(cell)
	if match == "" {
		return nil
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &f
}
