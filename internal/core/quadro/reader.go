// internal/core/quadro/reader.go
package quadro

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// ErrFicheiroIlegivel indica que os bytes recebidos não são um ficheiro
// Excel válido.
var ErrFicheiroIlegivel = errors.New("ficheiro ilegível: não é um Excel válido")

// Grelha expõe o conteúdo de um ficheiro Excel como grelhas de células por
// folha, endereçáveis por índices de linha e coluna a partir de zero. As
// folhas mantêm a ordem do ficheiro e as células unidas são expandidas para
// todas as coordenadas que cobrem.
type Grelha struct {
	Folhas  []string
	Celulas map[string][][]string
}

// Celula devolve o valor na posição indicada, ou "" fora dos limites.
func (g *Grelha) Celula(folha string, linha, coluna int) string {
	grid := g.Celulas[folha]
	if linha < 0 || linha >= len(grid) {
		return ""
	}
	row := grid[linha]
	if coluna < 0 || coluna >= len(row) {
		return ""
	}
	return row[coluna]
}

// LerGrelha carrega um .xlsx (ou .xls legado) a partir dos bytes do upload.
// Alguns ficheiros chamados ".xls" são na verdade OOXML, por isso o formato
// moderno é tentado antes de desistir.
func LerGrelha(data []byte, filename string) (*Grelha, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xls" {
		g, err := lerXLS(data)
		if err == nil {
			return g, nil
		}
		if g, errX := lerXLSX(data); errX == nil {
			return g, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFicheiroIlegivel, err)
	}

	g, err := lerXLSX(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFicheiroIlegivel, err)
	}
	return g, nil
}

func lerXLSX(data []byte) (*Grelha, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g := &Grelha{Celulas: make(map[string][][]string)}
	for _, folha := range f.GetSheetList() {
		rows, err := f.GetRows(folha)
		if err != nil {
			continue
		}

		maxCol := 0
		for _, row := range rows {
			if len(row) > maxCol {
				maxCol = len(row)
			}
		}

		grid := make([][]string, len(rows))
		for i := range grid {
			grid[i] = make([]string, maxCol)
			for j, cell := range rows[i] {
				grid[i][j] = strings.TrimSpace(cell)
			}
		}

		// Células unidas: o valor vive apenas na âncora, mas os rótulos do
		// quadro ocupam frequentemente intervalos unidos.
		merges, err := f.GetMergeCells(folha)
		if err != nil {
			return nil, err
		}
		for _, merge := range merges {
			val := strings.TrimSpace(merge.GetCellValue())
			startCol, startRow, err := excelize.CellNameToCoordinates(merge.GetStartAxis())
			if err != nil {
				continue
			}
			endCol, endRow, err := excelize.CellNameToCoordinates(merge.GetEndAxis())
			if err != nil {
				continue
			}
			for r := startRow - 1; r <= endRow-1; r++ {
				for c := startCol - 1; c <= endCol-1; c++ {
					if r >= 0 && r < len(grid) && c >= 0 && c < len(grid[r]) {
						grid[r][c] = val
					}
				}
			}
		}

		g.Folhas = append(g.Folhas, folha)
		g.Celulas[folha] = grid
	}
	return g, nil
}

func lerXLS(data []byte) (*Grelha, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	g := &Grelha{Celulas: make(map[string][][]string)}
	for _, sheet := range workbook.GetSheets() {
		var grid [][]string
		maxCol := 0
		for _, row := range sheet.GetRows() {
			var linha []string
			for _, cell := range row.GetCols() {
				linha = append(linha, strings.TrimSpace(cell.GetString()))
			}
			if len(linha) > maxCol {
				maxCol = len(linha)
			}
			grid = append(grid, linha)
		}
		for i := range grid {
			for len(grid[i]) < maxCol {
				grid[i] = append(grid[i], "")
			}
		}
		g.Folhas = append(g.Folhas, sheet.GetName())
		g.Celulas[sheet.GetName()] = grid
	}
	return g, nil
}
