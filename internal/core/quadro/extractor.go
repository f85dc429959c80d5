// internal/core/quadro/extractor.go
package quadro

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CamposJangada são os campos da jangada recuperados do quadro. As datas
// ficam em bruto; a normalização é feita pelo motor de importação.
type CamposJangada struct {
	NumeroSerie         string
	Marca               string
	Modelo              string
	Lotacao             int
	DataFabricacao      string
	DataInspecao        string
	DataProximaInspecao string
	NumeroCertificado   string
	Tecnico             string
}

// ComponenteExtraido é uma linha de uma das listas de verificação
// (interior, exterior ou pack).
type ComponenteExtraido struct {
	Nome       string
	Quantidade int
	Estado     string
}

// CilindroExtraido é uma linha da tabela de cilindros. As datas ficam em
// bruto e os tipos de válvula preservam a ordem do quadro.
type CilindroExtraido struct {
	Numero       string
	Tipo         string
	Pressao      float64
	Gas          string
	Validade     string
	ProximoTeste string
	TipoCabeca   string
	TiposValvula []string
}

// Extracao é o resultado de melhor esforço da leitura de um quadro.
// Confianca reflete quantos dos campos esperados foram localizados (0-100).
// A ausência de número de série não é erro aqui; quem chama decide rejeitar.
type Extracao struct {
	Jangada   CamposJangada
	Confianca int
	Interior  []ComponenteExtraido
	Exterior  []ComponenteExtraido
	Pack      []ComponenteExtraido
	Cilindros []CilindroExtraido
}

// regraCampo descreve de forma declarativa como localizar um campo: os
// rótulos alternativos (já normalizados) e os deslocamentos (linha, coluna)
// onde o valor pode estar relativamente ao rótulo, por ordem de preferência.
// Acrescentar um campo ou suportar um novo modelo de quadro é acrescentar
// uma regra, sem tocar no varrimento.
type regraCampo struct {
	rotulos []string
	offsets [][2]int
	aplicar func(c *CamposJangada, valor string) bool
}

// Deslocamentos habituais nos quadros: valor à direita do rótulo (uma ou
// duas colunas, por causa de células unidas) ou na linha seguinte.
var offsetsPadrao = [][2]int{{0, 1}, {0, 2}, {1, 0}}

var regrasJangada = []regraCampo{
	{
		rotulos: []string{"NUMERO DE SERIE", "N DE SERIE", "N SERIE", "NUM SERIE"},
		aplicar: func(c *CamposJangada, v string) bool { c.NumeroSerie = v; return true },
	},
	{
		rotulos: []string{"MARCA", "FABRICANTE"},
		aplicar: func(c *CamposJangada, v string) bool { c.Marca = v; return true },
	},
	{
		rotulos: []string{"MODELO"},
		aplicar: func(c *CamposJangada, v string) bool { c.Modelo = v; return true },
	},
	{
		rotulos: []string{"LOTACAO", "CAPACIDADE", "N DE PESSOAS"},
		aplicar: func(c *CamposJangada, v string) bool {
			n, ok := parsePrimeiroInteiro(v)
			if ok {
				c.Lotacao = n
			}
			return ok
		},
	},
	{
		rotulos: []string{"DATA DE FABRICACAO", "DATA FABRICO", "FABRICACAO"},
		aplicar: func(c *CamposJangada, v string) bool { c.DataFabricacao = v; return true },
	},
	{
		rotulos: []string{"DATA DE INSPECAO", "DATA DA INSPECAO", "DATA INSPECAO"},
		aplicar: func(c *CamposJangada, v string) bool { c.DataInspecao = v; return true },
	},
	{
		rotulos: []string{"PROXIMA INSPECAO", "DATA PROXIMA INSPECAO", "VALIDADE"},
		aplicar: func(c *CamposJangada, v string) bool { c.DataProximaInspecao = v; return true },
	},
	{
		rotulos: []string{"NUMERO DE CERTIFICADO", "N CERTIFICADO", "CERTIFICADO"},
		aplicar: func(c *CamposJangada, v string) bool { c.NumeroCertificado = v; return true },
	},
	{
		rotulos: []string{"TECNICO", "INSPETOR", "RESPONSAVEL"},
		aplicar: func(c *CamposJangada, v string) bool { c.Tecnico = v; return true },
	},
}

// Extrair varre a grelha à procura dos campos da jangada, das listas de
// componentes e da tabela de cilindros. Nunca falha: devolve o que conseguir
// localizar e a confiança correspondente.
func Extrair(g *Grelha) *Extracao {
	folha := escolherFolha(g)
	raw := g.Celulas[folha]
	norm := normalizarGrelha(raw)

	// Os campos da jangada vivem acima da tabela de cilindros; limitar o
	// varrimento evita confundir cabeçalhos da tabela (ex.: "Validade") com
	// rótulos de campo.
	limite := len(norm)
	if r, _, ok := procurarCelula(norm, "CILINDRO"); ok {
		limite = r
	}

	ex := &Extracao{}
	encontrados := 0
	for _, regra := range regrasJangada {
		if aplicarRegra(raw, norm, regra, &ex.Jangada, limite) {
			encontrados++
		}
	}
	ex.Confianca = int(math.Round(100 * float64(encontrados) / float64(len(regrasJangada))))

	ex.Interior = extrairSeccao(raw, norm, "INTERIOR")
	ex.Exterior = extrairSeccao(raw, norm, "EXTERIOR")
	ex.Pack = extrairSeccao(raw, norm, "PACK")
	ex.Cilindros = extrairCilindros(raw, norm)
	return ex
}

// escolherFolha prefere a folha de inspeção; na falta dela usa a primeira.
func escolherFolha(g *Grelha) string {
	if len(g.Folhas) == 0 {
		return ""
	}
	for _, folha := range g.Folhas {
		if strings.Contains(Normalizar(folha), "INSPE") {
			return folha
		}
	}
	return g.Folhas[0]
}

func normalizarGrelha(raw [][]string) [][]string {
	norm := make([][]string, len(raw))
	for i, row := range raw {
		norm[i] = make([]string, len(row))
		for j, cell := range row {
			norm[i][j] = Normalizar(cell)
		}
	}
	return norm
}

func aplicarRegra(raw, norm [][]string, regra regraCampo, campos *CamposJangada, limite int) bool {
	offsets := regra.offsets
	if offsets == nil {
		offsets = offsetsPadrao
	}
	for r := 0; r < limite; r++ {
		for c := range norm[r] {
			if norm[r][c] == "" || !contemRotulo(norm[r][c], regra.rotulos) {
				continue
			}
			for _, off := range offsets {
				valor := celula(raw, r+off[0], c+off[1])
				// Células unidas repetem o rótulo nas colunas vizinhas.
				if valor == "" || valor == raw[r][c] {
					continue
				}
				if regra.aplicar(campos, valor) {
					return true
				}
			}
		}
	}
	return false
}

func contemRotulo(normCell string, rotulos []string) bool {
	for _, rotulo := range rotulos {
		if strings.Contains(normCell, rotulo) {
			return true
		}
	}
	return false
}

// extrairSeccao lê uma lista de verificação a partir do cabeçalho da secção:
// nome na coluna do cabeçalho, quantidade na coluna seguinte e estado na
// terceira. Linhas com nome preenchido e quantidade numérica ou em branco
// (vale 1) são mantidas; as restantes são descartadas.
func extrairSeccao(raw, norm [][]string, cabecalho string) []ComponenteExtraido {
	r, c, ok := procurarCelula(norm, cabecalho)
	if !ok {
		return nil
	}

	var itens []ComponenteExtraido
	vazias := 0
	for i := r + 1; i < len(raw); i++ {
		nome := celula(raw, i, c)
		if nome == "" {
			vazias++
			if vazias >= 2 {
				break
			}
			continue
		}
		vazias = 0

		normNome := Normalizar(nome)
		if eCabecalhoSeccao(normNome) || strings.Contains(normNome, "CILINDRO") {
			break
		}

		qtd, ok := parseQuantidade(celula(raw, i, c+1))
		if !ok {
			continue
		}
		itens = append(itens, ComponenteExtraido{
			Nome:       nome,
			Quantidade: qtd,
			Estado:     celula(raw, i, c+2),
		})
	}
	return itens
}

func eCabecalhoSeccao(normCell string) bool {
	for _, s := range []string{"INTERIOR", "EXTERIOR", "PACK"} {
		if normCell == s || strings.HasSuffix(normCell, " "+s) || strings.HasPrefix(normCell, s+" ") {
			return true
		}
	}
	return false
}

// Palavras-chave que identificam as colunas da tabela de cilindros. A ordem
// importa: "TIPO DE VALVULA" tem de ganhar a "TIPO".
var colunasCilindro = []struct {
	campo    string
	palavras []string
}{
	{"valvula", []string{"VALVULA"}},
	{"cabeca", []string{"CABECA", "GATILHO"}},
	{"proximoteste", []string{"PROXIM", "TESTE", "PROVA"}},
	{"validade", []string{"VALIDADE"}},
	{"pressao", []string{"PRESSAO"}},
	{"gas", []string{"GAS"}},
	{"numero", []string{"NUMERO", "N CILINDRO"}},
	{"tipo", []string{"TIPO"}},
}

var separadorValvulas = regexp.MustCompile(`\s*[/;,+]\s*`)

// extrairCilindros localiza a tabela de cilindros pelo marcador "CILINDRO",
// mapeia as colunas pelo cabeçalho e lê as linhas até ficarem vazias.
func extrairCilindros(raw, norm [][]string) []CilindroExtraido {
	marcaR, _, ok := procurarCelula(norm, "CILINDRO")
	if !ok {
		return nil
	}

	// O cabeçalho das colunas está no marcador ou numa das duas linhas
	// seguintes, conforme o modelo do quadro.
	hdr := -1
	var colunas map[string]int
	for r := marcaR; r <= marcaR+2 && r < len(norm); r++ {
		cols := mapearColunasCilindro(norm[r])
		if _, temNumero := cols["numero"]; temNumero {
			hdr = r
			colunas = cols
			break
		}
	}
	if hdr < 0 {
		return nil
	}

	valorEm := func(linha int, campo string) string {
		c, ok := colunas[campo]
		if !ok {
			return ""
		}
		return celula(raw, linha, c)
	}

	var cilindros []CilindroExtraido
	for i := hdr + 1; i < len(raw); i++ {
		numero := valorEm(i, "numero")
		tipo := valorEm(i, "tipo")
		if numero == "" && tipo == "" {
			break
		}

		pressao, _ := parseNumeroPT(valorEm(i, "pressao"))
		cilindro := CilindroExtraido{
			Numero:       numero,
			Tipo:         tipo,
			Pressao:      pressao,
			Gas:          valorEm(i, "gas"),
			Validade:     valorEm(i, "validade"),
			ProximoTeste: valorEm(i, "proximoteste"),
			TipoCabeca:   valorEm(i, "cabeca"),
		}
		if v := valorEm(i, "valvula"); v != "" {
			for _, parte := range separadorValvulas.Split(v, -1) {
				if parte = strings.TrimSpace(parte); parte != "" {
					cilindro.TiposValvula = append(cilindro.TiposValvula, parte)
				}
			}
		}
		cilindros = append(cilindros, cilindro)
	}
	return cilindros
}

func mapearColunasCilindro(normRow []string) map[string]int {
	colunas := make(map[string]int)
	for c, cell := range normRow {
		if cell == "" {
			continue
		}
		for _, col := range colunasCilindro {
			if _, ocupada := colunas[col.campo]; ocupada {
				continue
			}
			if contemRotulo(cell, col.palavras) {
				colunas[col.campo] = c
				break
			}
		}
	}
	return colunas
}

func procurarCelula(norm [][]string, palavra string) (int, int, bool) {
	for r := range norm {
		for c := range norm[r] {
			if strings.Contains(norm[r][c], palavra) {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func celula(raw [][]string, r, c int) string {
	if r < 0 || r >= len(raw) {
		return ""
	}
	if c < 0 || c >= len(raw[r]) {
		return ""
	}
	return strings.TrimSpace(raw[r][c])
}

var primeiroNumero = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// parseNumeroPT aceita vírgula decimal e ignora unidades ("180,5 bar").
func parseNumeroPT(s string) (float64, bool) {
	m := primeiroNumero.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parsePrimeiroInteiro(s string) (int, bool) {
	v, ok := parseNumeroPT(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// parseQuantidade implementa a regra das listas: em branco vale 1, numérico
// vale o próprio valor, qualquer outra coisa invalida a linha.
func parseQuantidade(s string) (int, bool) {
	if strings.TrimSpace(s) == "" {
		return 1, true
	}
	v, ok := parseNumeroPT(s)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}
