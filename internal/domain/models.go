// internal/domain/models.go
package domain

import "time"

// Estados possíveis de uma jangada no sistema.
const (
	EstadoAtivo      = "ativo"
	EstadoInativo    = "inativo"
	EstadoManutencao = "manutencao"
	EstadoInstalada  = "instalada"
)

// TipoJangadaPadrao é usado quando o quadro não identifica o tipo.
const TipoJangadaPadrao = "Jangada Pneumática"

// Jangada é a entidade principal: uma jangada salva-vidas identificada
// pelo número de série (chave natural, nunca duplicada).
type Jangada struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	NumeroSerie         string     `gorm:"uniqueIndex;not null" json:"numero_serie"`
	Tipo                string     `json:"tipo"`
	MarcaID             *uint      `json:"-"`
	Marca               *Marca     `json:"marca,omitempty"`
	ModeloID            *uint      `json:"-"`
	Modelo              *Modelo    `json:"modelo,omitempty"`
	LotacaoID           *uint      `json:"-"`
	Lotacao             *Lotacao   `json:"lotacao,omitempty"`
	NumeroCertificado   string     `json:"numero_certificado"`
	DataFabricacao      *time.Time `json:"data_fabricacao"`
	DataUltimaInspecao  *time.Time `json:"data_ultima_inspecao"`
	DataProximaInspecao *time.Time `json:"data_proxima_inspecao"`
	Tecnico             string     `json:"tecnico"`
	Estado              string     `gorm:"default:ativo" json:"estado"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Marca de jangada (Viking, Zodiac, ...), referenciada por nome.
type Marca struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Nome string `gorm:"uniqueIndex;not null" json:"nome"`
}

// Modelo é único dentro de uma marca (nome + marca).
type Modelo struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Nome    string `gorm:"uniqueIndex:idx_modelo_marca;not null" json:"nome"`
	MarcaID uint   `gorm:"uniqueIndex:idx_modelo_marca" json:"marca_id"`
}

// Lotacao é a capacidade homologada de pessoas.
type Lotacao struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	Capacidade int  `gorm:"uniqueIndex" json:"capacidade"`
}

// Certificado de inspeção, identificado pelo número e ligado à jangada.
// Criado no máximo uma vez por número.
type Certificado struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Numero       string     `gorm:"uniqueIndex;not null" json:"numero"`
	JangadaID    uint       `json:"jangada_id"`
	Tipo         string     `json:"tipo"`
	DataEmissao  *time.Time `json:"data_emissao"`
	DataValidade *time.Time `json:"data_validade"`
	Entidade     string     `json:"entidade"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Categorias das listas de componentes de um quadro de inspeção.
const (
	CategoriaInterior = "interior"
	CategoriaExterior = "exterior"
	CategoriaPack     = "pack"
)

// Componente registado numa inspeção. Cada importação acrescenta registos
// novos; não há deduplicação entre importações.
type Componente struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	JangadaID    uint       `gorm:"index" json:"jangada_id"`
	Categoria    string     `json:"categoria"`
	Nome         string     `json:"nome"`
	Quantidade   int        `json:"quantidade"`
	Estado       string     `json:"estado"`
	DataValidade *time.Time `json:"data_validade"`
	Observacoes  string     `json:"observacoes"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Cilindro de enchimento (CO2/N2/misto) associado à jangada. Os tipos de
// válvula mantêm a ordem do quadro, serializados com ';'.
type Cilindro struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	JangadaID        uint       `gorm:"index" json:"jangada_id"`
	Numero           string     `json:"numero"`
	Tipo             string     `json:"tipo"`
	Pressao          float64    `json:"pressao"`
	Gas              string     `json:"gas"`
	DataValidade     *time.Time `json:"data_validade"`
	DataProximoTeste *time.Time `json:"data_proximo_teste"`
	TipoCabeca       string     `json:"tipo_cabeca"`
	TiposValvula     string     `json:"tipos_valvula"`
	CreatedAt        time.Time  `json:"created_at"`
}

// StockItem é uma linha de inventário com quantidade em mão. A importação
// apenas decrementa stock existente; nunca cria itens novos.
type StockItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Nome       string    `gorm:"index;not null" json:"nome"`
	Quantidade int       `json:"quantidade"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Ações possíveis no resumo de sincronização de stock.
const (
	StockAcaoCriado       = "created"
	StockAcaoDecrementado = "decreased"
	StockAcaoErro         = "error"
)

// StockUpdate descreve o efeito da importação sobre um item de stock.
type StockUpdate struct {
	Nome       string `json:"nome"`
	Action     string `json:"action"`
	Quantidade int    `json:"quantidade,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StockSync é o resumo de sincronização devolvido ao cliente.
type StockSync struct {
	TotalComponents int           `json:"totalComponents"`
	Updates         []StockUpdate `json:"updates"`
}

// ComponentesResult agrupa os componentes registados por categoria.
type ComponentesResult struct {
	Interiores []Componente `json:"interiores"`
	Exteriores []Componente `json:"exteriores"`
	Pack       []Componente `json:"pack"`
}

// ImportResult é o payload final de uma importação de quadro de inspeção.
// Success é verdadeiro sse Errors estiver vazio; warnings não afetam o sucesso.
type ImportResult struct {
	Success     bool              `json:"success"`
	Jangada     *Jangada          `json:"jangada"`
	Componentes ComponentesResult `json:"componentes"`
	Cilindros   []Cilindro        `json:"cilindros"`
	Certificado *Certificado      `json:"certificado"`
	Errors      []string          `json:"errors"`
	Warnings    []string          `json:"warnings"`
	Confianca   int               `json:"confianca"`
	StockSync   StockSync         `json:"stockSync"`
}
