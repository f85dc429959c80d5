// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seguramar/quadrodeinspecao/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository é a camada de acesso a dados sobre GORM. É injetada em quem a
// consome; o ciclo de vida da ligação pertence ao cmd/web.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrar cria/atualiza o esquema. As restrições de unicidade (número de
// série, número de certificado, nome de marca) são a defesa contra
// importações concorrentes do mesmo ficheiro.
func (r *Repository) Migrar() error {
	return r.db.AutoMigrate(
		&domain.Marca{},
		&domain.Modelo{},
		&domain.Lotacao{},
		&domain.Jangada{},
		&domain.Certificado{},
		&domain.Componente{},
		&domain.Cilindro{},
		&domain.StockItem{},
	)
}

// ObterOuCriarJangada insere a jangada se o número de série ainda não
// existir, de forma atómica (ON CONFLICT DO NOTHING sobre o índice único).
// Devolve true quando o registo foi criado agora.
func (r *Repository) ObterOuCriarJangada(ctx context.Context, j *domain.Jangada) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "numero_serie"}}, DoNothing: true}).
		Create(j)
	if res.Error != nil {
		return false, fmt.Errorf("erro ao criar jangada %q: %w", j.NumeroSerie, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Where("numero_serie = ?", j.NumeroSerie).First(j).Error; err != nil {
		return false, fmt.Errorf("erro ao carregar jangada %q: %w", j.NumeroSerie, err)
	}
	return false, nil
}

func (r *Repository) AtualizarJangada(ctx context.Context, j *domain.Jangada) error {
	if err := r.db.WithContext(ctx).Save(j).Error; err != nil {
		return fmt.Errorf("erro ao atualizar jangada %q: %w", j.NumeroSerie, err)
	}
	return nil
}

// ProcurarJangadaPorSerie devolve (nil, nil) quando não existe.
func (r *Repository) ProcurarJangadaPorSerie(ctx context.Context, serie string) (*domain.Jangada, error) {
	var j domain.Jangada
	err := r.db.WithContext(ctx).
		Preload("Marca").Preload("Modelo").Preload("Lotacao").
		Where("numero_serie = ?", serie).First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao procurar jangada %q: %w", serie, err)
	}
	return &j, nil
}

func (r *Repository) ObterOuCriarMarca(ctx context.Context, nome string) (*domain.Marca, error) {
	m := domain.Marca{Nome: nome}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "nome"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return nil, fmt.Errorf("erro ao criar marca %q: %w", nome, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("nome = ?", nome).First(&m).Error; err != nil {
			return nil, fmt.Errorf("erro ao carregar marca %q: %w", nome, err)
		}
	}
	return &m, nil
}

// ObterOuCriarModelo: o nome do modelo só é único dentro da marca.
func (r *Repository) ObterOuCriarModelo(ctx context.Context, nome string, marcaID uint) (*domain.Modelo, error) {
	m := domain.Modelo{Nome: nome, MarcaID: marcaID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "nome"}, {Name: "marca_id"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return nil, fmt.Errorf("erro ao criar modelo %q: %w", nome, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("nome = ? AND marca_id = ?", nome, marcaID).First(&m).Error; err != nil {
			return nil, fmt.Errorf("erro ao carregar modelo %q: %w", nome, err)
		}
	}
	return &m, nil
}

func (r *Repository) ObterOuCriarLotacao(ctx context.Context, capacidade int) (*domain.Lotacao, error) {
	l := domain.Lotacao{Capacidade: capacidade}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "capacidade"}}, DoNothing: true}).
		Create(&l)
	if res.Error != nil {
		return nil, fmt.Errorf("erro ao criar lotação %d: %w", capacidade, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("capacidade = ?", capacidade).First(&l).Error; err != nil {
			return nil, fmt.Errorf("erro ao carregar lotação %d: %w", capacidade, err)
		}
	}
	return &l, nil
}

// ProcurarCertificadoPorNumero devolve (nil, nil) quando não existe.
func (r *Repository) ProcurarCertificadoPorNumero(ctx context.Context, numero string) (*domain.Certificado, error) {
	var c domain.Certificado
	err := r.db.WithContext(ctx).Where("numero = ?", numero).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao procurar certificado %q: %w", numero, err)
	}
	return &c, nil
}

// CriarCertificado insere no máximo um certificado por número; numa corrida
// entre importações o perdedor recarrega o registo vencedor.
func (r *Repository) CriarCertificado(ctx context.Context, c *domain.Certificado) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "numero"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return fmt.Errorf("erro ao criar certificado %q: %w", c.Numero, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("numero = ?", c.Numero).First(c).Error; err != nil {
			return fmt.Errorf("erro ao carregar certificado %q: %w", c.Numero, err)
		}
	}
	return nil
}

func (r *Repository) CriarComponente(ctx context.Context, c *domain.Componente) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("erro ao registar componente %q: %w", c.Nome, err)
	}
	return nil
}

func (r *Repository) CriarCilindro(ctx context.Context, c *domain.Cilindro) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("erro ao registar cilindro %q: %w", c.Numero, err)
	}
	return nil
}

// Metacaracteres de LIKE no nome do componente valem como texto literal.
var escaparLike = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProcurarStockPorNome faz a pesquisa "contém", insensível a maiúsculas,
// do nome do componente dentro dos nomes de stock. Devolve (nil, nil)
// quando nada corresponde.
func (r *Repository) ProcurarStockPorNome(ctx context.Context, nome string) (*domain.StockItem, error) {
	var item domain.StockItem
	padrao := "%" + escaparLike.Replace(strings.ToLower(nome)) + "%"
	err := r.db.WithContext(ctx).
		Where(`LOWER(nome) LIKE ? ESCAPE '\'`, padrao).
		Order("nome").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao procurar stock por %q: %w", nome, err)
	}
	return &item, nil
}

// DecrementarStock subtrai a quantidade num único UPDATE, com chão em zero,
// para que decrementos concorrentes não percam atualizações. Devolve a
// quantidade resultante.
func (r *Repository) DecrementarStock(ctx context.Context, id uint, quantidade int) (int, error) {
	err := r.db.WithContext(ctx).Model(&domain.StockItem{}).
		Where("id = ?", id).
		Update("quantidade", gorm.Expr(
			"CASE WHEN quantidade > ? THEN quantidade - ? ELSE 0 END", quantidade, quantidade)).Error
	if err != nil {
		return 0, fmt.Errorf("erro ao decrementar stock (id=%d): %w", id, err)
	}
	var item domain.StockItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return 0, fmt.Errorf("erro ao reler stock (id=%d): %w", id, err)
	}
	return item.Quantidade, nil
}

// NomesStock devolve todos os nomes de itens, para sugestões de proximidade.
func (r *Repository) NomesStock(ctx context.Context) ([]string, error) {
	var nomes []string
	if err := r.db.WithContext(ctx).Model(&domain.StockItem{}).Order("nome").Pluck("nome", &nomes).Error; err != nil {
		return nil, fmt.Errorf("erro ao listar nomes de stock: %w", err)
	}
	return nomes, nil
}

func (r *Repository) ListarStock(ctx context.Context) ([]domain.StockItem, error) {
	var itens []domain.StockItem
	if err := r.db.WithContext(ctx).Order("nome").Find(&itens).Error; err != nil {
		return nil, fmt.Errorf("erro ao listar stock: %w", err)
	}
	return itens, nil
}

// ComponentesDaJangada devolve os componentes registados, mais recentes
// primeiro.
func (r *Repository) ComponentesDaJangada(ctx context.Context, jangadaID uint) ([]domain.Componente, error) {
	var comps []domain.Componente
	err := r.db.WithContext(ctx).
		Where("jangada_id = ?", jangadaID).
		Order("created_at DESC").Find(&comps).Error
	if err != nil {
		return nil, fmt.Errorf("erro ao listar componentes da jangada %d: %w", jangadaID, err)
	}
	return comps, nil
}
