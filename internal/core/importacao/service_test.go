package importacao

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/seguramar/quadrodeinspecao/internal/domain"
	"github.com/seguramar/quadrodeinspecao/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// O repositório GORM tem de satisfazer o contrato do motor.
var _ Repositorio = (*repository.Repository)(nil)

func servicoTeste(t *testing.T) (Service, *repository.Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "teste.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := repository.New(db)
	require.NoError(t, repo.Migrar())
	return NewService(repo, zap.NewNop()), repo, db
}

// quadroXLSX gera um ficheiro Excel de teste com as células indicadas na
// folha "Inspeção Visual".
func quadroXLSX(t *testing.T, celulas map[string]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Inspeção Visual"))
	for cel, val := range celulas {
		require.NoError(t, f.SetCellValue("Inspeção Visual", cel, val))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func quadroCompleto(t *testing.T, serie string) []byte {
	return quadroXLSX(t, map[string]interface{}{
		"A1": "Número de Série", "B1": serie,
		"A2": "Marca", "B2": "Viking",
		"A3": "Lotação", "B3": 8,
		"A4": "Data de Inspeção", "B4": "15/03/2024",
		"A5": "Próxima Inspeção", "B5": "15/03/2025",
		"A6": "Nº de Certificado", "B6": "CERT-001",
		"A8": "EQUIPAMENTO INTERIOR", "B8": "Qtd",
		"A9": "Sinais de Fumo", "B9": 2,
	})
}

func temAviso(avisos []string, fragmento string) bool {
	for _, a := range avisos {
		if strings.Contains(a, fragmento) {
			return true
		}
	}
	return false
}

// A primeira importação cria a jangada com os campos extraídos do quadro.
func TestImportarQuadroNovo(t *testing.T) {
	svc, repo, _ := servicoTeste(t)
	ctx := context.Background()

	res, err := svc.Importar(ctx, "quadro-inspecao-ABC123.xlsx", quadroCompleto(t, "ABC123"))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.GreaterOrEqual(t, res.Confianca, 33, "pelo menos 3 dos campos esperados presentes")
	assert.True(t, temAviso(res.Warnings, "criada como novo registo"))

	require.NotNil(t, res.Jangada)
	assert.Equal(t, "ABC123", res.Jangada.NumeroSerie)
	assert.Equal(t, domain.EstadoAtivo, res.Jangada.Estado)
	assert.Equal(t, domain.TipoJangadaPadrao, res.Jangada.Tipo)
	require.NotNil(t, res.Jangada.Marca)
	assert.Equal(t, "Viking", res.Jangada.Marca.Nome)
	require.NotNil(t, res.Jangada.Lotacao)
	assert.Equal(t, 8, res.Jangada.Lotacao.Capacidade)
	require.NotNil(t, res.Jangada.DataUltimaInspecao)
	assert.Equal(t, 2024, res.Jangada.DataUltimaInspecao.Year())

	// O certificado foi criado automaticamente, com aviso informativo.
	require.NotNil(t, res.Certificado)
	assert.Equal(t, "CERT-001", res.Certificado.Numero)
	assert.True(t, temAviso(res.Warnings, "criado automaticamente"))

	require.Len(t, res.Componentes.Interiores, 1)
	assert.Equal(t, "Sinais de Fumo", res.Componentes.Interiores[0].Nome)
	assert.Equal(t, 1, res.StockSync.TotalComponents)

	guardada, err := repo.ProcurarJangadaPorSerie(ctx, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, guardada)
}

// Reimportar o mesmo ficheiro atualiza a jangada existente, sem a duplicar
// nem repetir o aviso de criação.
func TestReimportarMesmoQuadro(t *testing.T) {
	svc, _, db := servicoTeste(t)
	ctx := context.Background()
	dados := quadroCompleto(t, "ABC123")

	_, err := svc.Importar(ctx, "quadro-inspecao-ABC123.xlsx", dados)
	require.NoError(t, err)

	res, err := svc.Importar(ctx, "quadro-inspecao-ABC123.xlsx", dados)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.False(t, temAviso(res.Warnings, "criada como novo registo"),
		"na segunda importação a jangada já existe")
	require.NotNil(t, res.Jangada.Marca)
	assert.Equal(t, "Viking", res.Jangada.Marca.Nome, "os campos refletem a segunda extração")

	var total int64
	require.NoError(t, db.Model(&domain.Jangada{}).Count(&total).Error)
	assert.EqualValues(t, 1, total, "o número de série nunca é duplicado")
}

// Um componente com correspondência no stock decrementa a quantidade em mão.
func TestImportarDecrementaStock(t *testing.T) {
	svc, _, db := servicoTeste(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.StockItem{Nome: "Sinais de Fumo Flutuantes", Quantidade: 10}).Error)

	res, err := svc.Importar(ctx, "quadro-inspecao-ABC123.xlsx", quadroCompleto(t, "ABC123"))
	require.NoError(t, err)
	assert.True(t, res.Success)

	var item domain.StockItem
	require.NoError(t, db.Where("nome = ?", "Sinais de Fumo Flutuantes").First(&item).Error)
	assert.Equal(t, 8, item.Quantidade)

	require.Len(t, res.StockSync.Updates, 1)
	upd := res.StockSync.Updates[0]
	assert.Equal(t, "Sinais de Fumo", upd.Nome)
	assert.Equal(t, domain.StockAcaoDecrementado, upd.Action)
	assert.Equal(t, 2, upd.Quantidade)
}

// Sem correspondência não há mutação de stock; a importação nunca cria itens.
func TestImportarSemCorrespondenciaStock(t *testing.T) {
	svc, _, db := servicoTeste(t)
	ctx := context.Background()

	res, err := svc.Importar(ctx, "quadro-inspecao-ABC123.xlsx", quadroCompleto(t, "ABC123"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.StockSync.Updates)

	var total int64
	require.NoError(t, db.Model(&domain.StockItem{}).Count(&total).Error)
	assert.Zero(t, total, "componentes sem correspondência não criam stock")
}

// Um quadro esparso importa na mesma, mas com aviso de confiança baixa.
func TestImportarComConfiancaBaixa(t *testing.T) {
	svc, _, _ := servicoTeste(t)

	dados := quadroXLSX(t, map[string]interface{}{
		"A1": "Número de Série", "B1": "ABC123",
	})
	res, err := svc.Importar(context.Background(), "quadro-inspecao.xlsx", dados)
	require.NoError(t, err)

	assert.True(t, res.Success, "confiança baixa não impede a importação")
	assert.Less(t, res.Confianca, ConfiancaMinima)
	assert.True(t, temAviso(res.Warnings, "Confiança baixa"))
}

// Sem número de série a importação é rejeitada antes de qualquer escrita.
func TestImportarSemNumeroSerie(t *testing.T) {
	svc, _, db := servicoTeste(t)
	ctx := context.Background()

	dados := quadroXLSX(t, map[string]interface{}{
		"A1": "Marca", "B1": "Viking",
	})
	res, err := svc.Importar(ctx, "quadro-inspecao.xlsx", dados)
	require.ErrorIs(t, err, ErrSemNumeroSerie)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)

	var total int64
	require.NoError(t, db.Model(&domain.Jangada{}).Count(&total).Error)
	assert.Zero(t, total, "rejeição acontece antes de qualquer mutação")
}

// Ficheiros que não são quadros de inspeção são rejeitados pelo filtro.
func TestImportarFicheiroErrado(t *testing.T) {
	svc, _, _ := servicoTeste(t)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "tabela qualquer"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = svc.Importar(context.Background(), "precos.xlsx", buf.Bytes())
	assert.ErrorIs(t, err, ErrNaoEQuadro)
}

// Datas irreconhecíveis valem a data de hoje, mas deixam aviso.
func TestImportarDataIrreconhecivel(t *testing.T) {
	svc, _, _ := servicoTeste(t)

	dados := quadroXLSX(t, map[string]interface{}{
		"A1": "Número de Série", "B1": "ABC123",
		"A2": "Data de Inspeção", "B2": "março de 2024",
	})
	res, err := svc.Importar(context.Background(), "quadro-inspecao.xlsx", dados)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, temAviso(res.Warnings, "não reconhecido"))
	require.NotNil(t, res.Jangada.DataUltimaInspecao, "a data cai para hoje em vez de ficar vazia")
}

// repoFalso simula a camada de dados para testar o isolamento de falhas por
// item sem depender da base de dados.
type repoFalso struct {
	falharComponente string
}

func (r *repoFalso) ObterOuCriarJangada(_ context.Context, j *domain.Jangada) (bool, error) {
	j.ID = 1
	return true, nil
}
func (r *repoFalso) AtualizarJangada(context.Context, *domain.Jangada) error { return nil }
func (r *repoFalso) ObterOuCriarMarca(_ context.Context, nome string) (*domain.Marca, error) {
	return &domain.Marca{ID: 1, Nome: nome}, nil
}
func (r *repoFalso) ObterOuCriarModelo(_ context.Context, nome string, marcaID uint) (*domain.Modelo, error) {
	return &domain.Modelo{ID: 1, Nome: nome, MarcaID: marcaID}, nil
}
func (r *repoFalso) ObterOuCriarLotacao(_ context.Context, capacidade int) (*domain.Lotacao, error) {
	return &domain.Lotacao{ID: 1, Capacidade: capacidade}, nil
}
func (r *repoFalso) ProcurarCertificadoPorNumero(context.Context, string) (*domain.Certificado, error) {
	return nil, nil
}
func (r *repoFalso) CriarCertificado(_ context.Context, c *domain.Certificado) error {
	c.ID = 1
	return nil
}
func (r *repoFalso) CriarComponente(_ context.Context, c *domain.Componente) error {
	if c.Nome == r.falharComponente {
		return errors.New("falha simulada na base de dados")
	}
	return nil
}
func (r *repoFalso) CriarCilindro(context.Context, *domain.Cilindro) error { return nil }
func (r *repoFalso) ProcurarStockPorNome(context.Context, string) (*domain.StockItem, error) {
	return nil, nil
}
func (r *repoFalso) DecrementarStock(context.Context, uint, int) (int, error) { return 0, nil }
func (r *repoFalso) NomesStock(context.Context) ([]string, error)            { return nil, nil }

// Uma linha má vira aviso e nunca aborta o lote.
func TestFalhaPorComponenteNaoAbortaLote(t *testing.T) {
	svc := NewService(&repoFalso{falharComponente: "Componente 3"}, zap.NewNop())

	dados := quadroXLSX(t, map[string]interface{}{
		"A1": "Número de Série", "B1": "ABC123",
		"A3": "EQUIPAMENTO INTERIOR", "B3": "Qtd",
		"A4": "Componente 1", "B4": 1,
		"A5": "Componente 2", "B5": 1,
		"A6": "Componente 3", "B6": 1,
		"A7": "Componente 4", "B7": 1,
		"A8": "Componente 5", "B8": 1,
	})
	res, err := svc.Importar(context.Background(), "quadro-inspecao.xlsx", dados)
	require.NoError(t, err)

	assert.True(t, res.Success, "falhas por componente são avisos, não erros")
	assert.Equal(t, 5, res.StockSync.TotalComponents)
	require.Len(t, res.Componentes.Interiores, 4)
	nomes := make([]string, 0, 4)
	for _, c := range res.Componentes.Interiores {
		nomes = append(nomes, c.Nome)
	}
	assert.Equal(t, []string{"Componente 1", "Componente 2", "Componente 4", "Componente 5"}, nomes)
	assert.True(t, temAviso(res.Warnings, "Componente 3"))
}

// As sugestões de proximidade avisam sem nunca mexer no stock.
func TestSugestaoStockProximo(t *testing.T) {
	svc, _, db := servicoTeste(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.StockItem{Nome: "Foguetes Iluminantes", Quantidade: 6}).Error)

	dados := quadroXLSX(t, map[string]interface{}{
		"A1": "Número de Série", "B1": "ABC123",
		"A3": "EQUIPAMENTO INTERIOR", "B3": "Qtd",
		"A4": "Foguete Iluminador", "B4": 1,
	})
	res, err := svc.Importar(ctx, "quadro-inspecao.xlsx", dados)
	require.NoError(t, err)

	// Sem correspondência "contém": o stock fica intacto e o aviso aponta
	// para o item mais próximo.
	assert.Empty(t, res.StockSync.Updates)
	var item domain.StockItem
	require.NoError(t, db.First(&item).Error)
	assert.Equal(t, 6, item.Quantidade)
	assert.True(t, temAviso(res.Warnings, "Foguetes Iluminantes"))
}
