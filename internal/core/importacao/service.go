// internal/core/importacao/service.go
package importacao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/schollz/closestmatch"
	"github.com/seguramar/quadrodeinspecao/internal/core/quadro"
	"github.com/seguramar/quadrodeinspecao/internal/domain"
	"go.uber.org/zap"
)

// Erros de rejeição: abortam a importação antes de qualquer escrita e são
// devolvidos ao utilizador como pedido inválido.
var (
	ErrNaoEQuadro     = errors.New("o ficheiro não parece ser um quadro de inspeção")
	ErrSemNumeroSerie = errors.New("número de série não identificado no quadro")
)

// ConfiancaMinima é o limiar abaixo do qual a importação prossegue com aviso.
const ConfiancaMinima = 40

// Repositorio é a camada de acesso a dados consumida pelo motor de
// importação. As operações obter-ou-criar têm de ser atómicas sobre a chave
// natural respetiva.
type Repositorio interface {
	ObterOuCriarJangada(ctx context.Context, j *domain.Jangada) (bool, error)
	AtualizarJangada(ctx context.Context, j *domain.Jangada) error
	ObterOuCriarMarca(ctx context.Context, nome string) (*domain.Marca, error)
	ObterOuCriarModelo(ctx context.Context, nome string, marcaID uint) (*domain.Modelo, error)
	ObterOuCriarLotacao(ctx context.Context, capacidade int) (*domain.Lotacao, error)
	ProcurarCertificadoPorNumero(ctx context.Context, numero string) (*domain.Certificado, error)
	CriarCertificado(ctx context.Context, c *domain.Certificado) error
	CriarComponente(ctx context.Context, c *domain.Componente) error
	CriarCilindro(ctx context.Context, c *domain.Cilindro) error
	ProcurarStockPorNome(ctx context.Context, nome string) (*domain.StockItem, error)
	DecrementarStock(ctx context.Context, id uint, quantidade int) (int, error)
	NomesStock(ctx context.Context) ([]string, error)
}

// Service importa quadros de inspeção e reconcilia-os com a base de dados.
type Service interface {
	Importar(ctx context.Context, filename string, data []byte) (*domain.ImportResult, error)
}

type service struct {
	repo Repositorio
	log  *zap.Logger
}

func NewService(repo Repositorio, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

// Importar corre o pipeline completo: leitura da grelha, classificação,
// extração, normalização de datas e reconciliação. Um erro devolvido aqui é
// ou uma rejeição (ficheiro ilegível, não é quadro, sem número de série) ou
// uma falha dura a meio do pipeline; falhas por componente ou cilindro
// tornam-se avisos e nunca abortam o lote.
func (s *service) Importar(ctx context.Context, filename string, data []byte) (*domain.ImportResult, error) {
	grelha, err := quadro.LerGrelha(data, filename)
	if err != nil {
		return nil, err
	}
	if !quadro.EQuadroInspecao(filename, grelha.Folhas) {
		return nil, ErrNaoEQuadro
	}

	ex := quadro.Extrair(grelha)
	res := &domain.ImportResult{
		Confianca: ex.Confianca,
		Errors:    []string{},
		Warnings:  []string{},
		Componentes: domain.ComponentesResult{
			Interiores: []domain.Componente{},
			Exteriores: []domain.Componente{},
			Pack:       []domain.Componente{},
		},
		Cilindros: []domain.Cilindro{},
		StockSync: domain.StockSync{Updates: []domain.StockUpdate{}},
	}

	// Precondição dura: sem número de série não há chave natural, e nada
	// foi escrito até aqui.
	if ex.Jangada.NumeroSerie == "" {
		res.Errors = append(res.Errors, ErrSemNumeroSerie.Error())
		return res, ErrSemNumeroSerie
	}

	if ex.Confianca < ConfiancaMinima {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Confiança baixa na extração (%d%%): confirme os dados importados", ex.Confianca))
	}

	jangada := &domain.Jangada{
		NumeroSerie: ex.Jangada.NumeroSerie,
		Tipo:        domain.TipoJangadaPadrao,
		Estado:      domain.EstadoAtivo,
	}
	criada, err := s.repo.ObterOuCriarJangada(ctx, jangada)
	if err != nil {
		return nil, err
	}
	if criada {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Jangada %s criada como novo registo", jangada.NumeroSerie))
	}

	s.atualizarCamposJangada(ctx, jangada, &ex.Jangada, res)
	if err := s.repo.AtualizarJangada(ctx, jangada); err != nil {
		return nil, err
	}

	if err := s.sincronizarCertificado(ctx, jangada, res); err != nil {
		return nil, err
	}

	s.sincronizarComponentes(ctx, jangada, ex, res)
	s.sincronizarCilindros(ctx, jangada.ID, ex.Cilindros, res)

	res.Jangada = jangada
	res.Success = len(res.Errors) == 0

	s.log.Info("importação de quadro concluída",
		zap.String("serie", jangada.NumeroSerie),
		zap.Int("confianca", res.Confianca),
		zap.Int("componentes", res.StockSync.TotalComponents),
		zap.Int("avisos", len(res.Warnings)))
	return res, nil
}

// atualizarCamposJangada aplica os campos extraídos. Referências que não se
// resolvem (marca, modelo, lotação) são ignoradas em silêncio; só as datas
// irreconhecíveis geram aviso, porque o valor gravado passa a ser o de hoje.
func (s *service) atualizarCamposJangada(ctx context.Context, j *domain.Jangada, campos *quadro.CamposJangada, res *domain.ImportResult) {
	if campos.Marca != "" {
		marca, err := s.repo.ObterOuCriarMarca(ctx, campos.Marca)
		if err != nil {
			s.log.Debug("marca não resolvida", zap.String("marca", campos.Marca), zap.Error(err))
		} else {
			j.MarcaID = &marca.ID
			j.Marca = marca
			if campos.Modelo != "" {
				modelo, err := s.repo.ObterOuCriarModelo(ctx, campos.Modelo, marca.ID)
				if err != nil {
					s.log.Debug("modelo não resolvido", zap.String("modelo", campos.Modelo), zap.Error(err))
				} else {
					j.ModeloID = &modelo.ID
					j.Modelo = modelo
				}
			}
		}
	}

	if campos.Lotacao > 0 {
		lotacao, err := s.repo.ObterOuCriarLotacao(ctx, campos.Lotacao)
		if err != nil {
			s.log.Debug("lotação não resolvida", zap.Int("capacidade", campos.Lotacao), zap.Error(err))
		} else {
			j.LotacaoID = &lotacao.ID
			j.Lotacao = lotacao
		}
	}

	j.DataFabricacao = s.normalizarData(campos.DataFabricacao, j.DataFabricacao, "data de fabricação", res)
	j.DataUltimaInspecao = s.normalizarData(campos.DataInspecao, j.DataUltimaInspecao, "data de inspeção", res)
	j.DataProximaInspecao = s.normalizarData(campos.DataProximaInspecao, j.DataProximaInspecao, "data da próxima inspeção", res)

	if campos.Tecnico != "" {
		j.Tecnico = campos.Tecnico
	}
	if campos.NumeroCertificado != "" {
		j.NumeroCertificado = campos.NumeroCertificado
	}
}

// normalizarData devolve a data interpretada e mantém o valor atual quando o
// quadro não traz nada. Quando o valor existe mas não é reconhecido, recorre
// à data de hoje e deixa aviso.
func (s *service) normalizarData(raw string, atual *time.Time, rotulo string, res *domain.ImportResult) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return atual
	}
	if d, ok := quadro.ParseDataPT(raw); ok {
		return &d
	}
	agora := time.Now()
	res.Warnings = append(res.Warnings,
		fmt.Sprintf("Valor de %s não reconhecido (%q); usada a data atual", rotulo, raw))
	return &agora
}

func (s *service) sincronizarCertificado(ctx context.Context, j *domain.Jangada, res *domain.ImportResult) error {
	if j.NumeroCertificado == "" {
		return nil
	}

	cert, err := s.repo.ProcurarCertificadoPorNumero(ctx, j.NumeroCertificado)
	if err != nil {
		return err
	}
	if cert == nil {
		agora := time.Now()
		emissao := agora
		if j.DataUltimaInspecao != nil {
			emissao = *j.DataUltimaInspecao
		}
		validade := agora.AddDate(0, 0, 365)
		if j.DataProximaInspecao != nil {
			validade = *j.DataProximaInspecao
		}
		cert = &domain.Certificado{
			Numero:       j.NumeroCertificado,
			JangadaID:    j.ID,
			Tipo:         "Inspeção",
			DataEmissao:  &emissao,
			DataValidade: &validade,
		}
		if err := s.repo.CriarCertificado(ctx, cert); err != nil {
			return err
		}
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Certificado %s criado automaticamente", cert.Numero))
	}
	res.Certificado = cert
	return nil
}

// sincronizarComponentes regista cada componente extraído e decrementa o
// stock correspondente. Uma linha má nunca aborta o lote: a falha vira aviso
// e o processamento continua no item seguinte.
func (s *service) sincronizarComponentes(ctx context.Context, j *domain.Jangada, ex *quadro.Extracao, res *domain.ImportResult) {
	categorias := []struct {
		nome    string
		itens   []quadro.ComponenteExtraido
		destino *[]domain.Componente
	}{
		{domain.CategoriaInterior, ex.Interior, &res.Componentes.Interiores},
		{domain.CategoriaExterior, ex.Exterior, &res.Componentes.Exteriores},
		{domain.CategoriaPack, ex.Pack, &res.Componentes.Pack},
	}

	sugerir := s.novoSugestorStock(ctx)

	for _, cat := range categorias {
		res.StockSync.TotalComponents += len(cat.itens)
		for _, item := range cat.itens {
			comp := &domain.Componente{
				JangadaID:  j.ID,
				Categoria:  cat.nome,
				Nome:       item.Nome,
				Quantidade: item.Quantidade,
				Estado:     item.Estado,
			}
			if err := s.repo.CriarComponente(ctx, comp); err != nil {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("Falha ao processar componente %q: %v", item.Nome, err))
				res.StockSync.Updates = append(res.StockSync.Updates, domain.StockUpdate{
					Nome:   item.Nome,
					Action: domain.StockAcaoErro,
					Error:  err.Error(),
				})
				continue
			}
			*cat.destino = append(*cat.destino, *comp)

			if item.Quantidade > 0 {
				if upd := s.sincronizarStock(ctx, item, sugerir, res); upd != nil {
					res.StockSync.Updates = append(res.StockSync.Updates, *upd)
				}
			}
		}
	}
}

// sincronizarStock decrementa o item de stock cujo nome contém o nome do
// componente. Sem correspondência não há mutação nenhuma: a importação nunca
// cria itens de stock, apenas sugere o mais próximo.
func (s *service) sincronizarStock(ctx context.Context, item quadro.ComponenteExtraido, sugerir func(string) string, res *domain.ImportResult) *domain.StockUpdate {
	stock, err := s.repo.ProcurarStockPorNome(ctx, item.Nome)
	if err != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Falha ao processar componente %q: %v", item.Nome, err))
		return &domain.StockUpdate{Nome: item.Nome, Action: domain.StockAcaoErro, Error: err.Error()}
	}
	if stock == nil {
		if sugestao := sugerir(item.Nome); sugestao != "" {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Componente %q sem correspondência no stock; o item mais próximo é %q", item.Nome, sugestao))
		}
		return nil
	}

	if _, err := s.repo.DecrementarStock(ctx, stock.ID, item.Quantidade); err != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Falha ao processar componente %q: %v", item.Nome, err))
		return &domain.StockUpdate{Nome: item.Nome, Action: domain.StockAcaoErro, Error: err.Error()}
	}
	return &domain.StockUpdate{Nome: item.Nome, Action: domain.StockAcaoDecrementado, Quantidade: item.Quantidade}
}

// novoSugestorStock prepara a pesquisa por proximidade sobre os nomes de
// stock, com as chaves normalizadas. Qualquer falha aqui só desliga as
// sugestões; nunca afeta a importação.
func (s *service) novoSugestorStock(ctx context.Context) func(string) string {
	nomes, err := s.repo.NomesStock(ctx)
	if err != nil || len(nomes) == 0 {
		return func(string) string { return "" }
	}

	porChave := make(map[string]string, len(nomes))
	chaves := make([]string, 0, len(nomes))
	for _, nome := range nomes {
		chave := quadro.Normalizar(nome)
		if chave == "" {
			continue
		}
		if _, existe := porChave[chave]; !existe {
			porChave[chave] = nome
			chaves = append(chaves, chave)
		}
	}
	cm := closestmatch.New(chaves, []int{3, 4})

	return func(nome string) string {
		chave := quadro.Normalizar(nome)
		if chave == "" {
			return ""
		}
		return porChave[cm.Closest(chave)]
	}
}

// sincronizarCilindros copia os cilindros extraídos para a jangada, com as
// datas normalizadas. Não há sincronização de stock para cilindros.
func (s *service) sincronizarCilindros(ctx context.Context, jangadaID uint, cilindros []quadro.CilindroExtraido, res *domain.ImportResult) {
	for _, c := range cilindros {
		cil := &domain.Cilindro{
			JangadaID:    jangadaID,
			Numero:       c.Numero,
			Tipo:         c.Tipo,
			Pressao:      c.Pressao,
			Gas:          c.Gas,
			TipoCabeca:   c.TipoCabeca,
			TiposValvula: strings.Join(c.TiposValvula, ";"),
		}
		cil.DataValidade = s.normalizarData(c.Validade, nil,
			fmt.Sprintf("validade do cilindro %s", c.Numero), res)
		cil.DataProximoTeste = s.normalizarData(c.ProximoTeste, nil,
			fmt.Sprintf("próximo teste do cilindro %s", c.Numero), res)

		if err := s.repo.CriarCilindro(ctx, cil); err != nil {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Falha ao registar cilindro %q: %v", c.Numero, err))
			continue
		}
		res.Cilindros = append(res.Cilindros, *cil)
	}
}
