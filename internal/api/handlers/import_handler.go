// internal/api/handlers/import_handler.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/seguramar/quadrodeinspecao/internal/api/responses"
	"github.com/seguramar/quadrodeinspecao/internal/core/importacao"
	"github.com/seguramar/quadrodeinspecao/internal/core/quadro"
)

// ImportHandler lida com o upload e importação de quadros de inspeção.
type ImportHandler struct {
	service importacao.Service
}

func NewImportHandler(service importacao.Service) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// HandleImportarQuadro recebe um ficheiro Excel por multipart (campo "file")
// e devolve o resultado da importação. Rejeições valem 400 com mensagem
// legível; só falhas inesperadas do pipeline valem 500.
func (h *ImportHandler) HandleImportarQuadro(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Ficheiro do quadro não encontrado ou inválido")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		responses.Error(c, http.StatusBadRequest, "Formato de ficheiro não suportado: use .xlsx ou .xls")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o ficheiro enviado")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível ler o ficheiro enviado")
		return
	}

	res, err := h.service.Importar(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, quadro.ErrFicheiroIlegivel):
			responses.Error(c, http.StatusBadRequest, "O ficheiro não é um Excel válido")
		case errors.Is(err, importacao.ErrNaoEQuadro):
			responses.Error(c, http.StatusBadRequest,
				"O ficheiro não parece ser um quadro de inspeção",
				"Confirme se enviou o quadro de inspeção da jangada (nome ou folha com 'inspeção')")
		case errors.Is(err, importacao.ErrSemNumeroSerie):
			// O payload completo segue na resposta para o frontend mostrar
			// os erros na mesma estrutura de um resultado normal.
			c.JSON(http.StatusBadRequest, res)
		default:
			responses.Error(c, http.StatusInternalServerError, "Erro ao processar o quadro de inspeção", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, res)
}
