// internal/api/handlers/jangada_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seguramar/quadrodeinspecao/internal/api/responses"
	"github.com/seguramar/quadrodeinspecao/internal/repository"
)

// JangadaHandler expõe a superfície de leitura usada para verificar
// importações: a jangada por número de série e o stock atual.
type JangadaHandler struct {
	repo *repository.Repository
}

func NewJangadaHandler(repo *repository.Repository) *JangadaHandler {
	return &JangadaHandler{
		repo: repo,
	}
}

// HandleObterJangada devolve a jangada com o número de série indicado,
// incluindo os componentes registados nas importações.
func (h *JangadaHandler) HandleObterJangada(c *gin.Context) {
	serie := c.Param("serie")

	jangada, err := h.repo.ProcurarJangadaPorSerie(c.Request.Context(), serie)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao consultar a jangada", err.Error())
		return
	}
	if jangada == nil {
		responses.Error(c, http.StatusNotFound, "Jangada não encontrada")
		return
	}

	componentes, err := h.repo.ComponentesDaJangada(c.Request.Context(), jangada.ID)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao consultar os componentes", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jangada":     jangada,
		"componentes": componentes,
	})
}

// HandleListarStock devolve o inventário atual.
func (h *JangadaHandler) HandleListarStock(c *gin.Context) {
	itens, err := h.repo.ListarStock(c.Request.Context())
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao consultar o stock", err.Error())
		return
	}
	c.JSON(http.StatusOK, itens)
}
